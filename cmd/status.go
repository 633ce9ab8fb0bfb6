package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/titanic-linkage/internal/model"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-stage table counts and match breakdown",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		c, err := st.Counts(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		fmt.Printf("Raw pages:                %d\n", c.RawPages)
		fmt.Printf("Kaggle passengers:        %d\n", c.Kaggle)
		fmt.Printf("Encyclopedia passengers:  %d\n", c.Encyclopedia)
		fmt.Printf("Match candidates:         %d\n", c.Candidates)
		fmt.Printf("Selected matches:         %d\n", c.Selected)
		fmt.Printf("  exact_key:              %d\n", c.ByMethod[model.MethodExactKey])
		fmt.Printf("  fuzzy_name:             %d\n", c.ByMethod[model.MethodFuzzyName])
		fmt.Printf("Ambiguous candidates:     %d\n", c.Ambiguous)
		fmt.Printf("Reconciled rows:          %d (%d speculative)\n", c.Reconciled, c.Speculative)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
