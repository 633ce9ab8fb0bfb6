package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/titanic-linkage/internal/store"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Parse cached passenger pages into structured records",
	Long: `Parse every cached passenger page into the encyclopedia passenger
table. Extraction is best-effort per record: a field the page does not
state becomes a null or placeholder plus an extraction note, never an
error.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return extractStage(ctx, st)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}

func extractStage(ctx context.Context, st store.Store) error {
	n, err := newEngine(st).Extract(ctx)
	if err != nil {
		return eris.Wrap(err, "extract")
	}
	fmt.Printf("Extracted %d encyclopedia passenger records\n", n)
	return nil
}
