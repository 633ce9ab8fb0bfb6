package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/titanic-linkage/internal/kaggle"
	"github.com/sells-group/titanic-linkage/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load the Kaggle train/test CSVs",
	Long: `Load the Kaggle competition CSVs into the kaggle passenger table.
Test rows carry no survival label. A missing expected column aborts the
import; nothing is replaced on failure.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if train, _ := cmd.Flags().GetString("train"); train != "" {
			cfg.Import.TrainPath = train
		}
		if test, _ := cmd.Flags().GetString("test"); test != "" {
			cfg.Import.TestPath = test
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return importStage(ctx, st)
	},
}

func init() {
	importCmd.Flags().String("train", "", "path to train.csv (overrides config)")
	importCmd.Flags().String("test", "", "path to test.csv (overrides config)")
	rootCmd.AddCommand(importCmd)
}

func importStage(ctx context.Context, st store.Store) error {
	im := kaggle.New(st, cfg.Match.GivenNameLen, cfg.Match.SurnameLen)
	n, err := im.Run(ctx, cfg.Import.TrainPath, cfg.Import.TestPath)
	if err != nil {
		return eris.Wrap(err, "import")
	}
	fmt.Printf("Imported %d Kaggle passenger records\n", n)
	return nil
}
