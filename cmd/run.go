package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/titanic-linkage/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: import, fetch, extract, match, reconcile, export",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stages := []struct {
			name string
			fn   func(context.Context, store.Store) error
		}{
			{"import", importStage},
			{"fetch", fetchStage},
			{"extract", extractStage},
			{"match", matchStage},
			{"reconcile", reconcileStage},
			{"export", exportStage},
		}
		for _, stage := range stages {
			zap.L().Info("starting stage", zap.String("stage", stage.name))
			if err := stage.fn(ctx, st); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
