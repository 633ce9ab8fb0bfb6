package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/titanic-linkage/internal/export"
	"github.com/sells-group/titanic-linkage/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the reconciled dataset to CSV and XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if p, _ := cmd.Flags().GetString("csv"); p != "" {
			cfg.Export.CSVPath = p
		}
		if p, _ := cmd.Flags().GetString("xlsx"); p != "" {
			cfg.Export.XLSXPath = p
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return exportStage(ctx, st)
	},
}

func init() {
	exportCmd.Flags().String("csv", "", "CSV output path (overrides config)")
	exportCmd.Flags().String("xlsx", "", "XLSX output path (overrides config)")
	rootCmd.AddCommand(exportCmd)
}

func exportStage(ctx context.Context, st store.Store) error {
	rows, err := st.ListReconciled(ctx)
	if err != nil {
		return eris.Wrap(err, "export: load reconciled rows")
	}
	if len(rows) == 0 {
		return eris.New("export: reconciled table is empty (run reconcile first)")
	}

	for _, path := range []string{cfg.Export.CSVPath, cfg.Export.XLSXPath} {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return eris.Wrapf(err, "export: create dir %s", dir)
			}
		}
	}

	if err := export.WriteCSV(cfg.Export.CSVPath, rows); err != nil {
		return err
	}
	if err := export.WriteXLSX(cfg.Export.XLSXPath, rows); err != nil {
		return err
	}

	fmt.Printf("Exported %d rows to %s and %s\n", len(rows), cfg.Export.CSVPath, cfg.Export.XLSXPath)
	return nil
}
