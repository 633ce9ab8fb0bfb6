package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/titanic-linkage/internal/model"
	"github.com/sells-group/titanic-linkage/internal/reconcile"
	"github.com/sells-group/titanic-linkage/internal/store"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Merge matched pairs into the reconciled output table",
	Long: `Merge each Kaggle record with its selected encyclopedia match.
Conflicting ages are kept side by side, never overwritten. Rows whose
unique key or cleaned name collide are both kept and flagged as
speculative duplicates. The output table is regenerated from scratch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return reconcileStage(ctx, st)
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)
}

func reconcileStage(ctx context.Context, st store.Store) error {
	kaggleRecs, err := st.ListPassengers(ctx, model.SourceKaggle)
	if err != nil {
		return eris.Wrap(err, "reconcile: load kaggle records")
	}
	if len(kaggleRecs) == 0 {
		return eris.New("reconcile: kaggle table is empty (run import first)")
	}

	encRecs, err := st.ListPassengers(ctx, model.SourceEncyclopedia)
	if err != nil {
		return eris.Wrap(err, "reconcile: load encyclopedia records")
	}
	encByID := make(map[string]*model.Passenger, len(encRecs))
	for i := range encRecs {
		encByID[encRecs[i].SourceID] = &encRecs[i]
	}

	candidates, err := st.ListCandidates(ctx)
	if err != nil {
		return eris.Wrap(err, "reconcile: load candidates")
	}
	best := make(map[string]string)
	for _, c := range candidates {
		if c.Selected {
			best[c.LeftID] = c.RightID
		}
	}

	rows := reconcile.New().Run(kaggleRecs, encByID, best, candidates)
	if err := st.ReplaceReconciled(ctx, rows); err != nil {
		return eris.Wrap(err, "reconcile: store rows")
	}

	speculative := 0
	for _, r := range rows {
		if r.Speculation {
			speculative++
		}
	}
	fmt.Printf("Reconciled %d rows (%d flagged speculative)\n", len(rows), speculative)
	return nil
}
