package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/titanic-linkage/internal/match"
	"github.com/sells-group/titanic-linkage/internal/model"
	"github.com/sells-group/titanic-linkage/internal/store"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Link Kaggle records to encyclopedia records",
	Long: `Join the two passenger tables: an exact blocking-key phase first,
then a fuzzy name-similarity phase for records no key could place.
Exact-phase key ties are resolved by match.tie_policy ("first" picks
the lowest source ID, "review" selects nothing and flags the tie).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return matchStage(ctx, st)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
}

func matchStage(ctx context.Context, st store.Store) error {
	tie := match.TiePolicy(cfg.Match.TiePolicy)
	if tie != match.TieFirst && tie != match.TieReview {
		return eris.Errorf("match: unknown tie_policy %q (want \"first\" or \"review\")", cfg.Match.TiePolicy)
	}

	left, err := st.ListPassengers(ctx, model.SourceKaggle)
	if err != nil {
		return eris.Wrap(err, "match: load kaggle records")
	}
	right, err := st.ListPassengers(ctx, model.SourceEncyclopedia)
	if err != nil {
		return eris.Wrap(err, "match: load encyclopedia records")
	}
	if len(left) == 0 || len(right) == 0 {
		return eris.New("match: both passenger tables must be loaded first (run import and extract)")
	}

	m := match.New(match.Config{
		Threshold: cfg.Match.Threshold,
		Tie:       tie,
	})
	res := m.Match(left, right)

	if err := st.ReplaceCandidates(ctx, res.Candidates); err != nil {
		return eris.Wrap(err, "match: store candidates")
	}

	fmt.Printf("Matched %d of %d Kaggle records (%d candidates, %d ambiguous)\n",
		len(res.Best), len(left), len(res.Candidates), len(res.Ambiguous))
	return nil
}
