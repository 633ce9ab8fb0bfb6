package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/titanic-linkage/internal/store"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Scrape the class listings and fetch every passenger page",
	Long: `Walk the first/second/third class listing pages, collect individual
passenger URLs, and fetch each page into the raw page cache. Pages
already cached are skipped, so an interrupted run resumes where it
stopped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
			cfg.Scrape.Limit = limit
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return fetchStage(ctx, st)
	},
}

func init() {
	fetchCmd.Flags().Int("limit", 0, "cap the number of passenger pages fetched (0 = all)")
	rootCmd.AddCommand(fetchCmd)
}

func fetchStage(ctx context.Context, st store.Store) error {
	res, err := newEngine(st).Fetch(ctx)
	if err != nil {
		return eris.Wrap(err, "fetch")
	}
	fmt.Printf("Fetched %d pages (%d already cached, %d failed)\n",
		res.Fetched, res.Cached, res.Failed)
	return nil
}
