package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/titanic-linkage/internal/config"
	"github.com/sells-group/titanic-linkage/internal/fetcher"
	"github.com/sells-group/titanic-linkage/internal/resilience"
	"github.com/sells-group/titanic-linkage/internal/scrape"
	"github.com/sells-group/titanic-linkage/internal/store"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "titanic-linkage",
	Short: "Cross-source Titanic passenger record linkage",
	Long:  "Scrapes Encyclopedia Titanica, imports the Kaggle competition CSVs, and links the two sources into one reconciled passenger dataset.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openStore opens the configured SQLite database with migrations applied.
func openStore(ctx context.Context) (*store.SQLiteStore, error) {
	s, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// newEngine builds the scrape engine from config.
func newEngine(st store.Store) *scrape.Engine {
	client := fetcher.New(st, fetcher.Options{
		UserAgent:   cfg.Scrape.UserAgent,
		RateLimit:   rate.Limit(cfg.Scrape.RateLimit),
		MinDelay:    cfg.Scrape.MinDelay(),
		MaxDelay:    cfg.Scrape.MaxDelay(),
		Concurrency: cfg.Scrape.Concurrency,
		Retry: resilience.RetryConfig{
			MaxAttempts: cfg.Scrape.MaxRetries,
		},
	})
	return scrape.New(st, client, scrape.Options{
		BaseURL:      cfg.Scrape.BaseURL,
		ClassPages:   cfg.Scrape.ClassPages(),
		Limit:        cfg.Scrape.Limit,
		GivenNameLen: cfg.Match.GivenNameLen,
		SurnameLen:   cfg.Match.SurnameLen,
	})
}
