// Package store persists pipeline stage outputs so each stage can be
// rerun independently.
package store

import (
	"context"

	"github.com/sells-group/titanic-linkage/internal/model"
)

// Counts summarizes table sizes and match outcomes for the status command.
type Counts struct {
	RawPages     int
	Kaggle       int
	Encyclopedia int
	Candidates   int
	Selected     int
	Ambiguous    int
	Reconciled   int
	Speculative  int

	// ByMethod counts selected matches per match method.
	ByMethod map[model.MatchMethod]int
}

// Store is the persistence boundary for the pipeline.
type Store interface {
	Migrate(ctx context.Context) error
	Close() error

	// Raw page cache. Row existence marks a URL as already fetched.
	GetRawPage(ctx context.Context, url string) (*model.RawPage, error)
	PutRawPage(ctx context.Context, page model.RawPage) error
	ListRawPages(ctx context.Context) ([]model.RawPage, error)

	// Passenger tables, one per source. Replace truncates and reloads
	// atomically so a stage rerun never leaves a partial table.
	ReplacePassengers(ctx context.Context, source model.Source, recs []model.Passenger) error
	ListPassengers(ctx context.Context, source model.Source) ([]model.Passenger, error)

	ReplaceCandidates(ctx context.Context, cands []model.Candidate) error
	ListCandidates(ctx context.Context) ([]model.Candidate, error)

	ReplaceReconciled(ctx context.Context, rows []model.Reconciled) error
	ListReconciled(ctx context.Context) ([]model.Reconciled, error)

	Counts(ctx context.Context) (*Counts, error)
}
