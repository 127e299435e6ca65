package store

import (
	"context"

	"github.com/nhle/inboxdigest/internal/model"
)

// RunFilter controls filtering and pagination for run log queries.
type RunFilter struct {
	Folder  *string
	Outcome *model.RunOutcome
	Limit   int
	Offset  int
}

// RunStore defines the persistence interface for the fetch run log. Only
// cycle bookkeeping is stored; fetched messages never are.
type RunStore interface {
	RecordRun(ctx context.Context, run model.FetchRun) (model.FetchRun, error)
	ListRuns(ctx context.Context, opts RunFilter) ([]model.FetchRun, error)
	LastRun(ctx context.Context) (*model.FetchRun, error)
	PruneRuns(ctx context.Context, keep int) (int64, error)
	Close() error
}
