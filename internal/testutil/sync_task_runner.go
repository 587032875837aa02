package testutil

import (
	"context"
)

// SyncTaskRunner executes submitted tasks inline so tests see their effects
// without waiting on a goroutine pool.
type SyncTaskRunner struct {
	// Errs collects task failures
	Errs []error
}

func NewSyncTaskRunner() *SyncTaskRunner {
	return &SyncTaskRunner{}
}

func (r *SyncTaskRunner) Submit(name string, fn func(ctx context.Context) error) {
	if err := fn(context.Background()); err != nil {
		r.Errs = append(r.Errs, err)
	}
}
