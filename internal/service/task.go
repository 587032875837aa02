package service

import (
	"context"
	"time"

	"github.com/plexbill/plexbill/internal/logger"
	"github.com/sourcegraph/conc/pool"
)

const taskTimeout = 30 * time.Second

// TaskRunner schedules fire-and-forget work. Submitted tasks run with
// at-least-once semantics relative to the submitting request and no ordering
// guarantee; callers must not depend on completion before their response is
// written.
type TaskRunner interface {
	Submit(name string, fn func(ctx context.Context) error)
}

type poolTaskRunner struct {
	pool   *pool.Pool
	logger *logger.Logger
}

// NewTaskRunner creates a bounded background runner
func NewTaskRunner(logger *logger.Logger) TaskRunner {
	return &poolTaskRunner{
		pool:   pool.New().WithMaxGoroutines(8),
		logger: logger,
	}
}

func (r *poolTaskRunner) Submit(name string, fn func(ctx context.Context) error) {
	r.pool.Go(func() {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			r.logger.Errorw("background task failed", "task", name, "error", err)
		}
	})
}
