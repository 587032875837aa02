package repository

import (
	"context"
	"time"

	"github.com/plexbill/plexbill/internal/domain/subscription"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/postgres"
	"github.com/plexbill/plexbill/internal/types"
)

type downgradeRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewDowngradeRepo(client postgres.IClient, logger *logger.Logger) *downgradeRepository {
	return &downgradeRepository{client: client, logger: logger}
}

func (r *downgradeRepository) Create(ctx context.Context, d *subscription.ScheduledDowngrade) error {
	_, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		INSERT INTO scheduled_downgrades (
			id, user_id, org_id, scheduled_at, status,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :user_id, :org_id, :scheduled_at, :status,
			:created_at, :updated_at, :created_by, :updated_by
		)`, d)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to schedule downgrade").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *downgradeRepository) GetExpiredTrials(ctx context.Context, asOf int64) ([]*subscription.ScheduledDowngrade, error) {
	var downgrades []*subscription.ScheduledDowngrade
	err := r.client.Querier(ctx).SelectContext(ctx, &downgrades, `
		SELECT * FROM scheduled_downgrades
		WHERE status = $1 AND scheduled_at <= $2
		ORDER BY scheduled_at`, types.ScheduledDowngradeStatusPending, asOf)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list expired trials").
			Mark(ierr.ErrDatabase)
	}
	return downgrades, nil
}

func (r *downgradeRepository) MarkCompleted(ctx context.Context, id string) error {
	result, err := r.client.Querier(ctx).ExecContext(ctx,
		`UPDATE scheduled_downgrades SET status = $2, updated_at = $3 WHERE id = $1`,
		id, types.ScheduledDowngradeStatusCompleted, time.Now().UTC())
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark downgrade completed").
			Mark(ierr.ErrDatabase)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ierr.NewError("scheduled downgrade not found").
			WithHintf("Scheduled downgrade %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
