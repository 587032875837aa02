package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/plexbill/plexbill/internal/domain/plan"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/postgres"
)

type planRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewPlanRepo(client postgres.IClient, logger *logger.Logger) *planRepository {
	return &planRepository{client: client, logger: logger}
}

func (r *planRepository) Create(ctx context.Context, p *plan.Plan) error {
	r.logger.Debugw("creating plan", "plan_id", p.ID, "slug", p.Slug)

	_, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		INSERT INTO plans (
			id, name, slug, description, amount, currency, billing_cycle,
			psp_plan_id, psp_price_id, is_custom, is_active, metadata,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :name, :slug, :description, :amount, :currency, :billing_cycle,
			:psp_plan_id, :psp_price_id, :is_custom, :is_active, :metadata,
			:created_at, :updated_at, :created_by, :updated_by
		)`, p)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A plan with this slug already exists").
				WithReportableDetails(map[string]any{"slug": p.Slug}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create plan").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *planRepository) Get(ctx context.Context, id string) (*plan.Plan, error) {
	var p plan.Plan
	err := r.client.Querier(ctx).GetContext(ctx, &p,
		`SELECT * FROM plans WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("plan not found").
				WithHintf("Plan with ID %s was not found", id).
				WithReportableDetails(map[string]any{"plan_id": id}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get plan").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *planRepository) GetBySlug(ctx context.Context, slug string) (*plan.Plan, error) {
	var p plan.Plan
	err := r.client.Querier(ctx).GetContext(ctx, &p,
		`SELECT * FROM plans WHERE slug = $1`, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("plan not found").
				WithHintf("Plan with slug %s was not found", slug).
				WithReportableDetails(map[string]any{"slug": slug}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get plan").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *planRepository) List(ctx context.Context) ([]*plan.Plan, error) {
	var plans []*plan.Plan
	err := r.client.Querier(ctx).SelectContext(ctx, &plans,
		`SELECT * FROM plans WHERE is_active = TRUE ORDER BY created_at DESC`)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list plans").
			Mark(ierr.ErrDatabase)
	}
	return plans, nil
}

func (r *planRepository) Update(ctx context.Context, p *plan.Plan) error {
	result, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		UPDATE plans SET
			name = :name, description = :description, amount = :amount,
			currency = :currency, billing_cycle = :billing_cycle,
			psp_plan_id = :psp_plan_id, psp_price_id = :psp_price_id,
			is_custom = :is_custom, is_active = :is_active, metadata = :metadata,
			updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id`, p)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update plan").
			Mark(ierr.ErrDatabase)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ierr.NewError("plan not found").
			WithHintf("Plan with ID %s was not found", p.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *planRepository) Delete(ctx context.Context, id string) error {
	result, err := r.client.Querier(ctx).ExecContext(ctx,
		`UPDATE plans SET is_active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete plan").
			Mark(ierr.ErrDatabase)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ierr.NewError("plan not found").
			WithHintf("Plan with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
