package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/plexbill/plexbill/internal/domain/coupon"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/postgres"
)

type couponRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewCouponRepo(client postgres.IClient, logger *logger.Logger) *couponRepository {
	return &couponRepository{client: client, logger: logger}
}

func (r *couponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	r.logger.Debugw("creating coupon", "coupon_id", c.ID, "code", c.Code)

	_, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		INSERT INTO plan_coupons (
			id, plan_id, code, discount_type, discount_value, usage_limit,
			usage_count, end_date, is_active, metadata,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :plan_id, :code, :discount_type, :discount_value, :usage_limit,
			:usage_count, :end_date, :is_active, :metadata,
			:created_at, :updated_at, :created_by, :updated_by
		)`, c)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("A coupon with this code already exists").
				WithReportableDetails(map[string]any{"code": c.Code}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create coupon").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *couponRepository) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	err := r.client.Querier(ctx).GetContext(ctx, &c,
		`SELECT * FROM plan_coupons WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("coupon not found").
				WithHintf("Coupon with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get coupon").
			Mark(ierr.ErrDatabase)
	}
	return &c, nil
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	err := r.client.Querier(ctx).GetContext(ctx, &c,
		`SELECT * FROM plan_coupons WHERE code = $1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("coupon not found").
				WithHintf("Coupon with code %s was not found", code).
				WithReportableDetails(map[string]any{"code": code}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get coupon").
			Mark(ierr.ErrDatabase)
	}
	return &c, nil
}

func (r *couponRepository) List(ctx context.Context) ([]*coupon.Coupon, error) {
	var coupons []*coupon.Coupon
	err := r.client.Querier(ctx).SelectContext(ctx, &coupons,
		`SELECT * FROM plan_coupons ORDER BY created_at DESC`)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list coupons").
			Mark(ierr.ErrDatabase)
	}
	return coupons, nil
}

func (r *couponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	result, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		UPDATE plan_coupons SET
			plan_id = :plan_id, discount_type = :discount_type,
			discount_value = :discount_value, usage_limit = :usage_limit,
			usage_count = :usage_count, end_date = :end_date,
			is_active = :is_active, metadata = :metadata,
			updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id`, c)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update coupon").
			Mark(ierr.ErrDatabase)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ierr.NewError("coupon not found").
			WithHintf("Coupon with ID %s was not found", c.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

// IncrementUsage bumps usage_count atomically so concurrent redemptions
// cannot lose counts.
func (r *couponRepository) IncrementUsage(ctx context.Context, id string) error {
	result, err := r.client.Querier(ctx).ExecContext(ctx,
		`UPDATE plan_coupons SET usage_count = usage_count + 1, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to increment coupon usage").
			Mark(ierr.ErrDatabase)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ierr.NewError("coupon not found").
			WithHintf("Coupon with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *couponRepository) UpdatePlanID(ctx context.Context, id string, planID string) error {
	result, err := r.client.Querier(ctx).ExecContext(ctx,
		`UPDATE plan_coupons SET plan_id = $2, updated_at = $3 WHERE id = $1`,
		id, planID, time.Now().UTC())
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update coupon plan").
			Mark(ierr.ErrDatabase)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ierr.NewError("coupon not found").
			WithHintf("Coupon with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *couponRepository) Deactivate(ctx context.Context, id string) error {
	result, err := r.client.Querier(ctx).ExecContext(ctx,
		`UPDATE plan_coupons SET is_active = FALSE, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to deactivate coupon").
			Mark(ierr.ErrDatabase)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ierr.NewError("coupon not found").
			WithHintf("Coupon with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
