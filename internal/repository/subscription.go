package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/plexbill/plexbill/internal/domain/subscription"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/postgres"
)

type subscriptionRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewSubscriptionRepo(client postgres.IClient, logger *logger.Logger) *subscriptionRepository {
	return &subscriptionRepository{client: client, logger: logger}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *subscription.Subscription) error {
	r.logger.Debugw("creating subscription",
		"subscription_id", sub.ID,
		"user_id", sub.UserID,
		"plan_id", sub.PlanID)

	_, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		INSERT INTO subscriptions (
			id, user_id, org_id, plan_id, start_date, end_date, is_active,
			is_trial, is_basic, cancel_at_cycle_end, billing_cycle, amount,
			currency, psp_name, psp_subscription_id, status,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :user_id, :org_id, :plan_id, :start_date, :end_date, :is_active,
			:is_trial, :is_basic, :cancel_at_cycle_end, :billing_cycle, :amount,
			:currency, :psp_name, :psp_subscription_id, :status,
			:created_at, :updated_at, :created_by, :updated_by
		)`, sub)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An active paid subscription already exists for this account").
				WithReportableDetails(map[string]any{
					"user_id": sub.UserID,
					"org_id":  sub.OrgID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := r.client.Querier(ctx).GetContext(ctx, &sub,
		`SELECT * FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("subscription not found").
				WithHintf("Subscription with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByProviderSubscriptionID(ctx context.Context, pspSubscriptionID string) (*subscription.Subscription, error) {
	var sub subscription.Subscription
	err := r.client.Querier(ctx).GetContext(ctx, &sub,
		`SELECT * FROM subscriptions WHERE psp_subscription_id = $1`, pspSubscriptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("subscription not found").
				WithHintf("No subscription for provider subscription %s", pspSubscriptionID).
				WithReportableDetails(map[string]any{"psp_subscription_id": pspSubscriptionID}).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get subscription").
			Mark(ierr.ErrDatabase)
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetActiveByIdentity(ctx context.Context, userID string, orgID *string) ([]*subscription.Subscription, error) {
	var subs []*subscription.Subscription
	err := r.client.Querier(ctx).SelectContext(ctx, &subs, `
		SELECT * FROM subscriptions
		WHERE user_id = $1 AND COALESCE(org_id, '') = COALESCE($2, '') AND is_active = TRUE
		ORDER BY created_at DESC`, userID, orgID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get active subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func (r *subscriptionRepository) ListByIdentity(ctx context.Context, userID string, orgID *string) ([]*subscription.Subscription, error) {
	var subs []*subscription.Subscription
	err := r.client.Querier(ctx).SelectContext(ctx, &subs, `
		SELECT * FROM subscriptions
		WHERE user_id = $1 AND COALESCE(org_id, '') = COALESCE($2, '')
		ORDER BY created_at DESC`, userID, orgID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func (r *subscriptionRepository) Update(ctx context.Context, sub *subscription.Subscription) error {
	result, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		UPDATE subscriptions SET
			plan_id = :plan_id, start_date = :start_date, end_date = :end_date,
			is_active = :is_active, is_trial = :is_trial, is_basic = :is_basic,
			cancel_at_cycle_end = :cancel_at_cycle_end,
			billing_cycle = :billing_cycle, amount = :amount,
			currency = :currency, psp_name = :psp_name,
			psp_subscription_id = :psp_subscription_id, status = :status,
			updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id`, sub)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("An active paid subscription already exists for this account").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to update subscription").
			Mark(ierr.ErrDatabase)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ierr.NewError("subscription not found").
			WithHintf("Subscription with ID %s was not found", sub.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *subscriptionRepository) HasTakenTrial(ctx context.Context, userID string, orgID *string) (bool, error) {
	var exists bool
	err := r.client.Querier(ctx).GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE user_id = $1 AND COALESCE(org_id, '') = COALESCE($2, '') AND is_trial = TRUE
		)`, userID, orgID)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check trial history").
			Mark(ierr.ErrDatabase)
	}
	return exists, nil
}
