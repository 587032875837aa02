package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/plexbill/plexbill/internal/domain/subscription"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/postgres"
	"github.com/plexbill/plexbill/internal/types"
)

type customerRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewCustomerRepo(client postgres.IClient, logger *logger.Logger) *customerRepository {
	return &customerRepository{client: client, logger: logger}
}

func (r *customerRepository) Create(ctx context.Context, c *subscription.Customer) error {
	_, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		INSERT INTO customers (
			id, customer_id, psp_name, user_id, org_id,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :customer_id, :psp_name, :user_id, :org_id,
			:created_at, :updated_at, :created_by, :updated_by
		)`, c)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create customer").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *customerRepository) GetByIdentity(ctx context.Context, userID string, orgID *string, psp types.ProviderName) (*subscription.Customer, error) {
	var c subscription.Customer
	err := r.client.Querier(ctx).GetContext(ctx, &c, `
		SELECT * FROM customers
		WHERE user_id = $1 AND COALESCE(org_id, '') = COALESCE($2, '') AND psp_name = $3
		ORDER BY created_at DESC LIMIT 1`, userID, orgID, psp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("customer not found").
				WithHint("No provider customer record for this account").
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get customer").
			Mark(ierr.ErrDatabase)
	}
	return &c, nil
}
