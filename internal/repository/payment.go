package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/plexbill/plexbill/internal/domain/payment"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/postgres"
)

type paymentRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewPaymentRepo(client postgres.IClient, logger *logger.Logger) *paymentRepository {
	return &paymentRepository{client: client, logger: logger}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	_, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		INSERT INTO payments (
			id, subscription_id, user_id, org_id, payment_date, amount,
			currency, psp_payment_id, psp_name, status,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :subscription_id, :user_id, :org_id, :payment_date, :amount,
			:currency, :psp_payment_id, :psp_name, :status,
			:created_at, :updated_at, :created_by, :updated_by
		)`, p)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create payment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) GetByProviderPaymentID(ctx context.Context, pspPaymentID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.client.Querier(ctx).GetContext(ctx, &p,
		`SELECT * FROM payments WHERE psp_payment_id = $1`, pspPaymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("payment not found").
				WithHintf("No payment for provider payment %s", pspPaymentID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get payment").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *paymentRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	err := r.client.Querier(ctx).SelectContext(ctx, &payments, `
		SELECT * FROM payments WHERE subscription_id = $1
		ORDER BY payment_date DESC`, subscriptionID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list payments").
			Mark(ierr.ErrDatabase)
	}
	return payments, nil
}
