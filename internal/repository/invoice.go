package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/plexbill/plexbill/internal/domain/invoice"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/postgres"
)

type invoiceRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewInvoiceRepo(client postgres.IClient, logger *logger.Logger) *invoiceRepository {
	return &invoiceRepository{client: client, logger: logger}
}

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	_, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		INSERT INTO invoices (
			id, subscription_id, psp_invoice_id, transaction_id, user_id, org_id,
			amount, currency, status, next_due_date, short_url, psp_name,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :subscription_id, :psp_invoice_id, :transaction_id, :user_id, :org_id,
			:amount, :currency, :status, :next_due_date, :short_url, :psp_name,
			:created_at, :updated_at, :created_by, :updated_by
		)`, inv)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create invoice").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := r.client.Querier(ctx).GetContext(ctx, &inv,
		`SELECT * FROM invoices WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("invoice not found").
				WithHintf("Invoice with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}
	return &inv, nil
}

func (r *invoiceRepository) GetByProviderInvoiceID(ctx context.Context, pspInvoiceID string) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := r.client.Querier(ctx).GetContext(ctx, &inv,
		`SELECT * FROM invoices WHERE psp_invoice_id = $1`, pspInvoiceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("invoice not found").
				WithHintf("No invoice for provider invoice %s", pspInvoiceID).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get invoice").
			Mark(ierr.ErrDatabase)
	}
	return &inv, nil
}

func (r *invoiceRepository) ListBySubscription(ctx context.Context, subscriptionID string) ([]*invoice.Invoice, error) {
	var invoices []*invoice.Invoice
	err := r.client.Querier(ctx).SelectContext(ctx, &invoices, `
		SELECT * FROM invoices WHERE subscription_id = $1
		ORDER BY created_at DESC`, subscriptionID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	return invoices, nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	result, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		UPDATE invoices SET
			psp_invoice_id = :psp_invoice_id, transaction_id = :transaction_id,
			amount = :amount, currency = :currency, status = :status,
			next_due_date = :next_due_date, short_url = :short_url,
			updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id`, inv)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update invoice").
			Mark(ierr.ErrDatabase)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ierr.NewError("invoice not found").
			WithHintf("Invoice with ID %s was not found", inv.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}
