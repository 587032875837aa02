package invoice

import (
	"context"
)

// Repository defines the interface for invoice data access
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByProviderInvoiceID(ctx context.Context, pspInvoiceID string) (*Invoice, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*Invoice, error)
	Update(ctx context.Context, inv *Invoice) error
}
