package payment

import (
	"context"
)

// Repository defines the interface for payment data access
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByProviderPaymentID(ctx context.Context, pspPaymentID string) (*Payment, error)
	ListBySubscription(ctx context.Context, subscriptionID string) ([]*Payment, error)
}
