package testutil

import (
	"context"

	"github.com/plexbill/plexbill/internal/domain/payment"
	ierr "github.com/plexbill/plexbill/internal/errors"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.Payment]
}

func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.Payment](),
	}
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.Payment) error {
	return s.InMemoryStore.Create(ctx, p.ID, p)
}

func (s *InMemoryPaymentStore) GetByProviderPaymentID(ctx context.Context, pspPaymentID string) (*payment.Payment, error) {
	payments, _ := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, p *payment.Payment, _ interface{}) bool {
		return p.PSPPaymentID == pspPaymentID
	}, nil)
	if len(payments) == 0 {
		return nil, ierr.NewError("payment not found").
			WithHintf("Payment %s does not exist", pspPaymentID).
			Mark(ierr.ErrNotFound)
	}
	return payments[0], nil
}

func (s *InMemoryPaymentStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*payment.Payment, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, p *payment.Payment, _ interface{}) bool {
		return p.SubscriptionID == subscriptionID
	}, func(i, j *payment.Payment) bool {
		return i.PaymentDate < j.PaymentDate
	})
}
