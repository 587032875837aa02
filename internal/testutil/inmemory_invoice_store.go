package testutil

import (
	"context"

	"github.com/plexbill/plexbill/internal/domain/invoice"
	ierr "github.com/plexbill/plexbill/internal/errors"
)

// InMemoryInvoiceStore implements invoice.Repository
type InMemoryInvoiceStore struct {
	*InMemoryStore[*invoice.Invoice]
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*invoice.Invoice](),
	}
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *invoice.Invoice) error {
	return s.InMemoryStore.Create(ctx, inv.ID, inv)
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	inv, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, invoiceNotFound(id)
	}
	return inv, nil
}

func (s *InMemoryInvoiceStore) GetByProviderInvoiceID(ctx context.Context, pspInvoiceID string) (*invoice.Invoice, error) {
	invoices, _ := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, inv *invoice.Invoice, _ interface{}) bool {
		return inv.PSPInvoiceID != nil && *inv.PSPInvoiceID == pspInvoiceID
	}, nil)
	if len(invoices) == 0 {
		return nil, invoiceNotFound(pspInvoiceID)
	}
	return invoices[0], nil
}

func (s *InMemoryInvoiceStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]*invoice.Invoice, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, inv *invoice.Invoice, _ interface{}) bool {
		return inv.SubscriptionID == subscriptionID
	}, func(i, j *invoice.Invoice) bool {
		return i.CreatedAt.After(j.CreatedAt)
	})
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *invoice.Invoice) error {
	if err := s.InMemoryStore.Update(ctx, inv.ID, inv); err != nil {
		return invoiceNotFound(inv.ID)
	}
	return nil
}

func invoiceNotFound(id string) error {
	return ierr.NewError("invoice not found").
		WithHintf("Invoice %s does not exist", id).
		Mark(ierr.ErrNotFound)
}
