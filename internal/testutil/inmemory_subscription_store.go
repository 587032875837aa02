package testutil

import (
	"context"

	"github.com/plexbill/plexbill/internal/domain/subscription"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/types"
)

// InMemorySubscriptionStore implements subscription.Repository. It enforces
// the one-active-paid-subscription constraint the way the partial unique
// index does in postgres.
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func sameOrg(a, b *string) bool {
	av, bv := "", ""
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	return av == bv
}

func (s *InMemorySubscriptionStore) Create(ctx context.Context, sub *subscription.Subscription) error {
	if sub.IsActive && !sub.IsBasic {
		actives, _ := s.GetActiveByIdentity(ctx, sub.UserID, sub.OrgID)
		for _, active := range actives {
			if !active.IsBasic {
				return ierr.NewError("active subscription exists").
					WithHint("The identity already has an active paid subscription").
					Mark(ierr.ErrAlreadyExists)
			}
		}
	}
	return s.InMemoryStore.Create(ctx, sub.ID, sub)
}

func (s *InMemorySubscriptionStore) Get(ctx context.Context, id string) (*subscription.Subscription, error) {
	sub, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, subscriptionNotFound(id)
	}
	return sub, nil
}

func (s *InMemorySubscriptionStore) GetByProviderSubscriptionID(ctx context.Context, pspSubscriptionID string) (*subscription.Subscription, error) {
	subs, _ := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.PSPSubscriptionID != nil && *sub.PSPSubscriptionID == pspSubscriptionID
	}, nil)
	if len(subs) == 0 {
		return nil, subscriptionNotFound(pspSubscriptionID)
	}
	return subs[0], nil
}

func (s *InMemorySubscriptionStore) GetActiveByIdentity(ctx context.Context, userID string, orgID *string) ([]*subscription.Subscription, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.IsActive && sub.UserID == userID && sameOrg(sub.OrgID, orgID)
	}, func(i, j *subscription.Subscription) bool {
		return i.CreatedAt.After(j.CreatedAt)
	})
}

func (s *InMemorySubscriptionStore) ListByIdentity(ctx context.Context, userID string, orgID *string) ([]*subscription.Subscription, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.UserID == userID && sameOrg(sub.OrgID, orgID)
	}, func(i, j *subscription.Subscription) bool {
		return i.CreatedAt.After(j.CreatedAt)
	})
}

func (s *InMemorySubscriptionStore) Update(ctx context.Context, sub *subscription.Subscription) error {
	if err := s.InMemoryStore.Update(ctx, sub.ID, sub); err != nil {
		return subscriptionNotFound(sub.ID)
	}
	return nil
}

func (s *InMemorySubscriptionStore) HasTakenTrial(ctx context.Context, userID string, orgID *string) (bool, error) {
	subs, _ := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, sub *subscription.Subscription, _ interface{}) bool {
		return sub.IsTrial && sub.UserID == userID && sameOrg(sub.OrgID, orgID)
	}, nil)
	return len(subs) > 0, nil
}

func subscriptionNotFound(id string) error {
	return ierr.NewError("subscription not found").
		WithHintf("Subscription %s does not exist", id).
		Mark(ierr.ErrNotFound)
}

// InMemoryCustomerStore implements subscription.CustomerRepository
type InMemoryCustomerStore struct {
	*InMemoryStore[*subscription.Customer]
}

func NewInMemoryCustomerStore() *InMemoryCustomerStore {
	return &InMemoryCustomerStore{
		InMemoryStore: NewInMemoryStore[*subscription.Customer](),
	}
}

func (s *InMemoryCustomerStore) Create(ctx context.Context, c *subscription.Customer) error {
	return s.InMemoryStore.Create(ctx, c.ID, c)
}

func (s *InMemoryCustomerStore) GetByIdentity(ctx context.Context, userID string, orgID *string, psp types.ProviderName) (*subscription.Customer, error) {
	customers, _ := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, c *subscription.Customer, _ interface{}) bool {
		return c.UserID == userID && sameOrg(c.OrgID, orgID) && c.PSPName == psp
	}, nil)
	if len(customers) == 0 {
		return nil, ierr.NewError("customer not found").
			WithHint("No provider customer record for the identity").
			Mark(ierr.ErrNotFound)
	}
	return customers[0], nil
}

// InMemoryDowngradeStore implements subscription.DowngradeRepository
type InMemoryDowngradeStore struct {
	*InMemoryStore[*subscription.ScheduledDowngrade]
}

func NewInMemoryDowngradeStore() *InMemoryDowngradeStore {
	return &InMemoryDowngradeStore{
		InMemoryStore: NewInMemoryStore[*subscription.ScheduledDowngrade](),
	}
}

func (s *InMemoryDowngradeStore) Create(ctx context.Context, d *subscription.ScheduledDowngrade) error {
	return s.InMemoryStore.Create(ctx, d.ID, d)
}

func (s *InMemoryDowngradeStore) GetExpiredTrials(ctx context.Context, asOf int64) ([]*subscription.ScheduledDowngrade, error) {
	return s.InMemoryStore.List(ctx, nil, func(ctx context.Context, d *subscription.ScheduledDowngrade, _ interface{}) bool {
		return d.Status == types.ScheduledDowngradeStatusPending && d.ScheduledAt <= asOf
	}, func(i, j *subscription.ScheduledDowngrade) bool {
		return i.ScheduledAt < j.ScheduledAt
	})
}

func (s *InMemoryDowngradeStore) MarkCompleted(ctx context.Context, id string) error {
	d, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return ierr.NewError("scheduled downgrade not found").
			WithHintf("Scheduled downgrade %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	d.Status = types.ScheduledDowngradeStatusCompleted
	return s.InMemoryStore.Update(ctx, id, d)
}
