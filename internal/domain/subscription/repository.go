package subscription

import (
	"context"

	"github.com/plexbill/plexbill/internal/types"
)

// Repository defines the interface for subscription data access
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	Get(ctx context.Context, id string) (*Subscription, error)
	GetByProviderSubscriptionID(ctx context.Context, pspSubscriptionID string) (*Subscription, error)
	// GetActiveByIdentity returns the identity's active subscriptions,
	// basic included, newest first.
	GetActiveByIdentity(ctx context.Context, userID string, orgID *string) ([]*Subscription, error)
	ListByIdentity(ctx context.Context, userID string, orgID *string) ([]*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	// HasTakenTrial reports whether the identity ever held a trial
	// subscription, active or not.
	HasTakenTrial(ctx context.Context, userID string, orgID *string) (bool, error)
}

// CustomerRepository defines the interface for provider customer records
type CustomerRepository interface {
	Create(ctx context.Context, customer *Customer) error
	GetByIdentity(ctx context.Context, userID string, orgID *string, psp types.ProviderName) (*Customer, error)
}

// DowngradeRepository defines the interface for scheduled downgrade rows
type DowngradeRepository interface {
	Create(ctx context.Context, d *ScheduledDowngrade) error
	// GetExpiredTrials returns pending downgrades whose scheduled_at is at
	// or before the given unix time.
	GetExpiredTrials(ctx context.Context, asOf int64) ([]*ScheduledDowngrade, error)
	MarkCompleted(ctx context.Context, id string) error
}
