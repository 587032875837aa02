package coupon

import (
	"context"
)

// Repository defines the interface for coupon data access
type Repository interface {
	Create(ctx context.Context, coupon *Coupon) error
	Get(ctx context.Context, id string) (*Coupon, error)
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context) ([]*Coupon, error)
	Update(ctx context.Context, coupon *Coupon) error
	IncrementUsage(ctx context.Context, id string) error
	UpdatePlanID(ctx context.Context, id string, planID string) error
	Deactivate(ctx context.Context, id string) error
}
