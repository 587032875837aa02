package testutil

import (
	"context"

	"github.com/plexbill/plexbill/internal/domain/coupon"
	ierr "github.com/plexbill/plexbill/internal/errors"
)

// InMemoryCouponStore implements coupon.Repository
type InMemoryCouponStore struct {
	*InMemoryStore[*coupon.Coupon]
}

func NewInMemoryCouponStore() *InMemoryCouponStore {
	return &InMemoryCouponStore{
		InMemoryStore: NewInMemoryStore[*coupon.Coupon](),
	}
}

func (s *InMemoryCouponStore) Create(ctx context.Context, c *coupon.Coupon) error {
	if existing, err := s.GetByCode(ctx, c.Code); err == nil && existing != nil {
		return ierr.NewError("coupon already exists").
			WithHintf("A coupon with code %s already exists", c.Code).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, c.ID, c)
}

func (s *InMemoryCouponStore) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, couponNotFound(id)
	}
	return c, nil
}

func (s *InMemoryCouponStore) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	coupons, _ := s.InMemoryStore.List(ctx, nil, func(ctx context.Context, c *coupon.Coupon, _ interface{}) bool {
		return c.Code == code
	}, nil)
	if len(coupons) == 0 {
		return nil, ierr.NewError("coupon not found").
			WithHintf("Coupon with code %s does not exist", code).
			Mark(ierr.ErrNotFound)
	}
	return coupons[0], nil
}

func (s *InMemoryCouponStore) List(ctx context.Context) ([]*coupon.Coupon, error) {
	return s.InMemoryStore.List(ctx, nil, nil, func(i, j *coupon.Coupon) bool {
		return i.CreatedAt.Before(j.CreatedAt)
	})
}

func (s *InMemoryCouponStore) Update(ctx context.Context, c *coupon.Coupon) error {
	if err := s.InMemoryStore.Update(ctx, c.ID, c); err != nil {
		return couponNotFound(c.ID)
	}
	return nil
}

func (s *InMemoryCouponStore) IncrementUsage(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	c.UsageCount++
	return s.InMemoryStore.Update(ctx, id, c)
}

func (s *InMemoryCouponStore) UpdatePlanID(ctx context.Context, id string, planID string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	c.PlanID = &planID
	return s.InMemoryStore.Update(ctx, id, c)
}

func (s *InMemoryCouponStore) Deactivate(ctx context.Context, id string) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	c.IsActive = false
	return s.InMemoryStore.Update(ctx, id, c)
}

func couponNotFound(id string) error {
	return ierr.NewError("coupon not found").
		WithHintf("Coupon %s does not exist", id).
		Mark(ierr.ErrNotFound)
}
