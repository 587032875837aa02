package service

import (
	"context"
	"time"

	"github.com/plexbill/plexbill/internal/api/dto"
	"github.com/plexbill/plexbill/internal/domain/coupon"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/shopspring/decimal"
)

// CouponService manages coupon lifecycle and redemption validation
type CouponService interface {
	CreateCoupon(ctx context.Context, req *dto.CreateCouponRequest) (*dto.CouponResponse, error)
	GetCoupon(ctx context.Context, id string) (*dto.CouponResponse, error)
	ListCoupons(ctx context.Context) (*dto.ListCouponsResponse, error)
	DeactivateCoupon(ctx context.Context, id string) error

	// ValidateAndApplyCoupon resolves the coupon, checks redeemability and
	// returns the discount bounded to the plan amount. A nil couponID means
	// no coupon: zero discount, nil coupon, no error.
	ValidateAndApplyCoupon(ctx context.Context, couponID *string, planAmount decimal.Decimal) (decimal.Decimal, *coupon.Coupon, error)

	// IncrementUsage records a successful redemption
	IncrementUsage(ctx context.Context, id string) error
}

type couponService struct {
	ServiceParams
}

// NewCouponService creates a new coupon service
func NewCouponService(params ServiceParams) CouponService {
	return &couponService{ServiceParams: params}
}

func (s *couponService) CreateCoupon(ctx context.Context, req *dto.CreateCouponRequest) (*dto.CouponResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.PlanID != nil {
		if _, err := s.PlanRepo.Get(ctx, *req.PlanID); err != nil {
			return nil, err
		}
	}

	c := req.ToCoupon(ctx)
	if err := s.CouponRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	s.Logger.Infow("coupon created", "coupon_id", c.ID, "code", c.Code)
	return &dto.CouponResponse{Coupon: c}, nil
}

func (s *couponService) GetCoupon(ctx context.Context, id string) (*dto.CouponResponse, error) {
	c, err := s.CouponRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.CouponResponse{Coupon: c}, nil
}

func (s *couponService) ListCoupons(ctx context.Context) (*dto.ListCouponsResponse, error) {
	coupons, err := s.CouponRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.CouponResponse, len(coupons))
	for i, c := range coupons {
		items[i] = &dto.CouponResponse{Coupon: c}
	}
	return &dto.ListCouponsResponse{Items: items, Total: len(items)}, nil
}

func (s *couponService) DeactivateCoupon(ctx context.Context, id string) error {
	return s.CouponRepo.Deactivate(ctx, id)
}

func (s *couponService) ValidateAndApplyCoupon(ctx context.Context, couponID *string, planAmount decimal.Decimal) (decimal.Decimal, *coupon.Coupon, error) {
	if couponID == nil || *couponID == "" {
		return decimal.Zero, nil, nil
	}

	c, err := s.CouponRepo.Get(ctx, *couponID)
	if err != nil {
		return decimal.Zero, nil, err
	}

	now := time.Now().UTC()
	if !c.IsActive || (c.EndDate != nil && now.After(*c.EndDate)) {
		return decimal.Zero, nil, ierr.NewError("coupon is expired or inactive").
			WithHint("The coupon can no longer be redeemed").
			WithReportableDetails(map[string]any{"coupon_id": c.ID}).
			Mark(ierr.ErrValidation)
	}

	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return decimal.Zero, nil, ierr.NewError("coupon usage limit exceeded").
			WithHint("The coupon has reached its redemption limit").
			WithReportableDetails(map[string]any{"coupon_id": c.ID}).
			Mark(ierr.ErrValidation)
	}

	return c.CalculateDiscount(planAmount), c, nil
}

func (s *couponService) IncrementUsage(ctx context.Context, id string) error {
	return s.CouponRepo.IncrementUsage(ctx, id)
}
