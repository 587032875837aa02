package dto

import (
	"context"
	"time"

	"github.com/plexbill/plexbill/internal/domain/coupon"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/plexbill/plexbill/internal/validator"
	"github.com/shopspring/decimal"
)

type CreateCouponRequest struct {
	PlanID        *string            `json:"plan_id"`
	Code          string             `json:"code" validate:"required"`
	DiscountType  types.DiscountType `json:"discount_type" validate:"required"`
	DiscountValue decimal.Decimal    `json:"discount_value" validate:"required"`
	UsageLimit    *int               `json:"usage_limit"`
	EndDate       *time.Time         `json:"end_date"`
	Metadata      types.Metadata     `json:"metadata"`
}

func (r *CreateCouponRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	switch r.DiscountType {
	case types.DiscountTypePercentage, types.DiscountTypeFlat:
	default:
		return ierr.NewError("invalid discount type").
			WithHintf("Discount type %s is not supported", r.DiscountType).
			Mark(ierr.ErrValidation)
	}
	if r.DiscountValue.IsNegative() {
		return ierr.NewError("invalid discount value").
			WithHint("Discount value cannot be negative").
			Mark(ierr.ErrValidation)
	}
	if r.UsageLimit != nil && *r.UsageLimit <= 0 {
		return ierr.NewError("invalid usage limit").
			WithHint("Usage limit must be positive when set").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *CreateCouponRequest) ToCoupon(ctx context.Context) *coupon.Coupon {
	return &coupon.Coupon{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_COUPON),
		PlanID:        r.PlanID,
		Code:          r.Code,
		DiscountType:  r.DiscountType,
		DiscountValue: r.DiscountValue,
		UsageLimit:    r.UsageLimit,
		EndDate:       r.EndDate,
		IsActive:      true,
		Metadata:      r.Metadata,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

type CouponResponse struct {
	*coupon.Coupon
}

type ListCouponsResponse struct {
	Items []*CouponResponse `json:"items"`
	Total int               `json:"total"`
}
