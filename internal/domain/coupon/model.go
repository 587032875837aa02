package coupon

import (
	"time"

	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
)

// Coupon represents a discount code attached to a catalog plan. A redeemed
// coupon is re-pointed at the minted internal plan so later redemptions of the
// same code resolve to the already discounted plan.
type Coupon struct {
	ID            string             `json:"id" db:"id"`
	PlanID        *string            `json:"plan_id" db:"plan_id"`
	Code          string             `json:"code" db:"code"`
	DiscountType  types.DiscountType `json:"discount_type" db:"discount_type"`
	DiscountValue decimal.Decimal    `json:"discount_value" db:"discount_value"`
	UsageLimit    *int               `json:"usage_limit" db:"usage_limit"`
	UsageCount    int                `json:"usage_count" db:"usage_count"`
	EndDate       *time.Time         `json:"end_date" db:"end_date"`
	IsActive      bool               `json:"is_active" db:"is_active"`
	Metadata      types.Metadata     `json:"metadata" db:"metadata"`
	types.BaseModel
}

// IsRedeemable reports whether the coupon can still be applied. A coupon is
// dead once it is deactivated, expired, or its usage limit is exhausted.
func (c *Coupon) IsRedeemable(now time.Time) bool {
	if !c.IsActive {
		return false
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return false
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return false
	}
	return true
}

// CalculateDiscount returns the discount amount for the given plan amount.
// The result is clamped to [0, planAmount] so a flat coupon larger than the
// plan price yields a free plan rather than a negative charge.
func (c *Coupon) CalculateDiscount(planAmount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch c.DiscountType {
	case types.DiscountTypePercentage:
		discount = planAmount.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
	case types.DiscountTypeFlat:
		discount = c.DiscountValue
	default:
		return decimal.Zero
	}

	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(planAmount) {
		return planAmount
	}
	return discount
}
