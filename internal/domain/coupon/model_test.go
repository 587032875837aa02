package coupon

import (
	"testing"
	"time"

	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateDiscount(t *testing.T) {
	planAmount := decimal.NewFromInt(1000)

	tests := []struct {
		name     string
		coupon   Coupon
		expected decimal.Decimal
	}{
		{
			name: "percentage discount",
			coupon: Coupon{
				DiscountType:  types.DiscountTypePercentage,
				DiscountValue: decimal.NewFromInt(25),
			},
			expected: decimal.NewFromInt(250),
		},
		{
			name: "flat discount",
			coupon: Coupon{
				DiscountType:  types.DiscountTypeFlat,
				DiscountValue: decimal.NewFromInt(300),
			},
			expected: decimal.NewFromInt(300),
		},
		{
			name: "flat discount larger than plan amount is clamped",
			coupon: Coupon{
				DiscountType:  types.DiscountTypeFlat,
				DiscountValue: decimal.NewFromInt(5000),
			},
			expected: planAmount,
		},
		{
			name: "percentage above hundred is clamped",
			coupon: Coupon{
				DiscountType:  types.DiscountTypePercentage,
				DiscountValue: decimal.NewFromInt(150),
			},
			expected: planAmount,
		},
		{
			name: "negative discount value yields zero",
			coupon: Coupon{
				DiscountType:  types.DiscountTypeFlat,
				DiscountValue: decimal.NewFromInt(-100),
			},
			expected: decimal.Zero,
		},
		{
			name: "unknown discount type yields zero",
			coupon: Coupon{
				DiscountType:  types.DiscountType("bogus"),
				DiscountValue: decimal.NewFromInt(50),
			},
			expected: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.coupon.CalculateDiscount(planAmount)
			assert.True(t, tt.expected.Equal(got), "expected %s got %s", tt.expected, got)
		})
	}
}

func TestIsRedeemable(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	limit := 2

	tests := []struct {
		name     string
		coupon   Coupon
		expected bool
	}{
		{
			name:     "active coupon without limits",
			coupon:   Coupon{IsActive: true},
			expected: true,
		},
		{
			name:     "inactive coupon",
			coupon:   Coupon{IsActive: false},
			expected: false,
		},
		{
			name:     "expired coupon",
			coupon:   Coupon{IsActive: true, EndDate: &past},
			expected: false,
		},
		{
			name:     "coupon expiring in the future",
			coupon:   Coupon{IsActive: true, EndDate: &future},
			expected: true,
		},
		{
			name:     "usage limit reached",
			coupon:   Coupon{IsActive: true, UsageLimit: &limit, UsageCount: 2},
			expected: false,
		},
		{
			name:     "usage below limit",
			coupon:   Coupon{IsActive: true, UsageLimit: &limit, UsageCount: 1},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.coupon.IsRedeemable(now))
		})
	}
}
