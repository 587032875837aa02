package types

// BillingCycle is the recurrence period of a plan or subscription
type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "monthly"
	BillingCycleQuarterly BillingCycle = "quarterly"
	BillingCycleYearly    BillingCycle = "yearly"
)

func (b BillingCycle) Validate() bool {
	switch b {
	case BillingCycleMonthly, BillingCycleQuarterly, BillingCycleYearly:
		return true
	}
	return false
}

// TotalCount returns the number of billing cycles requested when creating a
// provider side subscription for the cycle
func (b BillingCycle) TotalCount() int {
	if b == BillingCycleMonthly {
		return 30
	}
	return 3
}

// ProviderName identifies a payment service provider
type ProviderName string

const (
	ProviderRazorpay ProviderName = "razorpay"
	ProviderPaddle   ProviderName = "paddle"
)

func (p ProviderName) Validate() bool {
	switch p {
	case ProviderRazorpay, ProviderPaddle:
		return true
	}
	return false
}

// SubscriptionStatus mirrors provider status plus local lifecycle values
type SubscriptionStatus string

const (
	SubscriptionStatusDraft     SubscriptionStatus = "draft"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusTrial     SubscriptionStatus = "trial"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusFailed    SubscriptionStatus = "failed"
)

// PaymentStatus is the state of a provider payment
type PaymentStatus string

const (
	PaymentStatusCaptured PaymentStatus = "captured"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusPending  PaymentStatus = "pending"
)

// DiscountType is the coupon discount calculation tag
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFlat       DiscountType = "flat"
)

// ScheduledDowngradeStatus tracks trial downgrade records
type ScheduledDowngradeStatus string

const (
	ScheduledDowngradeStatusPending   ScheduledDowngradeStatus = "pending"
	ScheduledDowngradeStatusCompleted ScheduledDowngradeStatus = "completed"
)

// MetadataKeyInternal marks provider side plan clones minted for one-off
// discounted prices
const MetadataKeyInternal = "is_internal"
