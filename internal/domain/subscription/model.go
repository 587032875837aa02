package subscription

import (
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
)

// Subscription is one identity's enrollment in a plan. Dates are unix
// seconds to match the provider payloads they are reconciled against.
type Subscription struct {
	ID                string                   `json:"id" db:"id"`
	UserID            string                   `json:"user_id" db:"user_id"`
	OrgID             *string                  `json:"org_id" db:"org_id"`
	PlanID            string                   `json:"plan_id" db:"plan_id"`
	StartDate         int64                    `json:"start_date" db:"start_date"`
	EndDate           *int64                   `json:"end_date" db:"end_date"`
	IsActive          bool                     `json:"is_active" db:"is_active"`
	IsTrial           bool                     `json:"is_trial" db:"is_trial"`
	IsBasic           bool                     `json:"is_basic" db:"is_basic"`
	CancelAtCycleEnd  bool                     `json:"cancel_at_cycle_end" db:"cancel_at_cycle_end"`
	BillingCycle      types.BillingCycle       `json:"billing_cycle" db:"billing_cycle"`
	Amount            decimal.Decimal          `json:"amount" db:"amount"`
	Currency          string                   `json:"currency" db:"currency"`
	PSPName           types.ProviderName       `json:"psp_name" db:"psp_name"`
	PSPSubscriptionID *string                  `json:"psp_subscription_id" db:"psp_subscription_id"`
	Status            types.SubscriptionStatus `json:"status" db:"status"`
	types.BaseModel
}

// Customer is the provider-side customer record for an identity
type Customer struct {
	ID         string             `json:"id" db:"id"`
	CustomerID *string            `json:"customer_id" db:"customer_id"`
	PSPName    types.ProviderName `json:"psp_name" db:"psp_name"`
	UserID     string             `json:"user_id" db:"user_id"`
	OrgID      *string            `json:"org_id" db:"org_id"`
	types.BaseModel
}

// ScheduledDowngrade marks a trial for demotion back to the basic plan once
// scheduled_at passes. The downgrade cron sweeps pending rows.
type ScheduledDowngrade struct {
	ID          string                         `json:"id" db:"id"`
	UserID      string                         `json:"user_id" db:"user_id"`
	OrgID       *string                        `json:"org_id" db:"org_id"`
	ScheduledAt int64                          `json:"scheduled_at" db:"scheduled_at"`
	Status      types.ScheduledDowngradeStatus `json:"status" db:"status"`
	types.BaseModel
}
