package plan

import (
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
)

// Plan represents a catalog plan. Internal plans are provider side clones
// minted at a discounted amount and carry the is_internal metadata marker.
type Plan struct {
	ID           string             `json:"id" db:"id"`
	Name         string             `json:"name" db:"name"`
	Slug         string             `json:"slug" db:"slug"`
	Description  string             `json:"description" db:"description"`
	Amount       decimal.Decimal    `json:"amount" db:"amount"`
	Currency     string             `json:"currency" db:"currency"`
	BillingCycle types.BillingCycle `json:"billing_cycle" db:"billing_cycle"`
	PSPPlanID    *string            `json:"psp_plan_id" db:"psp_plan_id"`
	PSPPriceID   *string            `json:"psp_price_id" db:"psp_price_id"`
	IsCustom     bool               `json:"is_custom" db:"is_custom"`
	IsActive     bool               `json:"is_active" db:"is_active"`
	Metadata     types.Metadata     `json:"metadata" db:"metadata"`
	types.BaseModel
}

// IsFree reports whether the plan has a zero amount. Free plans never hold
// provider identifiers.
func (p *Plan) IsFree() bool {
	return p.Amount.IsZero()
}

// IsInternal reports whether the plan is a minted discounted clone
func (p *Plan) IsInternal() bool {
	if p.Metadata == nil {
		return false
	}
	return p.Metadata[types.MetadataKeyInternal] == "true"
}
