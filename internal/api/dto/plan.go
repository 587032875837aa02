package dto

import (
	"context"

	"github.com/plexbill/plexbill/internal/domain/plan"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/plexbill/plexbill/internal/validator"
	"github.com/shopspring/decimal"
)

type CreatePlanRequest struct {
	Name         string             `json:"name" validate:"required"`
	Description  string             `json:"description"`
	Amount       decimal.Decimal    `json:"amount"`
	Currency     string             `json:"currency" validate:"required"`
	BillingCycle types.BillingCycle `json:"billing_cycle" validate:"required"`
	IsCustom     bool               `json:"is_custom"`
	Metadata     types.Metadata     `json:"metadata"`
}

func (r *CreatePlanRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.BillingCycle.Validate() {
		return ierr.NewError("invalid billing cycle").
			WithHintf("Billing cycle %s is not supported", r.BillingCycle).
			Mark(ierr.ErrValidation)
	}
	if r.Amount.IsNegative() {
		return ierr.NewError("invalid amount").
			WithHint("Plan amount cannot be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *CreatePlanRequest) ToPlan(ctx context.Context) *plan.Plan {
	return &plan.Plan{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		Name:         r.Name,
		Slug:         types.Slugify(r.Name),
		Description:  r.Description,
		Amount:       r.Amount,
		Currency:     r.Currency,
		BillingCycle: r.BillingCycle,
		IsCustom:     r.IsCustom,
		IsActive:     true,
		Metadata:     r.Metadata,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
}

type UpdatePlanRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"is_active"`
}

type PlanResponse struct {
	*plan.Plan
}

type ListPlansResponse struct {
	Items []*PlanResponse `json:"items"`
	Total int             `json:"total"`
}
