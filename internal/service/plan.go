package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/plexbill/plexbill/internal/api/dto"
	"github.com/plexbill/plexbill/internal/domain/coupon"
	"github.com/plexbill/plexbill/internal/domain/plan"
	"github.com/plexbill/plexbill/internal/integration"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
)

// PlanService manages the plan catalog and minting of discounted internal
// plans.
type PlanService interface {
	CreatePlan(ctx context.Context, req *dto.CreatePlanRequest, provider types.ProviderName) (*dto.PlanResponse, error)
	GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error)
	ListPlans(ctx context.Context) (*dto.ListPlansResponse, error)
	UpdatePlan(ctx context.Context, id string, req *dto.UpdatePlanRequest) (*dto.PlanResponse, error)
	DeletePlan(ctx context.Context, id string) error

	// CreateDiscountedPlanIfNeeded mints a provider-side clone of the plan at
	// the discounted amount and back-links the coupon to it. Zero discount
	// returns the plan unchanged.
	CreateDiscountedPlanIfNeeded(ctx context.Context, p *plan.Plan, discount decimal.Decimal, c *coupon.Coupon, provider types.ProviderName) (*plan.Plan, error)
}

type planService struct {
	ServiceParams
}

// NewPlanService creates a new plan service
func NewPlanService(params ServiceParams) PlanService {
	return &planService{ServiceParams: params}
}

// CreatePlan stores the plan locally; priced plans are mirrored to the
// provider first so the stored row carries the provider identifiers.
func (s *planService) CreatePlan(ctx context.Context, req *dto.CreatePlanRequest, provider types.ProviderName) (*dto.PlanResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := req.ToPlan(ctx)

	if !p.IsFree() {
		gateway, err := s.Gateways.GetGateway(provider)
		if err != nil {
			return nil, err
		}

		providerPlan, err := gateway.CreatePlan(ctx, p)
		if err != nil {
			return nil, err
		}
		applyProviderPlan(p, providerPlan, provider)
	}

	if err := s.PlanRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.Logger.Infow("plan created", "plan_id", p.ID, "slug", p.Slug, "provider", provider)
	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) GetPlan(ctx context.Context, id string) (*dto.PlanResponse, error) {
	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) ListPlans(ctx context.Context) (*dto.ListPlansResponse, error) {
	plans, err := s.PlanRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.PlanResponse, len(plans))
	for i, p := range plans {
		items[i] = &dto.PlanResponse{Plan: p}
	}
	return &dto.ListPlansResponse{Items: items, Total: len(items)}, nil
}

func (s *planService) UpdatePlan(ctx context.Context, id string, req *dto.UpdatePlanRequest) (*dto.PlanResponse, error) {
	p, err := s.PlanRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	p.UpdatedBy = types.GetUserID(ctx)

	if err := s.PlanRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	return &dto.PlanResponse{Plan: p}, nil
}

func (s *planService) DeletePlan(ctx context.Context, id string) error {
	return s.PlanRepo.Delete(ctx, id)
}

func (s *planService) CreateDiscountedPlanIfNeeded(ctx context.Context, p *plan.Plan, discount decimal.Decimal, c *coupon.Coupon, provider types.ProviderName) (*plan.Plan, error) {
	if !discount.IsPositive() {
		return p, nil
	}

	finalAmount := p.Amount.Sub(discount)
	if finalAmount.IsNegative() {
		finalAmount = decimal.Zero
	}

	metadata := types.Metadata{types.MetadataKeyInternal: "true"}
	if c != nil {
		metadata["coupon_code"] = c.Code
	}

	internal := &plan.Plan{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN),
		Name:         fmt.Sprintf("%s (Discounted)", p.Name),
		Slug:         discountedSlug(p.Name),
		Description:  p.Description,
		Amount:       finalAmount,
		Currency:     p.Currency,
		BillingCycle: p.BillingCycle,
		IsActive:     true,
		Metadata:     metadata,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}

	if !internal.IsFree() {
		gateway, err := s.Gateways.GetGateway(provider)
		if err != nil {
			return nil, err
		}

		providerPlan, err := gateway.CreatePlan(ctx, internal)
		if err != nil {
			return nil, err
		}
		applyProviderPlan(internal, providerPlan, provider)
	}

	if err := s.PlanRepo.Create(ctx, internal); err != nil {
		return nil, err
	}

	if c != nil {
		if err := s.CouponRepo.UpdatePlanID(ctx, c.ID, internal.ID); err != nil {
			return nil, err
		}
	}

	s.Logger.Infow("minted discounted plan",
		"plan_id", internal.ID,
		"original_plan_id", p.ID,
		"amount", internal.Amount)
	return internal, nil
}

func applyProviderPlan(p *plan.Plan, pp *integration.ProviderPlan, provider types.ProviderName) {
	switch provider {
	case types.ProviderRazorpay:
		if pp.PlanID != "" {
			p.PSPPlanID = &pp.PlanID
		}
	case types.ProviderPaddle:
		if pp.ProductID != "" {
			p.PSPPlanID = &pp.ProductID
		}
		if pp.PriceID != "" {
			p.PSPPriceID = &pp.PriceID
		}
	}
}

// discountedSlug keeps minted plan slugs unique across repeated redemptions
func discountedSlug(name string) string {
	suffix := strings.ToLower(types.GenerateUUID())
	return types.Slugify(name) + "-" + suffix[len(suffix)-8:]
}
