package service

import (
	"context"
	"time"

	"github.com/plexbill/plexbill/internal/api/dto"
	"github.com/plexbill/plexbill/internal/domain/coupon"
	"github.com/plexbill/plexbill/internal/domain/plan"
	"github.com/plexbill/plexbill/internal/domain/subscription"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/integration"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
)

// SubscriptionService is the subscription lifecycle orchestrator. Every
// mutating operation runs inside one transaction; partial subscription or
// coupon state is never persisted.
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)
	UpgradeSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error)

	// Unsubscribe cancels the identity's subscription. The response reports
	// whether cancellation took effect immediately or is deferred to cycle
	// end by the provider.
	Unsubscribe(ctx context.Context, identity *types.Identity) (*dto.UnsubscribeResponse, error)

	GetCurrentSubscription(ctx context.Context, identity *types.Identity) (*dto.CurrentSubscriptionResponse, error)

	// EnsureCustomer creates the provider-side customer record for the
	// identity if it does not exist yet.
	EnsureCustomer(ctx context.Context, identity *types.Identity, provider types.ProviderName) (*subscription.Customer, error)

	// DowngradeExpiredTrials reverts every due trial to the basic plan. Each
	// trial is processed independently; a failure is logged and does not
	// abort the batch. Returns the number of downgrades applied.
	DowngradeExpiredTrials(ctx context.Context) (int, error)
}

type subscriptionService struct {
	ServiceParams
	planService   PlanService
	couponService CouponService
	entitlements  EntitlementService
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	params ServiceParams,
	planService PlanService,
	couponService CouponService,
	entitlements EntitlementService,
) SubscriptionService {
	return &subscriptionService{
		ServiceParams: params,
		planService:   planService,
		couponService: couponService,
		entitlements:  entitlements,
	}
}

func (s *subscriptionService) CreateSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var resp *dto.SubscriptionResponse
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		resp, err = s.createSubscription(txCtx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// createSubscription is the transactional core of the subscribe path. The
// pre-check on existing subscriptions is a fast path; the store's partial
// unique index is the authoritative guard, surfacing racing inserts as a
// conflict.
func (s *subscriptionService) createSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	identity := req.Identity
	startDate := time.Now().UTC().Unix()

	existing, err := s.latestActive(ctx, identity)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existingPlan, err := s.PlanRepo.Get(ctx, existing.PlanID)
		if err != nil {
			return nil, err
		}

		if existing.PlanID == req.PlanID {
			return nil, ierr.NewError("subscription is already active").
				WithHintf("%s subscription is already active", existingPlan.Name).
				Mark(ierr.ErrAlreadyExists)
		}
		if existingPlan.Slug != s.Config.Billing.BasicPlanSlug {
			return nil, ierr.NewError("subscription already active").
				WithHint("Subscription for the organisation is already active").
				Mark(ierr.ErrAlreadyExists)
		}

		// A basic subscription is implicitly superseded
		existing.IsActive = false
		existing.Status = types.SubscriptionStatusCancelled
		existing.UpdatedAt = time.Now().UTC()
		if err := s.SubRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
	}

	p, err := s.PlanRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}

	if p.Slug == s.Config.Billing.BasicPlanSlug {
		hasTrial, err := s.SubRepo.HasTakenTrial(ctx, identity.UserID, identity.OrgIDPtr())
		if err != nil {
			return nil, err
		}
		if !hasTrial {
			return s.grantTrial(ctx, req, startDate)
		}
	}

	if p.IsCustom {
		return nil, ierr.NewError("custom plans cannot be subscribed to directly").
			WithHint("Custom plans are not supported for automated subscriptions").
			Mark(ierr.ErrInvalidOperation)
	}

	discount, cpn, err := s.couponService.ValidateAndApplyCoupon(ctx, req.CouponID, p.Amount)
	if err != nil {
		return nil, err
	}

	finalPlan, err := s.planService.CreateDiscountedPlanIfNeeded(ctx, p, discount, cpn, req.Provider)
	if err != nil {
		return nil, err
	}

	switch req.Provider {
	case types.ProviderRazorpay:
		return s.subscribeRazorpay(ctx, req, p, finalPlan, cpn, startDate)
	case types.ProviderPaddle:
		return s.subscribePaddle(ctx, req, finalPlan, startDate)
	default:
		return nil, ierr.NewError("unsupported payment provider").
			WithHintf("Provider %s is not supported", req.Provider).
			Mark(ierr.ErrValidation)
	}
}

// grantTrial gives a first-time basic subscriber the paid monthly plan for
// the configured trial period. No provider interaction happens; the trial is
// purely local and a downgrade record brings the identity back to basic.
func (s *subscriptionService) grantTrial(ctx context.Context, req *dto.CreateSubscriptionRequest, startDate int64) (*dto.SubscriptionResponse, error) {
	identity := req.Identity

	proPlan, err := s.PlanRepo.GetBySlug(ctx, s.Config.Billing.ProMonthlyPlanSlug)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("granting trial of paid monthly plan",
		"user_id", identity.UserID,
		"org_id", identity.OrgID)

	sub := &subscription.Subscription{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		UserID:       identity.UserID,
		OrgID:        identity.OrgIDPtr(),
		PlanID:       proPlan.ID,
		StartDate:    startDate,
		IsActive:     true,
		IsTrial:      true,
		BillingCycle: proPlan.BillingCycle,
		Amount:       decimal.Zero,
		Currency:     proPlan.Currency,
		PSPName:      req.Provider,
		Status:       types.SubscriptionStatusTrial,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
	if err := s.SubRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	downgrade := &subscription.ScheduledDowngrade{
		ID:          types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SCHEDULED_DOWNGRADE),
		UserID:      identity.UserID,
		OrgID:       identity.OrgIDPtr(),
		ScheduledAt: startDate + s.Config.Billing.TrialPeriodSeconds,
		Status:      types.ScheduledDowngradeStatusPending,
		BaseModel:   types.GetDefaultBaseModel(ctx),
	}
	if err := s.DowngradeRepo.Create(ctx, downgrade); err != nil {
		return nil, err
	}

	return &dto.SubscriptionResponse{
		Subscription: sub,
		PlanName:     proPlan.Name,
	}, nil
}

func (s *subscriptionService) subscribeRazorpay(ctx context.Context, req *dto.CreateSubscriptionRequest, original, finalPlan *plan.Plan, cpn *coupon.Coupon, startDate int64) (*dto.SubscriptionResponse, error) {
	identity := req.Identity

	sub := s.newSubscription(ctx, identity, finalPlan, startDate, types.ProviderRazorpay)

	if finalPlan.IsFree() {
		sub.IsActive = true
		sub.Status = types.SubscriptionStatusActive
		if err := s.SubRepo.Create(ctx, sub); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.EnsureCustomer(ctx, identity, types.ProviderRazorpay); err != nil {
			return nil, err
		}

		gateway, err := s.Gateways.GetGateway(types.ProviderRazorpay)
		if err != nil {
			return nil, err
		}
		if finalPlan.PSPPlanID == nil {
			return nil, ierr.NewError("plan has no provider identifier").
				WithHintf("Plan %s is not registered with the provider", finalPlan.ID).
				Mark(ierr.ErrInvalidOperation)
		}

		providerSub, err := gateway.CreateSubscription(ctx, &integration.CreateSubscriptionRequest{
			PlanRef:    *finalPlan.PSPPlanID,
			TotalCount: original.BillingCycle.TotalCount(),
			Quantity:   1,
			Identity:   identity,
		})
		if err != nil {
			return nil, err
		}

		sub.PSPSubscriptionID = &providerSub.ID
		sub.Status = types.SubscriptionStatus(providerSub.Status)
		if err := s.SubRepo.Create(ctx, sub); err != nil {
			return nil, err
		}
	}

	// Razorpay redemptions count eagerly; Paddle settles on the transaction
	// webhook instead.
	if cpn != nil {
		if err := s.couponService.IncrementUsage(ctx, cpn.ID); err != nil {
			return nil, err
		}
	}

	s.Logger.Infow("subscription created",
		"subscription_id", sub.ID,
		"user_id", identity.UserID,
		"provider", types.ProviderRazorpay)

	return &dto.SubscriptionResponse{
		Subscription:   sub,
		PlanName:       finalPlan.Name,
		PSPClientToken: s.Config.Razorpay.APIKey,
	}, nil
}

func (s *subscriptionService) subscribePaddle(ctx context.Context, req *dto.CreateSubscriptionRequest, finalPlan *plan.Plan, startDate int64) (*dto.SubscriptionResponse, error) {
	identity := req.Identity

	sub := s.newSubscription(ctx, identity, finalPlan, startDate, types.ProviderPaddle)

	if finalPlan.IsFree() {
		sub.IsActive = true
		sub.Status = types.SubscriptionStatusActive
		if err := s.SubRepo.Create(ctx, sub); err != nil {
			return nil, err
		}
		return &dto.SubscriptionResponse{Subscription: sub, PlanName: finalPlan.Name}, nil
	}

	// The subscription starts as a local draft; the transaction completed
	// webhook flips it active and fills in the provider subscription id.
	sub.Status = types.SubscriptionStatusDraft
	if err := s.SubRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	gateway, err := s.Gateways.GetGateway(types.ProviderPaddle)
	if err != nil {
		return nil, err
	}
	if finalPlan.PSPPriceID == nil {
		return nil, ierr.NewError("plan has no provider price").
			WithHintf("Plan %s is not registered with the provider", finalPlan.ID).
			Mark(ierr.ErrInvalidOperation)
	}

	txn, err := gateway.CreateSubscription(ctx, &integration.CreateSubscriptionRequest{
		PlanRef:        *finalPlan.PSPPriceID,
		Quantity:       1,
		PlanID:         finalPlan.ID,
		SubscriptionID: sub.ID,
		Identity:       identity,
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription drafted",
		"subscription_id", sub.ID,
		"transaction_id", txn.ID,
		"provider", types.ProviderPaddle)

	return &dto.SubscriptionResponse{
		Subscription:   sub,
		PlanName:       finalPlan.Name,
		TransactionID:  txn.ID,
		CheckoutURL:    txn.ShortURL,
		PSPClientToken: s.Config.Paddle.ClientToken,
	}, nil
}

func (s *subscriptionService) newSubscription(ctx context.Context, identity *types.Identity, p *plan.Plan, startDate int64, provider types.ProviderName) *subscription.Subscription {
	return &subscription.Subscription{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION),
		UserID:       identity.UserID,
		OrgID:        identity.OrgIDPtr(),
		PlanID:       p.ID,
		StartDate:    startDate,
		IsBasic:      p.Slug == s.Config.Billing.BasicPlanSlug,
		BillingCycle: p.BillingCycle,
		Amount:       p.Amount,
		Currency:     p.Currency,
		PSPName:      provider,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
}

func (s *subscriptionService) UpgradeSubscription(ctx context.Context, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var resp *dto.SubscriptionResponse
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		identity := req.Identity

		current, err := s.latestActive(txCtx, identity)
		if err != nil {
			return err
		}
		if current == nil {
			return ierr.NewError("no subscription to upgrade").
				WithHint("The account has no active subscription").
				Mark(ierr.ErrNotFound)
		}

		// Paid subscriptions are cancelled at the provider immediately, not
		// at cycle end, so the new plan takes over right away.
		if current.Amount.IsPositive() && current.PSPSubscriptionID != nil {
			gateway, err := s.Gateways.GetGateway(current.PSPName)
			if err != nil {
				return err
			}
			if err := gateway.EndSubscription(txCtx, *current.PSPSubscriptionID, false); err != nil {
				return err
			}
		}

		current.IsActive = false
		current.UpdatedAt = time.Now().UTC()
		if err := s.SubRepo.Update(txCtx, current); err != nil {
			return err
		}

		resp, err = s.createSubscription(txCtx, req)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("subscription upgraded", "user_id", req.Identity.UserID)
	return resp, nil
}

func (s *subscriptionService) Unsubscribe(ctx context.Context, identity *types.Identity) (*dto.UnsubscribeResponse, error) {
	var immediate bool
	err := s.DB.WithTx(ctx, func(txCtx context.Context) error {
		sub, err := s.latestActive(txCtx, identity)
		if err != nil {
			return err
		}
		if sub == nil {
			return ierr.NewError("subscription not found").
				WithHint("The account has no active subscription").
				Mark(ierr.ErrNotFound)
		}

		if sub.Amount.IsZero() {
			sub.IsActive = false
			sub.Status = types.SubscriptionStatusCancelled
			immediate = true
		} else {
			if sub.PSPSubscriptionID == nil {
				return ierr.NewError("subscription has no provider identifier").
					WithHint("The subscription cannot be cancelled at the provider").
					Mark(ierr.ErrInvalidOperation)
			}
			gateway, err := s.Gateways.GetGateway(sub.PSPName)
			if err != nil {
				return err
			}
			if err := gateway.EndSubscription(txCtx, *sub.PSPSubscriptionID, true); err != nil {
				return err
			}
			// Deactivation happens later via the cancellation webhook
			sub.CancelAtCycleEnd = true
		}

		sub.UpdatedAt = time.Now().UTC()
		return s.SubRepo.Update(txCtx, sub)
	})
	if err != nil {
		return nil, err
	}

	msg := "Subscription will be cancelled at the end of the billing cycle"
	if immediate {
		msg = "Subscription cancelled"
	}
	return &dto.UnsubscribeResponse{Immediate: immediate, Message: msg}, nil
}

func (s *subscriptionService) GetCurrentSubscription(ctx context.Context, identity *types.Identity) (*dto.CurrentSubscriptionResponse, error) {
	sub, err := s.latestActive(ctx, identity)
	if err != nil {
		return nil, err
	}

	if sub == nil {
		if s.Config.Billing.FallbackPlanID == "" {
			return nil, ierr.NewError("subscription not found").
				WithHint("The account has no subscription").
				Mark(ierr.ErrNotFound)
		}
		fallback, err := s.PlanRepo.Get(ctx, s.Config.Billing.FallbackPlanID)
		if err != nil {
			return nil, err
		}
		return &dto.CurrentSubscriptionResponse{
			Amount:          fallback.Amount.String(),
			BillingCycle:    fallback.BillingCycle,
			PlanName:        fallback.Name,
			PlanDescription: fallback.Description,
		}, nil
	}

	p, err := s.PlanRepo.Get(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}

	resp := &dto.CurrentSubscriptionResponse{
		Subscription:    sub,
		Amount:          sub.Amount.String(),
		BillingCycle:    sub.BillingCycle,
		PlanName:        p.Name,
		PlanDescription: p.Description,
	}

	// Paid plans report the live billing period from the provider
	if p.Slug != s.Config.Billing.BasicPlanSlug && sub.PSPSubscriptionID != nil {
		gateway, err := s.Gateways.GetGateway(sub.PSPName)
		if err != nil {
			return nil, err
		}
		details, err := gateway.GetSubscriptionDetails(ctx, *sub.PSPSubscriptionID)
		if err != nil {
			return nil, err
		}
		resp.CurrentStart = details.CurrentStart
		resp.CurrentEnd = details.CurrentEnd
	}

	return resp, nil
}

func (s *subscriptionService) EnsureCustomer(ctx context.Context, identity *types.Identity, provider types.ProviderName) (*subscription.Customer, error) {
	customer, err := s.CustomerRepo.GetByIdentity(ctx, identity.UserID, identity.OrgIDPtr(), provider)
	if err == nil {
		return customer, nil
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	gateway, err := s.Gateways.GetGateway(provider)
	if err != nil {
		return nil, err
	}
	providerCustomerID, err := gateway.CreateCustomer(ctx, identity)
	if err != nil {
		return nil, err
	}

	customer = &subscription.Customer{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CUSTOMER),
		PSPName:   provider,
		UserID:    identity.UserID,
		OrgID:     identity.OrgIDPtr(),
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
	if providerCustomerID != "" {
		customer.CustomerID = &providerCustomerID
	}
	if err := s.CustomerRepo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *subscriptionService) DowngradeExpiredTrials(ctx context.Context) (int, error) {
	now := time.Now().UTC().Unix()

	due, err := s.DowngradeRepo.GetExpiredTrials(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	basicPlan, err := s.PlanRepo.GetBySlug(ctx, s.Config.Billing.BasicPlanSlug)
	if err != nil {
		return 0, err
	}

	downgraded := 0
	for _, d := range due {
		if err := s.downgradeOne(ctx, d, basicPlan); err != nil {
			s.Logger.Errorw("failed to downgrade expired trial",
				"user_id", d.UserID,
				"org_id", d.OrgID,
				"error", err)
			continue
		}
		downgraded++
	}

	s.Logger.Infow("trial downgrade sweep finished", "due", len(due), "downgraded", downgraded)
	return downgraded, nil
}

func (s *subscriptionService) downgradeOne(ctx context.Context, d *subscription.ScheduledDowngrade, basicPlan *plan.Plan) error {
	return s.DB.WithTx(ctx, func(txCtx context.Context) error {
		subs, err := s.SubRepo.GetActiveByIdentity(txCtx, d.UserID, d.OrgID)
		if err != nil {
			return err
		}

		var trial *subscription.Subscription
		for _, sub := range subs {
			if sub.IsTrial {
				trial = sub
				break
			}
		}
		if trial == nil {
			// Trial already gone (cancelled or upgraded); just retire the record
			return s.DowngradeRepo.MarkCompleted(txCtx, d.ID)
		}

		trial.PlanID = basicPlan.ID
		trial.IsBasic = true
		trial.Amount = basicPlan.Amount
		trial.Status = types.SubscriptionStatusActive
		trial.UpdatedAt = time.Now().UTC()
		if err := s.SubRepo.Update(txCtx, trial); err != nil {
			return err
		}

		if err := s.DowngradeRepo.MarkCompleted(txCtx, d.ID); err != nil {
			return err
		}

		s.entitlements.InvalidateUsageCounters(txCtx, d.UserID, d.OrgID)
		return nil
	})
}

func (s *subscriptionService) latestActive(ctx context.Context, identity *types.Identity) (*subscription.Subscription, error) {
	subs, err := s.SubRepo.GetActiveByIdentity(ctx, identity.UserID, identity.OrgIDPtr())
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}
	return subs[0], nil
}
