package service

import (
	"testing"
	"time"

	"github.com/plexbill/plexbill/internal/api/dto"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/integration"
	"github.com/plexbill/plexbill/internal/testutil"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type SubscriptionServiceSuite struct {
	testutil.BaseServiceTestSuite
	service       SubscriptionService
	planService   PlanService
	couponService CouponService
	razorpay      *testutil.MockGateway
	paddle        *testutil.MockGateway

	basicPlanID string
	proPlanID   string
}

func TestSubscriptionService(t *testing.T) {
	suite.Run(t, new(SubscriptionServiceSuite))
}

func (s *SubscriptionServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.razorpay = testutil.NewMockGateway(types.ProviderRazorpay)
	s.paddle = testutil.NewMockGateway(types.ProviderPaddle)

	params := s.newParams()
	s.planService = NewPlanService(params)
	s.couponService = NewCouponService(params)
	entitlements := NewEntitlementService(params)
	s.service = NewSubscriptionService(params, s.planService, s.couponService, entitlements)

	s.basicPlanID = s.createPlan("Basic", decimal.Zero)
	s.proPlanID = s.createPlan("Pro Monthly", decimal.NewFromInt(999))
}

func (s *SubscriptionServiceSuite) newParams() ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:        s.GetLogger(),
		Config:        s.GetConfig(),
		DB:            s.GetDB(),
		Cache:         s.GetCache(),
		Tasks:         testutil.NewSyncTaskRunner(),
		PlanRepo:      stores.PlanRepo,
		CouponRepo:    stores.CouponRepo,
		RuleRepo:      stores.RuleRepo,
		SubRepo:       stores.SubRepo,
		CustomerRepo:  stores.CustomerRepo,
		DowngradeRepo: stores.DowngradeRepo,
		InvoiceRepo:   stores.InvoiceRepo,
		PaymentRepo:   stores.PaymentRepo,
		Gateways:      integration.NewFactory(s.razorpay, s.paddle),
	}
}

func (s *SubscriptionServiceSuite) createPlan(name string, amount decimal.Decimal) string {
	resp, err := s.planService.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:         name,
		Currency:     "INR",
		BillingCycle: types.BillingCycleMonthly,
		Amount:       amount,
	}, types.ProviderRazorpay)
	s.NoError(err)
	return resp.Plan.ID
}

func (s *SubscriptionServiceSuite) identity(userID string) *types.Identity {
	return &types.Identity{UserID: userID, Email: userID + "@example.com"}
}

func (s *SubscriptionServiceSuite) subscribe(userID, planID string, couponID *string) (*dto.SubscriptionResponse, error) {
	return s.service.CreateSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		PlanID:   planID,
		CouponID: couponID,
		Provider: types.ProviderRazorpay,
		Identity: s.identity(userID),
	})
}

// activate flips a paid subscription active the way the provider activation
// webhook would
func (s *SubscriptionServiceSuite) activate(subID string) {
	sub, err := s.GetStores().SubRepo.Get(s.GetContext(), subID)
	s.NoError(err)
	sub.IsActive = true
	sub.Status = types.SubscriptionStatusActive
	s.NoError(s.GetStores().SubRepo.Update(s.GetContext(), sub))
}

func (s *SubscriptionServiceSuite) TestFirstBasicSubscribeGrantsTrial() {
	resp, err := s.subscribe("u1", s.basicPlanID, nil)
	s.NoError(err)

	sub := resp.Subscription
	s.True(sub.IsTrial)
	s.True(sub.IsActive)
	s.Equal(types.SubscriptionStatusTrial, sub.Status)
	s.Equal(s.proPlanID, sub.PlanID)
	s.True(sub.Amount.IsZero())

	// No provider interaction for trials
	s.Equal(0, s.razorpay.CallCount("CreateSubscription"))

	// The downgrade back to basic is scheduled at trial end
	asOf := sub.StartDate + s.GetConfig().Billing.TrialPeriodSeconds
	due, err := s.GetStores().DowngradeRepo.GetExpiredTrials(s.GetContext(), asOf)
	s.NoError(err)
	s.Len(due, 1)
	s.Equal(asOf, due[0].ScheduledAt)
}

func (s *SubscriptionServiceSuite) TestBasicSubscribeAfterTrialIsPlainBasic() {
	_, err := s.subscribe("u1", s.basicPlanID, nil)
	s.NoError(err)

	// Retire the trial, then subscribe to basic again
	unsubResp, err := s.service.Unsubscribe(s.GetContext(), s.identity("u1"))
	s.NoError(err)
	s.True(unsubResp.Immediate)

	resp, err := s.subscribe("u1", s.basicPlanID, nil)
	s.NoError(err)

	sub := resp.Subscription
	s.False(sub.IsTrial)
	s.True(sub.IsBasic)
	s.True(sub.IsActive)
	s.Equal(s.basicPlanID, sub.PlanID)
	s.Equal(types.SubscriptionStatusActive, sub.Status)
}

func (s *SubscriptionServiceSuite) TestDuplicateSubscribeConflicts() {
	resp, err := s.subscribe("u1", s.proPlanID, nil)
	s.NoError(err)
	s.activate(resp.Subscription.ID)

	_, err = s.subscribe("u1", s.proPlanID, nil)
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *SubscriptionServiceSuite) TestPaidSubscribeBlocksOtherPaidPlans() {
	otherPlanID := s.createPlan("Enterprise Monthly", decimal.NewFromInt(4999))

	resp, err := s.subscribe("u1", s.proPlanID, nil)
	s.NoError(err)
	s.activate(resp.Subscription.ID)

	_, err = s.subscribe("u1", otherPlanID, nil)
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *SubscriptionServiceSuite) TestBasicSubscriptionSuperseded() {
	// Trial first, then back on plain basic
	_, err := s.subscribe("u1", s.basicPlanID, nil)
	s.NoError(err)
	_, err = s.service.Unsubscribe(s.GetContext(), s.identity("u1"))
	s.NoError(err)
	_, err = s.subscribe("u1", s.basicPlanID, nil)
	s.NoError(err)

	resp, err := s.subscribe("u1", s.proPlanID, nil)
	s.NoError(err)

	s.False(resp.Subscription.IsBasic)
	s.NotNil(resp.Subscription.PSPSubscriptionID)
	s.Equal(1, s.razorpay.CallCount("CreateSubscription"))
	s.Equal(1, s.razorpay.CallCount("CreateCustomer"))

	// The basic subscription gave way; the paid one stays pending until the
	// activation webhook lands
	s.False(resp.Subscription.IsActive)
	actives, err := s.GetStores().SubRepo.GetActiveByIdentity(s.GetContext(), "u1", nil)
	s.NoError(err)
	s.Len(actives, 0)
}

func (s *SubscriptionServiceSuite) TestCouponMintsDiscountedPlan() {
	limit := 1
	couponResp, err := s.couponService.CreateCoupon(s.GetContext(), &dto.CreateCouponRequest{
		Code:          "SAVE500",
		DiscountType:  types.DiscountTypeFlat,
		DiscountValue: decimal.NewFromInt(500),
		UsageLimit:    &limit,
	})
	s.NoError(err)

	resp, err := s.subscribe("u1", s.proPlanID, &couponResp.Coupon.ID)
	s.NoError(err)

	// The subscription runs on a minted internal plan at the reduced price
	s.NotEqual(s.proPlanID, resp.Subscription.PlanID)
	s.True(resp.Subscription.Amount.Equal(decimal.NewFromInt(499)))

	minted, err := s.GetStores().PlanRepo.Get(s.GetContext(), resp.Subscription.PlanID)
	s.NoError(err)
	s.Contains(minted.Name, "(Discounted)")
	s.True(minted.IsInternal())
	s.Equal("SAVE500", minted.Metadata["coupon_code"])

	// The redemption counted and the coupon points at the minted plan
	c, err := s.GetStores().CouponRepo.Get(s.GetContext(), couponResp.Coupon.ID)
	s.NoError(err)
	s.Equal(1, c.UsageCount)
	s.NotNil(c.PlanID)
	s.Equal(minted.ID, *c.PlanID)

	// The second redemption is over the limit
	_, err = s.subscribe("u2", s.proPlanID, &couponResp.Coupon.ID)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *SubscriptionServiceSuite) TestUnsubscribePaidIsDeferred() {
	resp, err := s.subscribe("u1", s.proPlanID, nil)
	s.NoError(err)
	s.activate(resp.Subscription.ID)

	unsubResp, err := s.service.Unsubscribe(s.GetContext(), s.identity("u1"))
	s.NoError(err)
	s.False(unsubResp.Immediate)

	// The provider cancels at cycle end; locally the subscription stays
	// active until the cancellation webhook lands
	s.True(s.razorpay.EndedSubscriptions[*resp.Subscription.PSPSubscriptionID])

	sub, err := s.GetStores().SubRepo.Get(s.GetContext(), resp.Subscription.ID)
	s.NoError(err)
	s.True(sub.IsActive)
	s.True(sub.CancelAtCycleEnd)
}

func (s *SubscriptionServiceSuite) TestUnsubscribeWithoutSubscription() {
	_, err := s.service.Unsubscribe(s.GetContext(), s.identity("ghost"))
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}

func (s *SubscriptionServiceSuite) TestUpgradeEndsCurrentImmediately() {
	otherPlanID := s.createPlan("Enterprise Monthly", decimal.NewFromInt(4999))

	first, err := s.subscribe("u1", s.proPlanID, nil)
	s.NoError(err)
	s.activate(first.Subscription.ID)

	resp, err := s.service.UpgradeSubscription(s.GetContext(), &dto.CreateSubscriptionRequest{
		PlanID:   otherPlanID,
		Provider: types.ProviderRazorpay,
		Identity: s.identity("u1"),
	})
	s.NoError(err)

	// Upgrade cancels at the provider immediately, not at cycle end
	cancelAtCycleEnd, ended := s.razorpay.EndedSubscriptions[*first.Subscription.PSPSubscriptionID]
	s.True(ended)
	s.False(cancelAtCycleEnd)

	old, err := s.GetStores().SubRepo.Get(s.GetContext(), first.Subscription.ID)
	s.NoError(err)
	s.False(old.IsActive)

	s.Equal(otherPlanID, resp.Subscription.PlanID)
}

func (s *SubscriptionServiceSuite) TestDowngradeExpiredTrials() {
	_, err := s.subscribe("u1", s.basicPlanID, nil)
	s.NoError(err)

	s.expireDowngrades()

	count, err := s.service.DowngradeExpiredTrials(s.GetContext())
	s.NoError(err)
	s.Equal(1, count)

	actives, err := s.GetStores().SubRepo.GetActiveByIdentity(s.GetContext(), "u1", nil)
	s.NoError(err)
	s.Len(actives, 1)

	sub := actives[0]
	s.Equal(s.basicPlanID, sub.PlanID)
	s.True(sub.IsBasic)
	s.True(sub.Amount.IsZero())
	s.Equal(types.SubscriptionStatusActive, sub.Status)

	// The record is retired; a second sweep finds nothing
	count, err = s.service.DowngradeExpiredTrials(s.GetContext())
	s.NoError(err)
	s.Equal(0, count)
}

func (s *SubscriptionServiceSuite) TestDowngradeBatchProcessesEveryDueRecord() {
	_, err := s.subscribe("u1", s.basicPlanID, nil)
	s.NoError(err)
	_, err = s.subscribe("u2", s.basicPlanID, nil)
	s.NoError(err)

	// One of the trials is already gone; the other still gets demoted
	_, err = s.service.Unsubscribe(s.GetContext(), s.identity("u1"))
	s.NoError(err)

	s.expireDowngrades()

	count, err := s.service.DowngradeExpiredTrials(s.GetContext())
	s.NoError(err)
	s.Equal(2, count)

	actives, err := s.GetStores().SubRepo.GetActiveByIdentity(s.GetContext(), "u2", nil)
	s.NoError(err)
	s.Len(actives, 1)
	s.Equal(s.basicPlanID, actives[0].PlanID)

	due, err := s.GetStores().DowngradeRepo.GetExpiredTrials(s.GetContext(), time.Now().UTC().Unix())
	s.NoError(err)
	s.Len(due, 0)
}

func (s *SubscriptionServiceSuite) TestDowngradeWithoutTrialJustRetiresRecord() {
	_, err := s.subscribe("u1", s.basicPlanID, nil)
	s.NoError(err)

	// The trial is gone before the downgrade fires
	_, err = s.service.Unsubscribe(s.GetContext(), s.identity("u1"))
	s.NoError(err)

	s.expireDowngrades()

	// The record is swept and retired even though there is nothing to demote
	count, err := s.service.DowngradeExpiredTrials(s.GetContext())
	s.NoError(err)
	s.Equal(1, count)

	actives, err := s.GetStores().SubRepo.GetActiveByIdentity(s.GetContext(), "u1", nil)
	s.NoError(err)
	s.Len(actives, 0)

	due, err := s.GetStores().DowngradeRepo.GetExpiredTrials(s.GetContext(), time.Now().UTC().Unix())
	s.NoError(err)
	s.Len(due, 0)
}

// expireDowngrades rewinds every pending downgrade so the sweep sees it as due
func (s *SubscriptionServiceSuite) expireDowngrades() {
	horizon := time.Now().UTC().Unix() + s.GetConfig().Billing.TrialPeriodSeconds + 1
	due, err := s.GetStores().DowngradeRepo.GetExpiredTrials(s.GetContext(), horizon)
	s.NoError(err)
	for _, d := range due {
		d.ScheduledAt = time.Now().UTC().Unix() - 1
	}
}
