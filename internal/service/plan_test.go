package service

import (
	"testing"

	"github.com/plexbill/plexbill/internal/api/dto"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/integration"
	"github.com/plexbill/plexbill/internal/testutil"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PlanServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  PlanService
	razorpay *testutil.MockGateway
	paddle   *testutil.MockGateway
}

func TestPlanService(t *testing.T) {
	suite.Run(t, new(PlanServiceSuite))
}

func (s *PlanServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	s.razorpay = testutil.NewMockGateway(types.ProviderRazorpay)
	s.paddle = testutil.NewMockGateway(types.ProviderPaddle)

	stores := s.GetStores()
	s.service = NewPlanService(ServiceParams{
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
	})
}

func (s *PlanServiceSuite) TestCreateFreePlanSkipsProvider() {
	resp, err := s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:         "Basic",
		Currency:     "INR",
		BillingCycle: types.BillingCycleMonthly,
		Amount:       decimal.Zero,
	}, types.ProviderRazorpay)
	s.NoError(err)

	s.Equal("basic", resp.Plan.Slug)
	s.True(resp.Plan.IsActive)
	s.Nil(resp.Plan.PSPPlanID)
	s.Equal(0, s.razorpay.CallCount("CreatePlan"))
}

func (s *PlanServiceSuite) TestCreatePaidPlanMirrorsToRazorpay() {
	resp, err := s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:         "Pro Monthly",
		Currency:     "INR",
		BillingCycle: types.BillingCycleMonthly,
		Amount:       decimal.NewFromInt(999),
	}, types.ProviderRazorpay)
	s.NoError(err)

	s.Equal("pro-monthly", resp.Plan.Slug)
	s.NotNil(resp.Plan.PSPPlanID)
	s.Nil(resp.Plan.PSPPriceID)
	s.Equal(1, s.razorpay.CallCount("CreatePlan"))
}

func (s *PlanServiceSuite) TestCreatePaidPlanMirrorsToPaddle() {
	resp, err := s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:         "Pro Monthly",
		Currency:     "USD",
		BillingCycle: types.BillingCycleMonthly,
		Amount:       decimal.NewFromInt(12),
	}, types.ProviderPaddle)
	s.NoError(err)

	// Paddle plans carry both the product and price identifiers
	s.NotNil(resp.Plan.PSPPlanID)
	s.NotNil(resp.Plan.PSPPriceID)
	s.Equal(1, s.paddle.CallCount("CreatePlan"))
}

func (s *PlanServiceSuite) TestCreatePlanDuplicateSlug() {
	req := &dto.CreatePlanRequest{
		Name:         "Basic",
		Currency:     "INR",
		BillingCycle: types.BillingCycleMonthly,
		Amount:       decimal.Zero,
	}
	_, err := s.service.CreatePlan(s.GetContext(), req, types.ProviderRazorpay)
	s.NoError(err)

	_, err = s.service.CreatePlan(s.GetContext(), req, types.ProviderRazorpay)
	s.Error(err)
	s.True(ierr.IsAlreadyExists(err))
}

func (s *PlanServiceSuite) TestCreatePlanNegativeAmount() {
	_, err := s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:         "Broken",
		Currency:     "INR",
		BillingCycle: types.BillingCycleMonthly,
		Amount:       decimal.NewFromInt(-1),
	}, types.ProviderRazorpay)
	s.Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *PlanServiceSuite) TestUpdatePlan() {
	resp, err := s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:         "Basic",
		Currency:     "INR",
		BillingCycle: types.BillingCycleMonthly,
		Amount:       decimal.Zero,
	}, types.ProviderRazorpay)
	s.NoError(err)

	name := "Starter"
	inactive := false
	updated, err := s.service.UpdatePlan(s.GetContext(), resp.Plan.ID, &dto.UpdatePlanRequest{
		Name:     &name,
		IsActive: &inactive,
	})
	s.NoError(err)
	s.Equal("Starter", updated.Plan.Name)
	s.False(updated.Plan.IsActive)

	// The slug is fixed at creation time
	s.Equal("basic", updated.Plan.Slug)
}

func (s *PlanServiceSuite) TestCreateDiscountedPlan() {
	resp, err := s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:         "Pro Monthly",
		Currency:     "INR",
		BillingCycle: types.BillingCycleMonthly,
		Amount:       decimal.NewFromInt(999),
	}, types.ProviderRazorpay)
	s.NoError(err)

	minted, err := s.service.CreateDiscountedPlanIfNeeded(s.GetContext(), resp.Plan, decimal.NewFromInt(200), nil, types.ProviderRazorpay)
	s.NoError(err)

	s.NotEqual(resp.Plan.ID, minted.ID)
	s.True(minted.Amount.Equal(decimal.NewFromInt(799)))
	s.True(minted.IsInternal())
	s.NotNil(minted.PSPPlanID)
	s.Contains(minted.Slug, "pro-monthly-")
}

func (s *PlanServiceSuite) TestCreateDiscountedPlanZeroDiscount() {
	resp, err := s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:         "Pro Monthly",
		Currency:     "INR",
		BillingCycle: types.BillingCycleMonthly,
		Amount:       decimal.NewFromInt(999),
	}, types.ProviderRazorpay)
	s.NoError(err)

	same, err := s.service.CreateDiscountedPlanIfNeeded(s.GetContext(), resp.Plan, decimal.Zero, nil, types.ProviderRazorpay)
	s.NoError(err)
	s.Equal(resp.Plan.ID, same.ID)
}

func (s *PlanServiceSuite) TestListAndDeletePlans() {
	first, err := s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:         "Basic",
		Currency:     "INR",
		BillingCycle: types.BillingCycleMonthly,
		Amount:       decimal.Zero,
	}, types.ProviderRazorpay)
	s.NoError(err)

	_, err = s.service.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:         "Pro Monthly",
		Currency:     "INR",
		BillingCycle: types.BillingCycleMonthly,
		Amount:       decimal.NewFromInt(999),
	}, types.ProviderRazorpay)
	s.NoError(err)

	list, err := s.service.ListPlans(s.GetContext())
	s.NoError(err)
	s.Equal(2, list.Total)

	s.NoError(s.service.DeletePlan(s.GetContext(), first.Plan.ID))

	list, err = s.service.ListPlans(s.GetContext())
	s.NoError(err)
	s.Equal(1, list.Total)

	_, err = s.service.GetPlan(s.GetContext(), first.Plan.ID)
	s.Error(err)
	s.True(ierr.IsNotFound(err))
}
