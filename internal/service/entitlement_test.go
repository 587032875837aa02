package service

import (
	"testing"

	"github.com/plexbill/plexbill/internal/api/dto"
	"github.com/plexbill/plexbill/internal/domain/rule"
	"github.com/plexbill/plexbill/internal/integration"
	"github.com/plexbill/plexbill/internal/testutil"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type EntitlementServiceSuite struct {
	testutil.BaseServiceTestSuite
	service     EntitlementService
	planService PlanService
}

func TestEntitlementService(t *testing.T) {
	suite.Run(t, new(EntitlementServiceSuite))
}

func (s *EntitlementServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	params := s.newParams()
	s.service = NewEntitlementService(params)
	s.planService = NewPlanService(params)
}

func (s *EntitlementServiceSuite) newParams() ServiceParams {
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
		Gateways:      integration.NewFactory(testutil.NewMockGateway(types.ProviderRazorpay)),
	}
}

func (s *EntitlementServiceSuite) createPlan(name string) string {
	resp, err := s.planService.CreatePlan(s.GetContext(), &dto.CreatePlanRequest{
		Name:         name,
		Currency:     "INR",
		BillingCycle: types.BillingCycleMonthly,
		Amount:       decimal.Zero,
	}, types.ProviderRazorpay)
	s.NoError(err)
	return resp.Plan.ID
}

func (s *EntitlementServiceSuite) createRule(name string, service types.BackendService) string {
	limit := int64(100)
	resp, err := s.service.CreateRule(s.GetContext(), &dto.CreateRuleRequest{
		Name:          name,
		Scope:         types.RuleScopeUser,
		RuleClassName: "RequestLimitRule",
		ServiceSlug:   service,
		Condition:     rule.Condition{RequestLimit: &limit, ResetPeriod: "daily"},
	})
	s.NoError(err)
	return resp.Rule.ID
}

func (s *EntitlementServiceSuite) TestGetPlanRulesReadThrough() {
	planID := s.createPlan("Streaming Basic")
	ruleID := s.createRule("Stream request cap", "streaming")
	s.NoError(s.service.AddRuleToPlan(s.GetContext(), planID, ruleID))

	rules := s.GetStores().Rules
	rules.PlanRuleReads.Store(0)

	views, err := s.service.GetPlanRules(s.GetContext(), planID, "streaming")
	s.NoError(err)
	s.Len(views, 1)
	s.Equal(ruleID, views[0].ID)

	// The attach already warmed the cache, so the read never hit the store
	s.Equal(int64(0), rules.PlanRuleReads.Load())
}

func (s *EntitlementServiceSuite) TestGetPlanRulesCacheMiss() {
	planID := s.createPlan("Streaming Pro")
	ruleID := s.createRule("Pro request cap", "streaming")
	s.NoError(s.service.AddRuleToPlan(s.GetContext(), planID, ruleID))

	s.GetCache().Flush(s.GetContext())
	rules := s.GetStores().Rules
	rules.PlanRuleReads.Store(0)

	// First read populates the cache from the store
	views, err := s.service.GetPlanRules(s.GetContext(), planID, "streaming")
	s.NoError(err)
	s.Len(views, 1)
	s.Equal(int64(1), rules.PlanRuleReads.Load())

	// Second read is served from the cache
	views, err = s.service.GetPlanRules(s.GetContext(), planID, "streaming")
	s.NoError(err)
	s.Len(views, 1)
	s.Equal(int64(1), rules.PlanRuleReads.Load())
}

func (s *EntitlementServiceSuite) TestRemoveRuleRefreshesCache() {
	planID := s.createPlan("Transcode Basic")
	ruleID := s.createRule("Transcode cap", "transcoding")
	s.NoError(s.service.AddRuleToPlan(s.GetContext(), planID, ruleID))

	views, err := s.service.GetPlanRules(s.GetContext(), planID, "transcoding")
	s.NoError(err)
	s.Len(views, 1)

	s.NoError(s.service.RemoveRuleFromPlan(s.GetContext(), planID, ruleID))

	views, err = s.service.GetPlanRules(s.GetContext(), planID, "transcoding")
	s.NoError(err)
	s.Len(views, 0)
}

func (s *EntitlementServiceSuite) TestRebuildAll() {
	planID := s.createPlan("Rebuild Plan")
	ruleID := s.createRule("Rebuild cap", "streaming")
	s.NoError(s.service.AddRuleToPlan(s.GetContext(), planID, ruleID))

	s.GetCache().Flush(s.GetContext())
	s.NoError(s.service.RebuildAll(s.GetContext()))

	rules := s.GetStores().Rules
	rules.PlanRuleReads.Store(0)

	views, err := s.service.GetPlanRules(s.GetContext(), planID, "streaming")
	s.NoError(err)
	s.Len(views, 1)
	s.Equal(int64(0), rules.PlanRuleReads.Load())
}

func (s *EntitlementServiceSuite) TestInvalidateUsageCounters() {
	ctx := s.GetContext()
	cache := s.GetCache()

	cache.Set(ctx, "user:u1:rule:api_cap", "5", 0)
	cache.Set(ctx, "user:u2:rule:api_cap", "7", 0)

	s.service.InvalidateUsageCounters(ctx, "u1", nil)

	s.False(cache.Exists(ctx, "user:u1:rule:api_cap"))
	s.True(cache.Exists(ctx, "user:u2:rule:api_cap"))
}

func (s *EntitlementServiceSuite) TestInvalidateOrgUsageCounters() {
	ctx := s.GetContext()
	cache := s.GetCache()

	cache.Set(ctx, "org:o1:rule:api_cap", "3", 0)
	cache.Set(ctx, "user:u1:rule:api_cap", "5", 0)

	orgID := "o1"
	s.service.InvalidateUsageCounters(ctx, "u1", &orgID)

	s.False(cache.Exists(ctx, "org:o1:rule:api_cap"))
	// Org scoped invalidation leaves user counters alone
	s.True(cache.Exists(ctx, "user:u1:rule:api_cap"))
}
