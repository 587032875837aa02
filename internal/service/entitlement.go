package service

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/plexbill/plexbill/internal/api/dto"
	"github.com/plexbill/plexbill/internal/cache"
	"github.com/plexbill/plexbill/internal/domain/rule"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/samber/lo"
)

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

// EntitlementService owns entitlement rules, their plan associations and the
// derived rule cache. The relational store is authoritative; cache entries
// are an optimization and are rebuilt from it on demand.
type EntitlementService interface {
	CreateRule(ctx context.Context, req *dto.CreateRuleRequest) (*dto.RuleResponse, error)
	ListRules(ctx context.Context, service types.BackendService) (*dto.ListRulesResponse, error)

	// AddRuleToPlan attaches a rule and schedules an async cache refresh
	AddRuleToPlan(ctx context.Context, planID, ruleID string) error
	// RemoveRuleFromPlan detaches a rule and schedules an async cache refresh
	RemoveRuleFromPlan(ctx context.Context, planID, ruleID string) error

	// GetPlanRules returns the cached rule list for a (plan, service) pair,
	// populating the cache from the store on a miss.
	GetPlanRules(ctx context.Context, planID string, service types.BackendService) ([]*rule.View, error)

	// RefreshPlanRules recomputes the cache entry for the (plan, service of
	// the rule) pair. Called from the task runner after association changes.
	RefreshPlanRules(ctx context.Context, planID, ruleID string) error

	// RebuildAll warms every (plan, service) cache entry from the store.
	// Per-group failures are logged and skipped.
	RebuildAll(ctx context.Context) error

	// InvalidateUsageCounters drops the per-rule usage counters of an
	// identity. Counters are plan scoped and must not survive a plan change.
	InvalidateUsageCounters(ctx context.Context, userID string, orgID *string)
}

type entitlementService struct {
	ServiceParams
}

// NewEntitlementService creates a new entitlement service
func NewEntitlementService(params ServiceParams) EntitlementService {
	return &entitlementService{ServiceParams: params}
}

func (s *entitlementService) CreateRule(ctx context.Context, req *dto.CreateRuleRequest) (*dto.RuleResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r := req.ToRule(ctx)
	if err := s.RuleRepo.CreateRule(ctx, r); err != nil {
		return nil, err
	}

	s.Logger.Infow("rule created", "rule_id", r.ID, "rule_slug", r.RuleSlug, "service", r.ServiceSlug)
	return &dto.RuleResponse{Rule: r}, nil
}

func (s *entitlementService) ListRules(ctx context.Context, service types.BackendService) (*dto.ListRulesResponse, error) {
	rules, err := s.RuleRepo.ListRules(ctx, service)
	if err != nil {
		return nil, err
	}

	items := lo.Map(rules, func(r *rule.Rule, _ int) *dto.RuleResponse {
		return &dto.RuleResponse{Rule: r}
	})
	return &dto.ListRulesResponse{Items: items, Total: len(items)}, nil
}

func (s *entitlementService) AddRuleToPlan(ctx context.Context, planID, ruleID string) error {
	if _, err := s.PlanRepo.Get(ctx, planID); err != nil {
		return err
	}
	if _, err := s.RuleRepo.GetRule(ctx, ruleID); err != nil {
		return err
	}

	pr := &rule.PlanRule{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PLAN_RULE),
		PlanID:    planID,
		RuleID:    ruleID,
		BaseModel: types.GetDefaultBaseModel(ctx),
	}
	if err := s.RuleRepo.AddRuleToPlan(ctx, pr); err != nil {
		return err
	}

	s.scheduleRefresh(planID, ruleID)
	return nil
}

func (s *entitlementService) RemoveRuleFromPlan(ctx context.Context, planID, ruleID string) error {
	if err := s.RuleRepo.RemoveRuleFromPlan(ctx, planID, ruleID); err != nil {
		return err
	}

	s.scheduleRefresh(planID, ruleID)
	return nil
}

func (s *entitlementService) scheduleRefresh(planID, ruleID string) {
	s.Tasks.Submit("refresh_plan_rules", func(ctx context.Context) error {
		return s.RefreshPlanRules(ctx, planID, ruleID)
	})
}

func (s *entitlementService) GetPlanRules(ctx context.Context, planID string, service types.BackendService) ([]*rule.View, error) {
	key := cache.PlanRulesKey(string(service), planID)

	if raw, ok := s.Cache.Get(ctx, key); ok {
		var views []*rule.View
		if err := jsonCodec.UnmarshalFromString(raw, &views); err == nil {
			return views, nil
		}
		// A corrupt entry falls through to the store and is overwritten
		s.Logger.Warnw("discarding unreadable cache entry", "key", key)
	}

	views, err := s.loadAndCache(ctx, planID, service)
	if err != nil {
		return nil, err
	}
	return views, nil
}

func (s *entitlementService) RefreshPlanRules(ctx context.Context, planID, ruleID string) error {
	r, err := s.RuleRepo.GetRule(ctx, ruleID)
	if err != nil {
		return err
	}

	_, err = s.loadAndCache(ctx, planID, r.ServiceSlug)
	return err
}

// loadAndCache recomputes a (plan, service) rule list from the store and
// overwrites the cache entry. Entries have no expiration; they live until
// the next refresh.
func (s *entitlementService) loadAndCache(ctx context.Context, planID string, service types.BackendService) ([]*rule.View, error) {
	rules, err := s.RuleRepo.GetPlanRules(ctx, planID, service)
	if err != nil {
		return nil, err
	}

	views := lo.Map(rules, func(r *rule.Rule, _ int) *rule.View {
		return r.ToView()
	})

	raw, err := jsonCodec.MarshalToString(views)
	if err != nil {
		s.Logger.Errorw("failed to serialize rule views", "plan_id", planID, "error", err)
		return views, nil
	}

	s.Cache.Set(ctx, cache.PlanRulesKey(string(service), planID), raw, 0)
	return views, nil
}

func (s *entitlementService) RebuildAll(ctx context.Context) error {
	groups, err := s.RuleRepo.ListPlanRules(ctx)
	if err != nil {
		return err
	}

	for _, group := range groups {
		views := lo.Map(group.Rules, func(r *rule.Rule, _ int) *rule.View {
			return r.ToView()
		})

		raw, err := jsonCodec.MarshalToString(views)
		if err != nil {
			s.Logger.Errorw("skipping cache group",
				"plan_id", group.PlanID,
				"service", group.Service,
				"error", err)
			continue
		}
		s.Cache.Set(ctx, cache.PlanRulesKey(string(group.Service), group.PlanID), raw, 0)
	}

	s.Logger.Infow("entitlement cache warmed", "groups", len(groups))
	return nil
}

func (s *entitlementService) InvalidateUsageCounters(ctx context.Context, userID string, orgID *string) {
	pattern := cache.UserUsagePattern(userID)
	if orgID != nil && *orgID != "" {
		pattern = cache.OrgUsagePattern(*orgID)
	}
	s.Cache.DeleteByPattern(ctx, pattern)
}
