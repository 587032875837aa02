package testutil

import (
	"context"
	"sync/atomic"

	"github.com/plexbill/plexbill/internal/domain/rule"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/types"
)

// InMemoryRuleStore implements rule.Repository. It counts plan-rule reads so
// tests can assert cache hits avoid the store.
type InMemoryRuleStore struct {
	rules     *InMemoryStore[*rule.Rule]
	planRules *InMemoryStore[*rule.PlanRule]

	// PlanRuleReads increments on every GetPlanRules call
	PlanRuleReads atomic.Int64
}

func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{
		rules:     NewInMemoryStore[*rule.Rule](),
		planRules: NewInMemoryStore[*rule.PlanRule](),
	}
}

func (s *InMemoryRuleStore) CreateRule(ctx context.Context, r *rule.Rule) error {
	return s.rules.Create(ctx, r.ID, r)
}

func (s *InMemoryRuleStore) GetRule(ctx context.Context, id string) (*rule.Rule, error) {
	r, err := s.rules.Get(ctx, id)
	if err != nil {
		return nil, ierr.NewError("rule not found").
			WithHintf("Rule %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return r, nil
}

func (s *InMemoryRuleStore) ListRules(ctx context.Context, service types.BackendService) ([]*rule.Rule, error) {
	return s.rules.List(ctx, nil, func(ctx context.Context, r *rule.Rule, _ interface{}) bool {
		return service == "" || r.ServiceSlug == service
	}, func(i, j *rule.Rule) bool {
		return i.CreatedAt.Before(j.CreatedAt)
	})
}

func (s *InMemoryRuleStore) UpdateRule(ctx context.Context, r *rule.Rule) error {
	if err := s.rules.Update(ctx, r.ID, r); err != nil {
		return ierr.NewError("rule not found").
			WithHintf("Rule %s does not exist", r.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryRuleStore) AddRuleToPlan(ctx context.Context, pr *rule.PlanRule) error {
	existing, _ := s.planRules.List(ctx, nil, func(ctx context.Context, item *rule.PlanRule, _ interface{}) bool {
		return item.PlanID == pr.PlanID && item.RuleID == pr.RuleID
	}, nil)
	if len(existing) > 0 {
		return ierr.NewError("rule already attached").
			WithHint("The rule is already attached to this plan").
			Mark(ierr.ErrAlreadyExists)
	}
	return s.planRules.Create(ctx, pr.ID, pr)
}

func (s *InMemoryRuleStore) RemoveRuleFromPlan(ctx context.Context, planID, ruleID string) error {
	pairs, _ := s.planRules.List(ctx, nil, func(ctx context.Context, item *rule.PlanRule, _ interface{}) bool {
		return item.PlanID == planID && item.RuleID == ruleID
	}, nil)
	if len(pairs) == 0 {
		return ierr.NewError("rule not attached").
			WithHint("The rule is not attached to this plan").
			Mark(ierr.ErrNotFound)
	}
	return s.planRules.Delete(ctx, pairs[0].ID)
}

func (s *InMemoryRuleStore) GetPlanRules(ctx context.Context, planID string, service types.BackendService) ([]*rule.Rule, error) {
	s.PlanRuleReads.Add(1)

	pairs, _ := s.planRules.List(ctx, nil, func(ctx context.Context, item *rule.PlanRule, _ interface{}) bool {
		return item.PlanID == planID
	}, nil)

	var result []*rule.Rule
	for _, pair := range pairs {
		r, err := s.rules.Get(ctx, pair.RuleID)
		if err != nil {
			continue
		}
		if r.Enabled && r.ServiceSlug == service {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *InMemoryRuleStore) ListPlanRules(ctx context.Context) ([]*rule.PlanRuleGroup, error) {
	pairs, _ := s.planRules.List(ctx, nil, nil, nil)

	grouped := make(map[string]*rule.PlanRuleGroup)
	for _, pair := range pairs {
		r, err := s.rules.Get(ctx, pair.RuleID)
		if err != nil || !r.Enabled {
			continue
		}
		key := pair.PlanID + ":" + string(r.ServiceSlug)
		group, ok := grouped[key]
		if !ok {
			group = &rule.PlanRuleGroup{PlanID: pair.PlanID, Service: r.ServiceSlug}
			grouped[key] = group
		}
		group.Rules = append(group.Rules, r)
	}

	result := make([]*rule.PlanRuleGroup, 0, len(grouped))
	for _, group := range grouped {
		result = append(result, group)
	}
	return result, nil
}
