package rule

import (
	"context"

	"github.com/plexbill/plexbill/internal/types"
)

// Repository defines the interface for rule and plan-rule data access
type Repository interface {
	CreateRule(ctx context.Context, rule *Rule) error
	GetRule(ctx context.Context, id string) (*Rule, error)
	ListRules(ctx context.Context, service types.BackendService) ([]*Rule, error)
	UpdateRule(ctx context.Context, rule *Rule) error

	AddRuleToPlan(ctx context.Context, planRule *PlanRule) error
	RemoveRuleFromPlan(ctx context.Context, planID, ruleID string) error
	// GetPlanRules returns the enabled rules attached to a plan for one
	// backend service.
	GetPlanRules(ctx context.Context, planID string, service types.BackendService) ([]*Rule, error)
	// ListPlanRules returns every plan-service pair that has at least one
	// enabled rule attached. Used by the startup cache rebuild.
	ListPlanRules(ctx context.Context) ([]*PlanRuleGroup, error)
}

// PlanRuleGroup is one plan-service bucket of rules
type PlanRuleGroup struct {
	PlanID  string
	Service types.BackendService
	Rules   []*Rule
}
