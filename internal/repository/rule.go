package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/plexbill/plexbill/internal/domain/rule"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/logger"
	"github.com/plexbill/plexbill/internal/postgres"
	"github.com/plexbill/plexbill/internal/types"
)

type ruleRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

func NewRuleRepo(client postgres.IClient, logger *logger.Logger) *ruleRepository {
	return &ruleRepository{client: client, logger: logger}
}

func (r *ruleRepository) CreateRule(ctx context.Context, rl *rule.Rule) error {
	r.logger.Debugw("creating rule", "rule_id", rl.ID, "rule_slug", rl.RuleSlug)

	_, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		INSERT INTO rules (
			id, name, description, scope, enabled, rule_slug, rule_class_name,
			service_slug, condition_data, metadata,
			created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :name, :description, :scope, :enabled, :rule_slug, :rule_class_name,
			:service_slug, :condition_data, :metadata,
			:created_at, :updated_at, :created_by, :updated_by
		)`, rl)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create rule").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *ruleRepository) GetRule(ctx context.Context, id string) (*rule.Rule, error) {
	var rl rule.Rule
	err := r.client.Querier(ctx).GetContext(ctx, &rl,
		`SELECT * FROM rules WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ierr.NewError("rule not found").
				WithHintf("Rule with ID %s was not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get rule").
			Mark(ierr.ErrDatabase)
	}
	return &rl, nil
}

func (r *ruleRepository) ListRules(ctx context.Context, service types.BackendService) ([]*rule.Rule, error) {
	var rules []*rule.Rule
	var err error
	if service == "" {
		err = r.client.Querier(ctx).SelectContext(ctx, &rules,
			`SELECT * FROM rules ORDER BY created_at DESC`)
	} else {
		err = r.client.Querier(ctx).SelectContext(ctx, &rules,
			`SELECT * FROM rules WHERE service_slug = $1 ORDER BY created_at DESC`, service)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list rules").
			Mark(ierr.ErrDatabase)
	}
	return rules, nil
}

func (r *ruleRepository) UpdateRule(ctx context.Context, rl *rule.Rule) error {
	result, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		UPDATE rules SET
			name = :name, description = :description, scope = :scope,
			enabled = :enabled, rule_slug = :rule_slug,
			rule_class_name = :rule_class_name, service_slug = :service_slug,
			condition_data = :condition_data, metadata = :metadata,
			updated_at = :updated_at, updated_by = :updated_by
		WHERE id = :id`, rl)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update rule").
			Mark(ierr.ErrDatabase)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ierr.NewError("rule not found").
			WithHintf("Rule with ID %s was not found", rl.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *ruleRepository) AddRuleToPlan(ctx context.Context, pr *rule.PlanRule) error {
	_, err := r.client.Querier(ctx).NamedExecContext(ctx, `
		INSERT INTO plan_rules (
			id, plan_id, rule_id, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :plan_id, :rule_id, :created_at, :updated_at, :created_by, :updated_by
		)`, pr)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("This rule is already attached to the plan").
				WithReportableDetails(map[string]any{
					"plan_id": pr.PlanID,
					"rule_id": pr.RuleID,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to attach rule to plan").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *ruleRepository) RemoveRuleFromPlan(ctx context.Context, planID, ruleID string) error {
	result, err := r.client.Querier(ctx).ExecContext(ctx,
		`DELETE FROM plan_rules WHERE plan_id = $1 AND rule_id = $2`, planID, ruleID)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to detach rule from plan").
			Mark(ierr.ErrDatabase)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ierr.NewError("plan rule not found").
			WithHint("The rule is not attached to the plan").
			WithReportableDetails(map[string]any{
				"plan_id": planID,
				"rule_id": ruleID,
			}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *ruleRepository) GetPlanRules(ctx context.Context, planID string, service types.BackendService) ([]*rule.Rule, error) {
	var rules []*rule.Rule
	err := r.client.Querier(ctx).SelectContext(ctx, &rules, `
		SELECT r.* FROM rules r
		JOIN plan_rules pr ON pr.rule_id = r.id
		WHERE pr.plan_id = $1 AND r.service_slug = $2 AND r.enabled = TRUE
		ORDER BY r.created_at`, planID, service)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to get plan rules").
			Mark(ierr.ErrDatabase)
	}
	return rules, nil
}

func (r *ruleRepository) ListPlanRules(ctx context.Context) ([]*rule.PlanRuleGroup, error) {
	type row struct {
		PlanID string `db:"plan_id"`
		rule.Rule
	}

	var rows []*row
	err := r.client.Querier(ctx).SelectContext(ctx, &rows, `
		SELECT pr.plan_id, r.* FROM rules r
		JOIN plan_rules pr ON pr.rule_id = r.id
		WHERE r.enabled = TRUE
		ORDER BY pr.plan_id, r.service_slug, r.created_at`)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list plan rules").
			Mark(ierr.ErrDatabase)
	}

	groups := make([]*rule.PlanRuleGroup, 0)
	index := make(map[string]*rule.PlanRuleGroup)
	for _, rw := range rows {
		key := rw.PlanID + ":" + string(rw.ServiceSlug)
		group, ok := index[key]
		if !ok {
			group = &rule.PlanRuleGroup{PlanID: rw.PlanID, Service: rw.ServiceSlug}
			index[key] = group
			groups = append(groups, group)
		}
		rl := rw.Rule
		group.Rules = append(group.Rules, &rl)
	}
	return groups, nil
}
