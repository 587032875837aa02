package dto

import (
	"context"

	"github.com/plexbill/plexbill/internal/domain/rule"
	ierr "github.com/plexbill/plexbill/internal/errors"
	"github.com/plexbill/plexbill/internal/types"
	"github.com/plexbill/plexbill/internal/validator"
)

type CreateRuleRequest struct {
	Name          string               `json:"name" validate:"required"`
	Description   string               `json:"description"`
	Scope         types.RuleScope      `json:"scope" validate:"required"`
	Enabled       *bool                `json:"enabled"`
	RuleClassName string               `json:"rule_class_name" validate:"required"`
	ServiceSlug   types.BackendService `json:"service_slug" validate:"required"`
	Condition     rule.Condition       `json:"condition_data"`
	Metadata      types.Metadata       `json:"metadata"`
}

func (r *CreateRuleRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if !r.Scope.Validate() {
		return ierr.NewError("invalid rule scope").
			WithHintf("Scope %s is not supported", r.Scope).
			Mark(ierr.ErrValidation)
	}
	return nil
}

func (r *CreateRuleRequest) ToRule(ctx context.Context) *rule.Rule {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return &rule.Rule{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RULE),
		Name:          r.Name,
		Description:   r.Description,
		Scope:         r.Scope,
		Enabled:       enabled,
		RuleSlug:      types.Slugify(r.Name),
		RuleClassName: r.RuleClassName,
		ServiceSlug:   r.ServiceSlug,
		Condition:     r.Condition,
		Metadata:      r.Metadata,
		BaseModel:     types.GetDefaultBaseModel(ctx),
	}
}

type AttachRuleRequest struct {
	RuleID string `json:"rule_id" validate:"required"`
}

func (r *AttachRuleRequest) Validate() error {
	return validator.ValidateRequest(r)
}

type RuleResponse struct {
	*rule.Rule
}

type ListRulesResponse struct {
	Items []*RuleResponse `json:"items"`
	Total int             `json:"total"`
}
