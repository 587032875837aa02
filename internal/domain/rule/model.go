package rule

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/plexbill/plexbill/internal/types"
)

// Rule is an entitlement rule owned by a backend service. The rule engine in
// each service interprets rule_class_name; this system only stores, attaches
// and caches rules.
type Rule struct {
	ID            string               `json:"id" db:"id"`
	Name          string               `json:"name" db:"name"`
	Description   string               `json:"description" db:"description"`
	Scope         types.RuleScope      `json:"scope" db:"scope"`
	Enabled       bool                 `json:"enabled" db:"enabled"`
	RuleSlug      string               `json:"rule_slug" db:"rule_slug"`
	RuleClassName string               `json:"rule_class_name" db:"rule_class_name"`
	ServiceSlug   types.BackendService `json:"service_slug" db:"service_slug"`
	Condition     Condition            `json:"condition_data" db:"condition_data"`
	Metadata      types.Metadata       `json:"metadata" db:"metadata"`
	types.BaseModel
}

// PlanRule attaches a rule to a plan
type PlanRule struct {
	ID     string `json:"id" db:"id"`
	PlanID string `json:"plan_id" db:"plan_id"`
	RuleID string `json:"rule_id" db:"rule_id"`
	types.BaseModel
}

// Condition holds a rule's parameters. request_limit and reset_period are the
// well known keys; everything else round-trips untouched through Extra so
// consuming services can define their own parameters.
type Condition struct {
	RequestLimit *int64                 `json:"request_limit,omitempty"`
	ResetPeriod  string                 `json:"reset_period,omitempty"`
	Extra        map[string]interface{} `json:"-"`
}

func (c Condition) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(c.Extra)+2)
	for k, v := range c.Extra {
		out[k] = v
	}
	if c.RequestLimit != nil {
		out["request_limit"] = *c.RequestLimit
	}
	if c.ResetPeriod != "" {
		out["reset_period"] = c.ResetPeriod
	}
	return json.Marshal(out)
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	raw := make(map[string]interface{})
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if v, ok := raw["request_limit"]; ok {
		if f, ok := v.(float64); ok {
			limit := int64(f)
			c.RequestLimit = &limit
		}
		delete(raw, "request_limit")
	}
	if v, ok := raw["reset_period"]; ok {
		if s, ok := v.(string); ok {
			c.ResetPeriod = s
		}
		delete(raw, "reset_period")
	}
	c.Extra = raw
	return nil
}

// Scan implements the sql.Scanner interface for Condition
func (c *Condition) Scan(value interface{}) error {
	if value == nil {
		*c = Condition{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to unmarshal JSONB value: %v", value)
	}
	return c.UnmarshalJSON(bytes)
}

// Value implements the driver.Valuer interface for Condition
func (c Condition) Value() (driver.Value, error) {
	return c.MarshalJSON()
}

// View is the cache representation of a rule, keyed by rule slug within a
// plan's rule set.
type View struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Scope         types.RuleScope `json:"scope"`
	RuleSlug      string          `json:"rule_slug"`
	RuleClassName string          `json:"rule_class_name"`
	Condition     Condition       `json:"condition"`
}

// ToView converts a rule to its cache shape
func (r *Rule) ToView() *View {
	return &View{
		ID:            r.ID,
		Name:          r.Name,
		Scope:         r.Scope,
		RuleSlug:      r.RuleSlug,
		RuleClassName: r.RuleClassName,
		Condition:     r.Condition,
	}
}
