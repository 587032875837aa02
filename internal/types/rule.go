package types

// RuleScope is the subject a rule applies to
type RuleScope string

const (
	RuleScopeOrganisation RuleScope = "organisation"
	RuleScopeUser         RuleScope = "user"
)

func (s RuleScope) Validate() bool {
	switch s {
	case RuleScopeOrganisation, RuleScopeUser:
		return true
	}
	return false
}

// BackendService tags the service a rule gates. The tag set is free-form
// domain vocabulary carried as an opaque string on rules and cache keys.
type BackendService string
