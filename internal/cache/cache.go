package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache defines the interface for caching operations. Implementations are
// best-effort: failures are logged by the implementation and never propagated,
// since the relational store remains the source of truth.
type Cache interface {
	// Get retrieves a value from the cache
	// Returns the value and a boolean indicating whether the key was found
	Get(ctx context.Context, key string) (string, bool)

	// Set adds a value to the cache with the specified expiration
	// If expiration is 0, the item never expires (but may be evicted)
	Set(ctx context.Context, key string, value string, expiration time.Duration)

	// Delete removes a key from the cache
	Delete(ctx context.Context, key string)

	// DeleteByPattern removes all keys matching a glob-style pattern
	DeleteByPattern(ctx context.Context, pattern string)

	// Exists reports whether the key is present
	Exists(ctx context.Context, key string) bool

	// Flush removes all items from the cache
	Flush(ctx context.Context)
}

// Key namespaces. The rule-list namespace and the usage-counter namespaces
// share the store but have different invalidation triggers; they must never
// be conflated.
const (
	PrefixPlanRules = "plan_rules"
)

// PlanRulesKey is the cache key holding the serialized rule list for a
// (backend service, plan) pair
func PlanRulesKey(service string, planID string) string {
	return GenerateKey(PrefixPlanRules, service, planID)
}

// UserUsagePattern matches every per-rule usage counter of a user
func UserUsagePattern(userID string) string {
	return fmt.Sprintf("user:%s:rule:*", userID)
}

// OrgUsagePattern matches every per-rule usage counter of an organisation
func OrgUsagePattern(orgID string) string {
	return fmt.Sprintf("org:%s:rule:*", orgID)
}

// GenerateKey creates a cache key from a prefix and a set of parameters
// It joins all parameters with a colon and appends them to the prefix
func GenerateKey(prefix string, params ...interface{}) string {
	parts := make([]string, len(params)+1)
	parts[0] = prefix

	for i, param := range params {
		parts[i+1] = fmt.Sprintf("%v", param)
	}

	return strings.Join(parts, ":")
}
