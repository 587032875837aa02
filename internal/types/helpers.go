package types

import (
	"regexp"
	"strings"
	"time"
)

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a url-safe slug from a display name. Slugs are unique per
// entity table, so callers must handle the resulting conflict error.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugPattern.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}

// ParseRFC3339Epoch converts an RFC3339 timestamp to unix seconds, returning
// zero for empty or malformed input.
func ParseRFC3339Epoch(s string) int64 {
	if s == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0
	}
	return t.Unix()
}
