package models

import (
	"strings"
	"time"
)

// Limit is a request budget over a sliding window.
type Limit struct {
	RequestsPerWindow int
	Window            time.Duration
}

// Result is the outcome of one limiter check.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, set when denied
}

// Class groups endpoints that share a budget.
type Class string

const (
	ClassWrite Class = "write"
	ClassRead  Class = "read"
)

// SanitizeKeySegment escapes the key delimiter so a caller supplied segment
// cannot spill into an adjacent bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// NewKey builds the bucket key for a caller and class.
func NewKey(caller string, class Class) string {
	return "mandate:rl:" + string(class) + ":" + SanitizeKeySegment(caller)
}
