// Package policy owns the immutable spending policies an authority delegates
// to its agents. Subpackages split the module the usual way: models holds the
// aggregate and its invariants, store persists it, service orchestrates, and
// handler exposes HTTP.
package policy

import "time"

// CacheTTL bounds how long a cached policy snapshot is kept. Policies never
// change after creation, so this only limits memory, never staleness.
var CacheTTL = 10 * time.Minute
