// Package ledger is the append-only log of refusal and execution records.
// Each record carries a binding to the policy in force when it was written;
// records are keyed by (policy, agent, timestamp) per kind and are never
// updated or deleted.
package ledger

// DefaultListLimit and MaxListLimit bound list reads.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)
