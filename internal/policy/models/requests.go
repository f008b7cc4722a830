package models

import "time"

// CreatePolicyRequest is the HTTP body for POST /v1/policies. The authority is
// taken from the bearer token, never from the body.
type CreatePolicyRequest struct {
	MaxSpendUSDC  uint64    `json:"max_spend_usdc"`
	MinConfidence int       `json:"min_confidence"`
	AllowedChains []uint32  `json:"allowed_chains"`
	ExpiresAt     time.Time `json:"expires_at" validate:"required"`
}

// PolicyResponse pairs a policy with its canonical hash so clients can pin it.
type PolicyResponse struct {
	*Policy
	PolicyHash string `json:"policy_hash"`
	Active     bool   `json:"active"`
}
