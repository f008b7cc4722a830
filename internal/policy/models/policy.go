package models

import (
	"fmt"
	"time"

	id "mandate/pkg/domain"
	dErrors "mandate/pkg/domain-errors"
)

// MaxConfidence is the upper bound of a confidence score, in percent.
const MaxConfidence = 100

// Policy is the immutable spending mandate an authority delegates to agents.
//
// Invariants:
//   - MinConfidence is in [0, 100]
//   - AllowedChains used slots are contiguous and distinct
//   - ExpiresAt has second precision and was in the future at creation
//   - no field changes after construction; a new mandate is a new Policy
type Policy struct {
	ID            id.PolicyID    `json:"id"`
	Authority     id.AuthorityID `json:"authority"`
	MaxSpendUSDC  uint64         `json:"max_spend_usdc"`
	MinConfidence uint8          `json:"min_confidence"`
	AllowedChains ChainSet       `json:"allowed_chains"`
	ExpiresAt     time.Time      `json:"expires_at"`
	CreatedAt     time.Time      `json:"created_at"`
}

func NewPolicy(
	policyID id.PolicyID,
	authority id.AuthorityID,
	maxSpendUSDC uint64,
	minConfidence int,
	allowedChains []uint32,
	expiresAt time.Time,
	now time.Time,
) (*Policy, error) {
	if authority.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "authority cannot be empty")
	}
	if minConfidence < 0 || minConfidence > MaxConfidence {
		return nil, dErrors.Wrap(ErrInvalidConfidence, dErrors.CodeInvariantViolation,
			fmt.Sprintf("min_confidence must be between 0 and %d, got %d", MaxConfidence, minConfidence))
	}
	chains, err := NewChainSet(allowedChains)
	if err != nil {
		return nil, err
	}
	expiresAt = expiresAt.UTC().Truncate(time.Second)
	if !expiresAt.After(now) {
		return nil, dErrors.Wrap(ErrInvalidExpiry, dErrors.CodeInvariantViolation,
			"expires_at must be in the future")
	}
	return &Policy{
		ID:            policyID,
		Authority:     authority,
		MaxSpendUSDC:  maxSpendUSDC,
		MinConfidence: uint8(minConfidence),
		AllowedChains: chains,
		ExpiresAt:     expiresAt,
		CreatedAt:     now.UTC().Truncate(time.Microsecond),
	}, nil
}

// IsActive reports whether the policy still governs decisions at now.
func (p *Policy) IsActive(now time.Time) bool {
	return now.Before(p.ExpiresAt)
}
