package models

import dErrors "mandate/pkg/domain-errors"

var (
	ErrInvalidConfidence = dErrors.Sentinel("invalid_confidence", "invalid confidence")
	ErrInvalidChainSet   = dErrors.Sentinel("invalid_chain_set", "invalid chain set")
	ErrInvalidExpiry     = dErrors.Sentinel("invalid_expiry", "invalid expiry")
	ErrDuplicatePolicy   = dErrors.Sentinel("duplicate_policy", "duplicate policy")
	ErrPolicyNotFound    = dErrors.Sentinel("policy_not_found", "policy not found")
)
