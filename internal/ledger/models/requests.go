package models

import (
	"time"

	"mandate/internal/binding"
	"mandate/pkg/digest"
)

// LogRefusalRequest is the HTTP body for POST /policies/{policyID}/refusals.
// The agent is the authenticated caller; the timestamp is the server's.
type LogRefusalRequest struct {
	MarketID      string `json:"market_id" validate:"required"`
	RuleViolated  string `json:"rule_violated" validate:"required"`
	RequestedUSDC uint64 `json:"requested_usdc"`
}

// LogExecutionRequest is the HTTP body for POST /policies/{policyID}/executions.
type LogExecutionRequest struct {
	MarketID   string `json:"market_id" validate:"required"`
	CCTPBurnTx string `json:"cctp_burn_tx"`
	CCTPMintTx string `json:"cctp_mint_tx"`
	BetTx      string `json:"bet_tx"`
}

// Verification is the result of recomputing a record's binding.
type Verification struct {
	Kind         string `json:"kind"`
	PolicyID     string `json:"policy_id"`
	Agent        string `json:"agent"`
	Timestamp    string `json:"timestamp"`
	DecisionHash string `json:"decision_hash"`
	Valid        bool   `json:"valid"`
	Reason       string `json:"reason,omitempty"`
}

// VerificationReport covers every record found under a decision hash.
type VerificationReport struct {
	DecisionHash string         `json:"decision_hash"`
	Valid        bool           `json:"valid"`
	Records      []Verification `json:"records"`
}

// Add records the outcome of verifying one record. A non-nil err marks the
// whole report invalid.
func (r *VerificationReport) Add(kind binding.Kind, key RecordKey, hash digest.Digest, err error) {
	v := Verification{
		Kind:         kind.String(),
		PolicyID:     key.PolicyID.String(),
		Agent:        key.Agent.String(),
		Timestamp:    key.Timestamp.Format(time.RFC3339Nano),
		DecisionHash: hash.String(),
		Valid:        err == nil,
	}
	if err != nil {
		v.Reason = err.Error()
		r.Valid = false
	}
	r.Records = append(r.Records, v)
}
