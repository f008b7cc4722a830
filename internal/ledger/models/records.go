package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"mandate/internal/binding"
	id "mandate/pkg/domain"
	dErrors "mandate/pkg/domain-errors"
)

// Field bounds in bytes, measured after NFC normalization.
const (
	MaxMarketIDBytes = 64
	MaxRuleBytes     = 32
	MaxTxRefBytes    = 128
)

// RecordKey addresses one record of a given kind. Timestamps are compared at
// nanosecond precision.
type RecordKey struct {
	PolicyID  id.PolicyID
	Agent     id.AgentID
	Timestamp time.Time
}

func (k RecordKey) String() string {
	return fmt.Sprintf("%s/%s/%d", k.PolicyID, k.Agent, k.Timestamp.UnixNano())
}

// RefusalLog records that an agent declined an action because a rule failed.
type RefusalLog struct {
	PolicyID id.PolicyID `json:"policy_id"`
	Agent    id.AgentID  `json:"agent"`
	binding.Binding
	MarketID      string    `json:"market_id"`
	RuleViolated  string    `json:"rule_violated"`
	RequestedUSDC uint64    `json:"requested_usdc"`
	AllowedUSDC   uint64    `json:"allowed_usdc"`
	Timestamp     time.Time `json:"timestamp"`
}

func (r *RefusalLog) Key() RecordKey {
	return RecordKey{PolicyID: r.PolicyID, Agent: r.Agent, Timestamp: r.Timestamp}
}

// ExecutionLog records that an agent acted after every rule passed. The
// transfer and bet references are opaque strings from off-ledger systems.
type ExecutionLog struct {
	PolicyID id.PolicyID `json:"policy_id"`
	Agent    id.AgentID  `json:"agent"`
	binding.Binding
	MarketID    string    `json:"market_id"`
	RulesPassed []string  `json:"rules_passed"`
	CCTPBurnTx  string    `json:"cctp_burn_tx"`
	CCTPMintTx  string    `json:"cctp_mint_tx"`
	BetTx       string    `json:"bet_tx"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e *ExecutionLog) Key() RecordKey {
	return RecordKey{PolicyID: e.PolicyID, Agent: e.Agent, Timestamp: e.Timestamp}
}

// DecisionRecords is every record sharing one decision hash. With the kind
// byte in the hash at most one slice is non-empty, barring a collision.
type DecisionRecords struct {
	Refusals   []*RefusalLog   `json:"refusals"`
	Executions []*ExecutionLog `json:"executions"`
}

func (d *DecisionRecords) Empty() bool {
	return len(d.Refusals) == 0 && len(d.Executions) == 0
}

// BoundedField normalizes value to NFC and rejects it when the result exceeds
// limit bytes. Invalid UTF-8 and NUL bytes are rejected first: neither
// survives JSON or a TEXT column unchanged, so a record holding them could not
// be recomputed from its public fields. The error names the field.
func BoundedField(field, value string, limit int) (string, error) {
	if !utf8.ValidString(value) || strings.IndexByte(value, 0) >= 0 {
		return "", dErrors.Wrap(ErrInvalidEncoding, dErrors.CodeValidation,
			fmt.Sprintf("%s must be valid UTF-8 without NUL bytes", field))
	}
	normalized := binding.Normalize(value)
	if len(normalized) > limit {
		return "", dErrors.Wrap(ErrFieldTooLong, dErrors.CodeValidation,
			fmt.Sprintf("%s exceeds %d bytes", field, limit))
	}
	return normalized, nil
}
