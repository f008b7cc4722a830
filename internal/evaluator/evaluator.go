// Package evaluator checks a proposed action against a policy. It is pure
// domain logic: no I/O, no clock reads; the caller supplies the time.
package evaluator

import (
	"errors"
	"time"

	"mandate/internal/policy/models"
)

// Rule names a single policy constraint. The ledger records these exact
// strings, so the evaluator and the audit trail share one vocabulary.
type Rule string

const (
	RuleExpiry     Rule = "expiry"
	RuleChain      Rule = "chain"
	RuleConfidence Rule = "confidence"
	RuleSpend      Rule = "spend"
)

// Rules is the fixed evaluation order. An execution record attests to all of
// them, in this order.
var Rules = []Rule{RuleExpiry, RuleChain, RuleConfidence, RuleSpend}

// Outcome errors. They describe why a refusal happened; they are recorded,
// not returned from ledger writes.
var (
	ErrPolicyExpired      = errors.New("policy expired")
	ErrChainNotAllowed    = errors.New("chain not allowed")
	ErrConfidenceTooLow   = errors.New("confidence too low")
	ErrSpendLimitExceeded = errors.New("spend limit exceeded")
)

// ParseRule maps a recorded name back to a Rule.
func ParseRule(s string) (Rule, bool) {
	for _, r := range Rules {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Err is the outcome error for a violated rule.
func (r Rule) Err() error {
	switch r {
	case RuleExpiry:
		return ErrPolicyExpired
	case RuleChain:
		return ErrChainNotAllowed
	case RuleConfidence:
		return ErrConfidenceTooLow
	case RuleSpend:
		return ErrSpendLimitExceeded
	default:
		return nil
	}
}

// Action is a proposed spend the agent wants to make.
type Action struct {
	MarketID      string
	RequestedUSDC uint64
	Confidence    uint8
	ChainID       models.ChainID
	Now           time.Time
}

// Evaluation is the result of running the rule chain. Passed lists the rules
// that held, in order; Violated is empty when every rule passed.
type Evaluation struct {
	Passed   []Rule
	Violated Rule
}

// Allowed reports whether every rule passed.
func (e Evaluation) Allowed() bool {
	return e.Violated == ""
}

// Err returns the outcome error of the violated rule, or nil.
func (e Evaluation) Err() error {
	return e.Violated.Err()
}

// Evaluate applies the rule chain.
// Rule priority (fail-fast):
//  1. Expiry: now is strictly before expires_at
//  2. Chain: the destination chain is in the allowlist
//  3. Confidence: score meets the minimum
//  4. Spend: request does not exceed the cap
func Evaluate(p *models.Policy, a Action) Evaluation {
	checks := [...]struct {
		rule Rule
		ok   bool
	}{
		{RuleExpiry, a.Now.Before(p.ExpiresAt)},
		{RuleChain, p.AllowedChains.Contains(a.ChainID)},
		{RuleConfidence, a.Confidence >= p.MinConfidence},
		{RuleSpend, a.RequestedUSDC <= p.MaxSpendUSDC},
	}
	passed := make([]Rule, 0, len(checks))
	for _, c := range checks {
		if !c.ok {
			return Evaluation{Passed: passed, Violated: c.rule}
		}
		passed = append(passed, c.rule)
	}
	return Evaluation{Passed: passed}
}
