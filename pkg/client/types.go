package client

import (
	"time"

	"mandate/pkg/digest"
	id "mandate/pkg/domain"
)

type CreatePolicyRequest struct {
	MaxSpendUSDC  uint64    `json:"max_spend_usdc"`
	MinConfidence int       `json:"min_confidence"`
	AllowedChains []uint32  `json:"allowed_chains"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Policy is a stored policy with its canonical hash. AllowedChains keeps the
// server's fixed-width form; zero entries are unused slots.
type Policy struct {
	ID            id.PolicyID    `json:"id"`
	Authority     id.AuthorityID `json:"authority"`
	MaxSpendUSDC  uint64         `json:"max_spend_usdc"`
	MinConfidence uint8          `json:"min_confidence"`
	AllowedChains []uint32       `json:"allowed_chains"`
	ExpiresAt     time.Time      `json:"expires_at"`
	CreatedAt     time.Time      `json:"created_at"`
	PolicyHash    digest.Digest  `json:"policy_hash"`
	Active        bool           `json:"active"`
}

// Chains returns the allowed chain IDs without empty slots.
func (p *Policy) Chains() []uint32 {
	out := make([]uint32, 0, len(p.AllowedChains))
	for _, c := range p.AllowedChains {
		if c != 0 {
			out = append(out, c)
		}
	}
	return out
}

type LogRefusalRequest struct {
	MarketID      string `json:"market_id"`
	RuleViolated  string `json:"rule_violated"`
	RequestedUSDC uint64 `json:"requested_usdc"`
}

type LogExecutionRequest struct {
	MarketID   string `json:"market_id"`
	CCTPBurnTx string `json:"cctp_burn_tx"`
	CCTPMintTx string `json:"cctp_mint_tx"`
	BetTx      string `json:"bet_tx"`
}

type RefusalLog struct {
	PolicyID      id.PolicyID   `json:"policy_id"`
	Agent         id.AgentID    `json:"agent"`
	PolicyHash    digest.Digest `json:"policy_hash"`
	DecisionHash  digest.Digest `json:"decision_hash"`
	MarketID      string        `json:"market_id"`
	RuleViolated  string        `json:"rule_violated"`
	RequestedUSDC uint64        `json:"requested_usdc"`
	AllowedUSDC   uint64        `json:"allowed_usdc"`
	Timestamp     time.Time     `json:"timestamp"`
}

type ExecutionLog struct {
	PolicyID     id.PolicyID   `json:"policy_id"`
	Agent        id.AgentID    `json:"agent"`
	PolicyHash   digest.Digest `json:"policy_hash"`
	DecisionHash digest.Digest `json:"decision_hash"`
	MarketID     string        `json:"market_id"`
	RulesPassed  []string      `json:"rules_passed"`
	CCTPBurnTx   string        `json:"cctp_burn_tx"`
	CCTPMintTx   string        `json:"cctp_mint_tx"`
	BetTx        string        `json:"bet_tx"`
	Timestamp    time.Time     `json:"timestamp"`
}

type DecisionRecords struct {
	Refusals   []RefusalLog   `json:"refusals"`
	Executions []ExecutionLog `json:"executions"`
}

type Verification struct {
	Kind         string `json:"kind"`
	PolicyID     string `json:"policy_id"`
	Agent        string `json:"agent"`
	Timestamp    string `json:"timestamp"`
	DecisionHash string `json:"decision_hash"`
	Valid        bool   `json:"valid"`
	Reason       string `json:"reason,omitempty"`
}

type VerificationReport struct {
	DecisionHash string         `json:"decision_hash"`
	Valid        bool           `json:"valid"`
	Records      []Verification `json:"records"`
}
