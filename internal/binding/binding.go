// Package binding ties every ledger record to the exact policy snapshot and
// decision it attests. Both hashes are computed over a fixed-width canonical
// encoding so any verifier holding the public fields can rebuild them
// byte-for-byte.
//
// Policy encoding (big-endian):
//
//	"mandate/policy/v1" | u16 len | authority | u64 max_spend_usdc |
//	u8 min_confidence | 4 x u32 allowed_chains | i64 expires_at (unix seconds)
//
// Decision encoding (big-endian):
//
//	"mandate/decision/v1" | u8 kind | 32 byte policy_hash |
//	u16 len | NFC(decision_id) | i64 timestamp (unix nanoseconds)
package binding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"golang.org/x/text/unicode/norm"

	"mandate/internal/policy/models"
	"mandate/pkg/digest"
)

const (
	policyTag   = "mandate/policy/v1"
	decisionTag = "mandate/decision/v1"
)

// Kind discriminates the record a decision hash belongs to, so a refusal and
// an execution for the same market and instant never share a hash.
type Kind uint8

const (
	KindRefusal   Kind = 1
	KindExecution Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindRefusal:
		return "refusal"
	case KindExecution:
		return "execution"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) valid() bool {
	return k == KindRefusal || k == KindExecution
}

var (
	ErrUnknownKind          = errors.New("unknown decision kind")
	ErrIdentifierTooLong    = errors.New("decision identifier exceeds encodable length")
	ErrPolicyHashMismatch   = errors.New("policy hash mismatch")
	ErrDecisionHashMismatch = errors.New("decision hash mismatch")
)

// Binding is the hash pair embedded in every ledger record.
type Binding struct {
	PolicyHash   digest.Digest `json:"policy_hash"`
	DecisionHash digest.Digest `json:"decision_hash"`
}

// Normalize returns the NFC form of s. Identifiers are normalized before they
// are bounds-checked, stored, or hashed, so canonically equivalent inputs
// always bind to the same hash.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

// EncodePolicy returns the canonical policy bytes. The policy ID and creation
// time are references, not terms of the mandate, and are excluded.
func EncodePolicy(p *models.Policy) []byte {
	authority := p.Authority.String()
	buf := make([]byte, 0, len(policyTag)+2+len(authority)+8+1+4*models.MaxChains+8)
	buf = append(buf, policyTag...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(authority)))
	buf = append(buf, authority...)
	buf = binary.BigEndian.AppendUint64(buf, p.MaxSpendUSDC)
	buf = append(buf, p.MinConfidence)
	for _, chain := range p.AllowedChains {
		buf = binary.BigEndian.AppendUint32(buf, uint32(chain))
	}
	buf = binary.BigEndian.AppendUint64(buf, uint64(p.ExpiresAt.Unix()))
	return buf
}

// BindPolicy is the policy hash: the digest of EncodePolicy.
func BindPolicy(p *models.Policy) digest.Digest {
	return digest.Sum(EncodePolicy(p))
}

// EncodeDecision returns the canonical decision bytes.
func EncodeDecision(kind Kind, policyHash digest.Digest, decisionID string, ts time.Time) ([]byte, error) {
	if !kind.valid() {
		return nil, ErrUnknownKind
	}
	id := Normalize(decisionID)
	if len(id) > math.MaxUint16 {
		return nil, ErrIdentifierTooLong
	}
	buf := make([]byte, 0, len(decisionTag)+1+digest.Size+2+len(id)+8)
	buf = append(buf, decisionTag...)
	buf = append(buf, byte(kind))
	buf = append(buf, policyHash[:]...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(id)))
	buf = append(buf, id...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(ts.UnixNano()))
	return buf, nil
}

// BindDecision is the decision hash: the digest of EncodeDecision.
func BindDecision(kind Kind, policyHash digest.Digest, decisionID string, ts time.Time) (digest.Digest, error) {
	encoded, err := EncodeDecision(kind, policyHash, decisionID, ts)
	if err != nil {
		return digest.Digest{}, err
	}
	return digest.Sum(encoded), nil
}

// Bind computes both hashes for a decision taken under p.
func Bind(kind Kind, p *models.Policy, decisionID string, ts time.Time) (Binding, error) {
	policyHash := BindPolicy(p)
	decisionHash, err := BindDecision(kind, policyHash, decisionID, ts)
	if err != nil {
		return Binding{}, err
	}
	return Binding{PolicyHash: policyHash, DecisionHash: decisionHash}, nil
}

// Verify recomputes the binding from public fields and compares it with got.
// The policy hash is checked first so a tampered policy is reported as such
// rather than as a decision mismatch.
func Verify(kind Kind, p *models.Policy, decisionID string, ts time.Time, got Binding) error {
	want, err := Bind(kind, p, decisionID, ts)
	if err != nil {
		return err
	}
	if want.PolicyHash != got.PolicyHash {
		return fmt.Errorf("%w: recorded %s, recomputed %s", ErrPolicyHashMismatch, got.PolicyHash, want.PolicyHash)
	}
	if want.DecisionHash != got.DecisionHash {
		return fmt.Errorf("%w: recorded %s, recomputed %s", ErrDecisionHashMismatch, got.DecisionHash, want.DecisionHash)
	}
	return nil
}
