package binding

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mandate/internal/policy/models"
	"mandate/pkg/digest"
	id "mandate/pkg/domain"
)

var (
	authority = id.AuthorityID(uuid.MustParse("7c9e6679-7425-40de-944b-e07fc1f90ae7"))
	expiresAt = time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	decidedAt = time.Date(2026, 6, 1, 9, 30, 0, 123456789, time.UTC)
)

func scenarioPolicy() *models.Policy {
	return &models.Policy{
		ID:            id.PolicyID(uuid.New()),
		Authority:     authority,
		MaxSpendUSDC:  1000,
		MinConfidence: 70,
		AllowedChains: models.ChainSet{1, 2, 0, 0},
		ExpiresAt:     expiresAt,
	}
}

func TestEncodePolicy_Layout(t *testing.T) {
	enc := EncodePolicy(scenarioPolicy())

	auth := authority.String()
	off := 0
	assert.Equal(t, policyTag, string(enc[off:off+len(policyTag)]))
	off += len(policyTag)
	assert.Equal(t, uint16(len(auth)), binary.BigEndian.Uint16(enc[off:]))
	off += 2
	assert.Equal(t, auth, string(enc[off:off+len(auth)]))
	off += len(auth)
	assert.Equal(t, uint64(1000), binary.BigEndian.Uint64(enc[off:]))
	off += 8
	assert.Equal(t, byte(70), enc[off])
	off++
	for i, want := range []uint32{1, 2, 0, 0} {
		assert.Equal(t, want, binary.BigEndian.Uint32(enc[off:]), "chain slot %d", i)
		off += 4
	}
	assert.Equal(t, uint64(expiresAt.Unix()), binary.BigEndian.Uint64(enc[off:]))
	off += 8
	assert.Equal(t, len(enc), off)
}

func TestBindPolicy_Deterministic(t *testing.T) {
	a := scenarioPolicy()
	b := scenarioPolicy()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, BindPolicy(a), BindPolicy(b), "id is not part of the mandate")
	assert.Equal(t, BindPolicy(a), BindPolicy(a))
}

func TestBindPolicy_EveryFieldChangesHash(t *testing.T) {
	base := BindPolicy(scenarioPolicy())
	mutations := map[string]func(p *models.Policy){
		"authority":      func(p *models.Policy) { p.Authority = id.AuthorityID(uuid.New()) },
		"max spend +1":   func(p *models.Policy) { p.MaxSpendUSDC = 1001 },
		"min confidence": func(p *models.Policy) { p.MinConfidence = 71 },
		"chain slot":     func(p *models.Policy) { p.AllowedChains = models.ChainSet{1, 3, 0, 0} },
		"chain order":    func(p *models.Policy) { p.AllowedChains = models.ChainSet{2, 1, 0, 0} },
		"expiry +1s":     func(p *models.Policy) { p.ExpiresAt = expiresAt.Add(time.Second) },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			p := scenarioPolicy()
			mutate(p)
			assert.NotEqual(t, base, BindPolicy(p))
		})
	}
}

func TestBindPolicy_MatchesIndependentRecomputation(t *testing.T) {
	p := scenarioPolicy()

	var manual []byte
	manual = append(manual, "mandate/policy/v1"...)
	manual = append(manual, 0, 36)
	manual = append(manual, "7c9e6679-7425-40de-944b-e07fc1f90ae7"...)
	manual = binary.BigEndian.AppendUint64(manual, 1000)
	manual = append(manual, 70)
	manual = append(manual, 0, 0, 0, 1, 0, 0, 0, 2, 0, 0, 0, 0, 0, 0, 0, 0)
	manual = binary.BigEndian.AppendUint64(manual, uint64(expiresAt.Unix()))

	assert.Equal(t, digest.Sum(manual), BindPolicy(p))
}

func TestBindDecision_InputsChangeHash(t *testing.T) {
	ph := BindPolicy(scenarioPolicy())
	base, err := BindDecision(KindRefusal, ph, "M1", decidedAt)
	require.NoError(t, err)

	again, err := BindDecision(KindRefusal, ph, "M1", decidedAt)
	require.NoError(t, err)
	assert.Equal(t, base, again)

	cases := map[string]func() (digest.Digest, error){
		"timestamp +1ns": func() (digest.Digest, error) {
			return BindDecision(KindRefusal, ph, "M1", decidedAt.Add(time.Nanosecond))
		},
		"market": func() (digest.Digest, error) {
			return BindDecision(KindRefusal, ph, "M2", decidedAt)
		},
		"kind": func() (digest.Digest, error) {
			return BindDecision(KindExecution, ph, "M1", decidedAt)
		},
		"policy hash": func() (digest.Digest, error) {
			other := scenarioPolicy()
			other.MaxSpendUSDC = 999
			return BindDecision(KindRefusal, BindPolicy(other), "M1", decidedAt)
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := fn()
			require.NoError(t, err)
			assert.NotEqual(t, base, got)
		})
	}
}

func TestBindDecision_NormalizesIdentifier(t *testing.T) {
	ph := BindPolicy(scenarioPolicy())
	composed, err := BindDecision(KindRefusal, ph, "caf\u00e9", decidedAt)
	require.NoError(t, err)
	decomposed, err := BindDecision(KindRefusal, ph, "cafe\u0301", decidedAt)
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestBindDecision_RejectsUnknownKind(t *testing.T) {
	_, err := BindDecision(Kind(0), digest.Digest{}, "M1", decidedAt)
	require.ErrorIs(t, err, ErrUnknownKind)
	_, err = BindDecision(Kind(3), digest.Digest{}, "M1", decidedAt)
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestVerify(t *testing.T) {
	p := scenarioPolicy()
	b, err := Bind(KindExecution, p, "M2", decidedAt)
	require.NoError(t, err)

	require.NoError(t, Verify(KindExecution, p, "M2", decidedAt, b))

	t.Run("tampered policy", func(t *testing.T) {
		tampered := *p
		tampered.MaxSpendUSDC = 1_000_000
		err := Verify(KindExecution, &tampered, "M2", decidedAt, b)
		assert.ErrorIs(t, err, ErrPolicyHashMismatch)
	})
	t.Run("tampered timestamp", func(t *testing.T) {
		err := Verify(KindExecution, p, "M2", decidedAt.Add(-time.Second), b)
		assert.ErrorIs(t, err, ErrDecisionHashMismatch)
	})
	t.Run("wrong kind", func(t *testing.T) {
		err := Verify(KindRefusal, p, "M2", decidedAt, b)
		assert.ErrorIs(t, err, ErrDecisionHashMismatch)
	})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "refusal", KindRefusal.String())
	assert.Equal(t, "execution", KindExecution.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
