package evaluator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mandate/internal/policy/models"
	"mandate/pkg/testutil"
)

var expiresAt = time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)

func testPolicy() *models.Policy {
	return &models.Policy{
		MaxSpendUSDC:  1000,
		MinConfidence: 70,
		AllowedChains: models.ChainSet{1, 2, 0, 0},
		ExpiresAt:     expiresAt,
	}
}

func passingAction() Action {
	return Action{
		MarketID:      "M1",
		RequestedUSDC: 500,
		Confidence:    80,
		ChainID:       1,
		Now:           expiresAt.Add(-time.Hour),
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(a *Action)
		wantRule   Rule
		wantPassed []Rule
		wantErr    error
	}{
		{
			name:       "all rules pass",
			mutate:     func(*Action) {},
			wantPassed: Rules,
		},
		{
			name:     "expired at exact expiry instant",
			mutate:   func(a *Action) { a.Now = expiresAt },
			wantRule: RuleExpiry,
			wantErr:  ErrPolicyExpired,
		},
		{
			name:       "chain not allowed",
			mutate:     func(a *Action) { a.ChainID = 3 },
			wantRule:   RuleChain,
			wantPassed: []Rule{RuleExpiry},
			wantErr:    ErrChainNotAllowed,
		},
		{
			name:       "unused slot sentinel never allowed",
			mutate:     func(a *Action) { a.ChainID = models.UnusedSlot },
			wantRule:   RuleChain,
			wantPassed: []Rule{RuleExpiry},
			wantErr:    ErrChainNotAllowed,
		},
		{
			name:       "confidence below minimum",
			mutate:     func(a *Action) { a.Confidence = 69 },
			wantRule:   RuleConfidence,
			wantPassed: []Rule{RuleExpiry, RuleChain},
			wantErr:    ErrConfidenceTooLow,
		},
		{
			name:       "spend over cap",
			mutate:     func(a *Action) { a.RequestedUSDC = 5000 },
			wantRule:   RuleSpend,
			wantPassed: []Rule{RuleExpiry, RuleChain, RuleConfidence},
			wantErr:    ErrSpendLimitExceeded,
		},
		{
			name:       "boundaries are inclusive",
			mutate:     func(a *Action) { a.Confidence = 70; a.RequestedUSDC = 1000 },
			wantPassed: Rules,
		},
		{
			name: "first violation wins",
			mutate: func(a *Action) {
				a.Now = expiresAt.Add(time.Hour)
				a.RequestedUSDC = 5000
			},
			wantRule: RuleExpiry,
			wantErr:  ErrPolicyExpired,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := passingAction()
			tt.mutate(&a)
			got := Evaluate(testPolicy(), a)

			assert.Equal(t, tt.wantRule, got.Violated)
			assert.Equal(t, tt.wantRule == "", got.Allowed())
			if tt.wantPassed == nil {
				assert.Empty(t, got.Passed)
			} else {
				assert.Equal(t, tt.wantPassed, got.Passed)
			}
			if tt.wantErr == nil {
				assert.NoError(t, got.Err())
			} else {
				assert.ErrorIs(t, got.Err(), tt.wantErr)
			}
		})
	}
}

func TestParseRule(t *testing.T) {
	for _, r := range Rules {
		got, ok := ParseRule(string(r))
		require.True(t, ok)
		assert.Equal(t, r, got)
	}
	_, ok := ParseRule("slippage")
	assert.False(t, ok)
}

func TestPolicyLifetime(t *testing.T) {
	testutil.Given(t, "a policy allowing chains 1 and 2", func(t *testing.T) {
		p := testPolicy()

		testutil.When(t, "an agent bets on chain 3 before expiry", func(t *testing.T) {
			a := passingAction()
			a.ChainID = 3
			got := Evaluate(p, a)

			testutil.Then(t, "the chain rule refuses it after expiry passed", func(t *testing.T) {
				assert.Equal(t, RuleChain, got.Violated)
				assert.Equal(t, []Rule{RuleExpiry}, got.Passed)
			})
		})

		testutil.When(t, "the same bet is placed after expiry", func(t *testing.T) {
			a := passingAction()
			a.ChainID = 3
			a.Now = expiresAt.Add(time.Minute)
			got := Evaluate(p, a)

			testutil.Then(t, "expiry is reported instead", func(t *testing.T) {
				assert.Equal(t, RuleExpiry, got.Violated)
				assert.Empty(t, got.Passed)
			})
		})
	})
}
