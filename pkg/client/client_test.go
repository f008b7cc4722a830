package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	jwttoken "mandate/internal/jwt_token"
	ledgerhandler "mandate/internal/ledger/handler"
	ledgerservice "mandate/internal/ledger/service"
	ledgerstore "mandate/internal/ledger/store"
	policyhandler "mandate/internal/policy/handler"
	policyservice "mandate/internal/policy/service"
	policystore "mandate/internal/policy/store"
	httptransport "mandate/internal/transport/http"
	"mandate/pkg/client"
	"mandate/pkg/digest"
	id "mandate/pkg/domain"
	"mandate/pkg/requestcontext"
)

// ClientSuite drives the client against the real router backed by memory stores.
type ClientSuite struct {
	suite.Suite
	server    *httptest.Server
	tokens    *jwttoken.JWTService
	authority id.PrincipalID
	agent     id.PrincipalID
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientSuite))
}

func (s *ClientSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.tokens = jwttoken.NewJWTService("client-test-signing-key", "mandate", "mandate-api")
	s.authority = id.PrincipalID(uuid.New())
	s.agent = id.PrincipalID(uuid.New())

	policies, err := policyservice.New(policystore.NewInMemory())
	s.Require().NoError(err)
	ledger, err := ledgerservice.New(ledgerstore.NewInMemory(), policies)
	s.Require().NoError(err)

	s.server = httptest.NewServer(httptransport.NewRouter(httptransport.Deps{
		Logger: logger,
		Tokens: jwttoken.NewJWTServiceAdapter(s.tokens),
		Modules: []httptransport.Module{
			policyhandler.New(policies, logger),
			ledgerhandler.New(ledger, logger),
		},
	}))
}

func (s *ClientSuite) TearDownTest() {
	s.server.Close()
}

func (s *ClientSuite) clientFor(principal id.PrincipalID, role requestcontext.Role) *client.Client {
	token, err := s.tokens.GenerateAccessToken(principal, role, time.Hour)
	s.Require().NoError(err)
	return client.New(s.server.URL, client.WithToken(token))
}

func (s *ClientSuite) TestPolicyAndDecisionFlow() {
	ctx := context.Background()
	authority := s.clientFor(s.authority, requestcontext.RoleAuthority)
	agent := s.clientFor(s.agent, requestcontext.RoleAgent)

	policy, err := authority.CreatePolicy(ctx, client.CreatePolicyRequest{
		MaxSpendUSDC:  500,
		MinConfidence: 65,
		AllowedChains: []uint32{8453},
		ExpiresAt:     time.Now().Add(2 * time.Hour),
	})
	s.Require().NoError(err)
	s.True(policy.Active)
	s.Equal([]uint32{8453}, policy.Chains())
	s.False(policy.PolicyHash.IsZero())

	current, err := agent.CurrentPolicy(ctx, s.authority.AsAuthority())
	s.Require().NoError(err)
	s.Equal(policy.ID, current.ID)
	s.Equal(policy.PolicyHash, current.PolicyHash)

	refusal, err := agent.LogRefusal(ctx, policy.ID, client.LogRefusalRequest{
		MarketID:      "sol-etf-approval",
		RuleViolated:  "spend",
		RequestedUSDC: 900,
	})
	s.Require().NoError(err)
	s.Equal(uint64(500), refusal.AllowedUSDC)
	s.Equal(policy.PolicyHash, refusal.PolicyHash)

	execution, err := agent.LogExecution(ctx, policy.ID, client.LogExecutionRequest{
		MarketID:   "sol-etf-approval",
		CCTPBurnTx: "burn-1",
		CCTPMintTx: "mint-1",
		BetTx:      "bet-1",
	})
	s.Require().NoError(err)
	s.Equal([]string{"expiry", "chain", "confidence", "spend"}, execution.RulesPassed)

	refusals, err := agent.ListRefusals(ctx, policy.ID, 10)
	s.Require().NoError(err)
	s.Len(refusals, 1)

	executions, err := agent.ListExecutions(ctx, policy.ID, 0)
	s.Require().NoError(err)
	s.Len(executions, 1)

	found, err := agent.FindDecision(ctx, execution.DecisionHash)
	s.Require().NoError(err)
	s.Len(found.Executions, 1)
	s.Empty(found.Refusals)

	anonymous := client.New(s.server.URL)
	report, err := anonymous.Verify(ctx, refusal.DecisionHash)
	s.Require().NoError(err)
	s.True(report.Valid)
	s.Require().Len(report.Records, 1)
	s.Equal("refusal", report.Records[0].Kind)
}

func (s *ClientSuite) TestErrors() {
	ctx := context.Background()
	agent := s.clientFor(s.agent, requestcontext.RoleAgent)

	s.Run("unknown policy decodes as not found", func() {
		_, err := agent.GetPolicy(ctx, id.PolicyID(uuid.New()))
		s.Require().Error(err)
		s.True(client.IsNotFound(err))

		var apiErr *client.APIError
		s.Require().ErrorAs(err, &apiErr)
		s.Equal("not_found", apiErr.Code)
		s.Equal("policy_not_found", apiErr.Reason)
		s.NotEmpty(apiErr.RequestID)
		s.True(client.HasReason(err, "policy_not_found"))
	})

	s.Run("invariant failures carry a specific reason", func() {
		authority := s.clientFor(s.authority, requestcontext.RoleAuthority)
		_, err := authority.CreatePolicy(ctx, client.CreatePolicyRequest{
			MaxSpendUSDC:  1,
			MinConfidence: 101,
			AllowedChains: []uint32{1},
			ExpiresAt:     time.Now().Add(time.Hour),
		})
		s.Require().Error(err)
		s.True(client.HasReason(err, "invalid_confidence"))
		s.False(client.HasReason(err, "invalid_expiry"))
	})

	s.Run("wrong role is forbidden", func() {
		_, err := agent.CreatePolicy(ctx, client.CreatePolicyRequest{ExpiresAt: time.Now().Add(time.Hour)})
		var apiErr *client.APIError
		s.Require().ErrorAs(err, &apiErr)
		s.Equal(http.StatusForbidden, apiErr.StatusCode)
	})

	s.Run("verify of an unknown decision", func() {
		_, err := client.New(s.server.URL).Verify(ctx, digest.Sum([]byte("nothing")))
		s.True(client.IsNotFound(err))
	})
}

func TestRetriesIdempotentReads(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"decision_hash":"x","valid":true,"records":[]}`)
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithRetry(client.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond}))
	report, err := c.Verify(context.Background(), digest.Sum([]byte("d")))
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoesNotRetryWrites(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, "upstream gone")
	}))
	defer srv.Close()

	c := client.New(srv.URL, client.WithRetry(client.RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond}))
	_, err := c.LogRefusal(context.Background(), id.PolicyID(uuid.New()), client.LogRefusalRequest{MarketID: "m", RuleViolated: "spend"})

	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Equal(t, "bad_gateway", apiErr.Code)
	assert.True(t, strings.Contains(apiErr.Description, "upstream"))
	assert.Equal(t, int32(1), calls.Load())
}
