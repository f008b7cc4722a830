package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"mandate/internal/binding"
	"mandate/internal/ledger/models"
	"mandate/pkg/digest"
	id "mandate/pkg/domain"
	"mandate/pkg/platform/sentinel"
)

var baseTime = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func testRefusal(policyID id.PolicyID, agent id.AgentID, ts time.Time, market string) *models.RefusalLog {
	return &models.RefusalLog{
		PolicyID: policyID,
		Agent:    agent,
		Binding: binding.Binding{
			PolicyHash:   digest.Sum([]byte("policy")),
			DecisionHash: digest.Sum([]byte("refusal/" + market + ts.String())),
		},
		MarketID:      market,
		RuleViolated:  "spend",
		RequestedUSDC: 5000,
		AllowedUSDC:   1000,
		Timestamp:     ts,
	}
}

func testExecution(policyID id.PolicyID, agent id.AgentID, ts time.Time, market string) *models.ExecutionLog {
	return &models.ExecutionLog{
		PolicyID: policyID,
		Agent:    agent,
		Binding: binding.Binding{
			PolicyHash:   digest.Sum([]byte("policy")),
			DecisionHash: digest.Sum([]byte("execution/" + market + ts.String())),
		},
		MarketID:    market,
		RulesPassed: []string{"expiry", "chain", "confidence", "spend"},
		CCTPBurnTx:  "burn",
		CCTPMintTx:  "mint",
		BetTx:       "bet",
		Timestamp:   ts,
	}
}

type LedgerStoreSuite struct {
	suite.Suite
	store    *InMemory
	ctx      context.Context
	policyID id.PolicyID
	agent    id.AgentID
}

func TestLedgerStoreSuite(t *testing.T) {
	suite.Run(t, new(LedgerStoreSuite))
}

func (s *LedgerStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.policyID = id.PolicyID(uuid.New())
	s.agent = id.AgentID(uuid.New())
}

func (s *LedgerStoreSuite) TestAppendRejectsDuplicateKey() {
	first := testRefusal(s.policyID, s.agent, baseTime, "m-1")
	s.Require().NoError(s.store.AppendRefusal(s.ctx, first))

	// Same instant expressed in another location is the same key.
	dup := testRefusal(s.policyID, s.agent, baseTime.In(time.FixedZone("X", 3600)), "m-2")
	s.ErrorIs(s.store.AppendRefusal(s.ctx, dup), sentinel.ErrAlreadyUsed)

	got, err := s.store.GetRefusal(s.ctx, first.Key())
	s.Require().NoError(err)
	s.Equal("m-1", got.MarketID)
}

func (s *LedgerStoreSuite) TestKindsHaveSeparateKeySpaces() {
	s.Require().NoError(s.store.AppendRefusal(s.ctx, testRefusal(s.policyID, s.agent, baseTime, "m")))
	s.NoError(s.store.AppendExecution(s.ctx, testExecution(s.policyID, s.agent, baseTime, "m")))
	s.ErrorIs(s.store.AppendExecution(s.ctx, testExecution(s.policyID, s.agent, baseTime, "m")), sentinel.ErrAlreadyUsed)
}

func (s *LedgerStoreSuite) TestReadsReturnCopies() {
	e := testExecution(s.policyID, s.agent, baseTime, "m")
	s.Require().NoError(s.store.AppendExecution(s.ctx, e))
	e.RulesPassed[0] = "tampered"

	got, err := s.store.GetExecution(s.ctx, e.Key())
	s.Require().NoError(err)
	s.Equal("expiry", got.RulesPassed[0])
	got.RulesPassed[1] = "tampered"

	again, err := s.store.GetExecution(s.ctx, e.Key())
	s.Require().NoError(err)
	s.Equal("chain", again.RulesPassed[1])
}

func (s *LedgerStoreSuite) TestNotFound() {
	key := models.RecordKey{PolicyID: s.policyID, Agent: s.agent, Timestamp: baseTime}
	_, err := s.store.GetRefusal(s.ctx, key)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.GetExecution(s.ctx, key)
	s.ErrorIs(err, sentinel.ErrNotFound)

	found, err := s.store.FindByDecisionHash(s.ctx, digest.Sum([]byte("nothing")))
	s.Require().NoError(err)
	s.True(found.Empty())
}

func (s *LedgerStoreSuite) TestFindByDecisionHash() {
	r := testRefusal(s.policyID, s.agent, baseTime, "m")
	e := testExecution(s.policyID, s.agent, baseTime, "m")
	s.Require().NoError(s.store.AppendRefusal(s.ctx, r))
	s.Require().NoError(s.store.AppendExecution(s.ctx, e))

	found, err := s.store.FindByDecisionHash(s.ctx, r.DecisionHash)
	s.Require().NoError(err)
	s.Len(found.Refusals, 1)
	s.Empty(found.Executions)

	found, err = s.store.FindByDecisionHash(s.ctx, e.DecisionHash)
	s.Require().NoError(err)
	s.Empty(found.Refusals)
	s.Len(found.Executions, 1)
}

func (s *LedgerStoreSuite) TestListScopedToPolicyNewestFirst() {
	other := id.PolicyID(uuid.New())
	for i := range 5 {
		s.Require().NoError(s.store.AppendRefusal(s.ctx,
			testRefusal(s.policyID, s.agent, baseTime.Add(time.Duration(i)*time.Second), "m")))
	}
	s.Require().NoError(s.store.AppendRefusal(s.ctx, testRefusal(other, s.agent, baseTime, "m")))

	got, err := s.store.ListRefusals(s.ctx, s.policyID, 3)
	s.Require().NoError(err)
	s.Require().Len(got, 3)
	s.Equal(baseTime.Add(4*time.Second), got[0].Timestamp)
	s.Equal(baseTime.Add(2*time.Second), got[2].Timestamp)

	none, err := s.store.ListExecutions(s.ctx, s.policyID, 10)
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *LedgerStoreSuite) TestConcurrentAppendsSameKey() {
	const workers = 32
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := testRefusal(s.policyID, s.agent, baseTime, "m-"+uuid.NewString()[:4])
			r.RequestedUSDC = uint64(i)
			if s.store.AppendRefusal(s.ctx, r) == nil {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), accepted.Load())
}
