package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"mandate/internal/binding"
	"mandate/internal/platform/clock"
	"mandate/internal/policy/metrics"
	"mandate/internal/policy/models"
	"mandate/internal/policy/service/mocks"
	"mandate/internal/policy/store"
	id "mandate/pkg/domain"
	dErrors "mandate/pkg/domain-errors"
	"mandate/pkg/platform/sentinel"
)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func validParams(authority id.AuthorityID) CreatePolicyParams {
	return CreatePolicyParams{
		Authority:     authority,
		MaxSpendUSDC:  1000,
		MinConfidence: 70,
		AllowedChains: []uint32{1, 8453},
		ExpiresAt:     now.Add(24 * time.Hour),
	}
}

// =============================================================================
// Policy Service Test Suite
// =============================================================================
// Runs against the in-memory store so the duplicate rule is exercised end to
// end; storage failure paths use a gomock store.

type PolicyServiceSuite struct {
	suite.Suite
	ctx       context.Context
	store     *store.InMemory
	metrics   *metrics.Metrics
	registry  *prometheus.Registry
	service   *Service
	authority id.AuthorityID
}

func TestPolicyServiceSuite(t *testing.T) {
	suite.Run(t, new(PolicyServiceSuite))
}

func (s *PolicyServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewInMemory()
	s.registry = prometheus.NewRegistry()
	s.metrics = metrics.New(s.registry)
	s.authority = id.AuthorityID(uuid.New())

	var err error
	s.service, err = New(s.store,
		WithClock(clock.Fixed{At: now}),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
}

func (s *PolicyServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil)
		s.Require().Error(err)
		s.Contains(err.Error(), "policy store is required")
	})
}

func (s *PolicyServiceSuite) TestCreatePolicy() {
	s.Run("valid terms are stored and readable", func() {
		p, err := s.service.CreatePolicy(s.ctx, validParams(s.authority))
		s.Require().NoError(err)
		s.False(p.ID.IsNil())
		s.Equal(s.authority, p.Authority)
		s.Equal(uint64(1000), p.MaxSpendUSDC)
		s.Equal(uint8(70), p.MinConfidence)
		s.Equal(models.ChainSet{1, 8453, 0, 0}, p.AllowedChains)
		s.Equal(now, p.CreatedAt)

		got, err := s.service.GetPolicyByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(p, got)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.PoliciesCreated))
	})

	s.Run("confidence bounds", func() {
		for _, tc := range []struct {
			confidence int
			ok         bool
		}{
			{0, true},
			{100, true},
			{101, false},
			{-1, false},
		} {
			params := validParams(id.AuthorityID(uuid.New()))
			params.MinConfidence = tc.confidence
			_, err := s.service.CreatePolicy(s.ctx, params)
			if tc.ok {
				s.NoError(err, "confidence %d", tc.confidence)
				continue
			}
			s.Require().Error(err, "confidence %d", tc.confidence)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.ErrorIs(err, models.ErrInvalidConfidence)
		}
	})

	s.Run("malformed chain set is a validation error", func() {
		params := validParams(id.AuthorityID(uuid.New()))
		params.AllowedChains = []uint32{1, 2, 3, 4, 5}
		_, err := s.service.CreatePolicy(s.ctx, params)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.ErrorIs(err, models.ErrInvalidChainSet)
	})

	s.Run("expiry in the past is rejected", func() {
		params := validParams(id.AuthorityID(uuid.New()))
		params.ExpiresAt = now.Add(-time.Second)
		_, err := s.service.CreatePolicy(s.ctx, params)
		s.Require().Error(err)
		s.ErrorIs(err, models.ErrInvalidExpiry)
	})
}

func (s *PolicyServiceSuite) TestDuplicatePolicy() {
	_, err := s.service.CreatePolicy(s.ctx, validParams(s.authority))
	s.Require().NoError(err)

	s.Run("second active policy for the same authority conflicts", func() {
		_, err := s.service.CreatePolicy(s.ctx, validParams(s.authority))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.ErrorIs(err, models.ErrDuplicatePolicy)
		s.Equal(1.0, testutil.ToFloat64(s.metrics.CreateRejected.WithLabelValues("duplicate")))
	})

	s.Run("a different authority is unaffected", func() {
		_, err := s.service.CreatePolicy(s.ctx, validParams(id.AuthorityID(uuid.New())))
		s.NoError(err)
	})

	s.Run("a new policy is accepted once the previous one expired", func() {
		later, err := New(s.store, WithClock(clock.Fixed{At: now.Add(48 * time.Hour)}))
		s.Require().NoError(err)
		params := validParams(s.authority)
		params.ExpiresAt = now.Add(72 * time.Hour)

		p, err := later.CreatePolicy(s.ctx, params)
		s.Require().NoError(err)

		current, err := later.GetPolicy(s.ctx, s.authority)
		s.Require().NoError(err)
		s.Equal(p.ID, current.ID)
	})
}

func (s *PolicyServiceSuite) TestGetPolicy() {
	s.Run("unknown authority is not found", func() {
		_, err := s.service.GetPolicy(s.ctx, id.AuthorityID(uuid.New()))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.ErrorIs(err, models.ErrPolicyNotFound)
	})

	s.Run("expired policies stay readable", func() {
		p, err := s.service.CreatePolicy(s.ctx, validParams(s.authority))
		s.Require().NoError(err)

		later, err := New(s.store, WithClock(clock.Fixed{At: now.Add(30 * 24 * time.Hour)}))
		s.Require().NoError(err)
		got, err := later.GetPolicy(s.ctx, s.authority)
		s.Require().NoError(err)
		s.Equal(p.ID, got.ID)
		s.False(later.Describe(got).Active)
	})
}

func (s *PolicyServiceSuite) TestDescribe() {
	p, err := s.service.CreatePolicy(s.ctx, validParams(s.authority))
	s.Require().NoError(err)

	resp := s.service.Describe(p)
	s.Equal(binding.BindPolicy(p).String(), resp.PolicyHash)
	s.True(resp.Active)
}

// =============================================================================
// Storage failure translation (gomock)
// =============================================================================

func TestServiceTranslatesStoreErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockStore := mocks.NewMockStore(ctrl)
	svc, err := New(mockStore, WithClock(clock.Fixed{At: now}))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	authority := id.AuthorityID(uuid.New())
	boom := errors.New("connection reset")

	t.Run("create failure is internal", func(t *testing.T) {
		mockStore.EXPECT().CreateIfNoActive(gomock.Any(), gomock.Any(), now).Return(boom)
		_, err := svc.CreatePolicy(ctx, validParams(authority))
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
		if !errors.Is(err, boom) {
			t.Fatalf("expected cause to be preserved, got %v", err)
		}
	})

	t.Run("wrapped already-used sentinel is a conflict", func(t *testing.T) {
		mockStore.EXPECT().CreateIfNoActive(gomock.Any(), gomock.Any(), now).
			Return(errors.Join(sentinel.ErrAlreadyUsed, boom))
		_, err := svc.CreatePolicy(ctx, validParams(authority))
		if !errors.Is(err, models.ErrDuplicatePolicy) {
			t.Fatalf("expected duplicate policy, got %v", err)
		}
	})

	t.Run("lookup failure is internal", func(t *testing.T) {
		policyID := id.PolicyID(uuid.New())
		mockStore.EXPECT().FindByID(gomock.Any(), policyID).Return(nil, boom)
		_, err := svc.GetPolicyByID(ctx, policyID)
		if !dErrors.HasCode(err, dErrors.CodeInternal) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})

	t.Run("lookup miss is not found", func(t *testing.T) {
		mockStore.EXPECT().FindLatestByAuthority(gomock.Any(), authority).
			Return(nil, sentinel.ErrNotFound)
		_, err := svc.GetPolicy(ctx, authority)
		if !errors.Is(err, models.ErrPolicyNotFound) {
			t.Fatalf("expected policy not found, got %v", err)
		}
	})
}
