package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mandate/internal/binding"
	"mandate/internal/platform/clock"
	"mandate/internal/policy/metrics"
	"mandate/internal/policy/models"
	id "mandate/pkg/domain"
	dErrors "mandate/pkg/domain-errors"
	"mandate/pkg/platform/sentinel"
)

// Store persists immutable policies. CreateIfNoActive must reject, with
// sentinel.ErrAlreadyUsed, a policy whose authority owns one still active at now.
type Store interface {
	CreateIfNoActive(ctx context.Context, p *models.Policy, now time.Time) error
	FindByID(ctx context.Context, policyID id.PolicyID) (*models.Policy, error)
	FindLatestByAuthority(ctx context.Context, authority id.AuthorityID) (*models.Policy, error)
}

// CreatePolicyParams are the terms an authority delegates.
type CreatePolicyParams struct {
	Authority     id.AuthorityID
	MaxSpendUSDC  uint64
	MinConfidence int
	AllowedChains []uint32
	ExpiresAt     time.Time
}

// Service creates and reads policies.
type Service struct {
	store   Store
	clock   clock.Clock
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// New constructs a Service.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("policy store is required")
	}
	s := &Service{
		store:  store,
		clock:  clock.NewMonotonic(),
		logger: slog.Default(),
		tracer: otel.Tracer("mandate/policy"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreatePolicy validates the terms and persists a new immutable policy.
func (s *Service) CreatePolicy(ctx context.Context, params CreatePolicyParams) (*models.Policy, error) {
	ctx, span := s.tracer.Start(ctx, "policy.CreatePolicy",
		trace.WithAttributes(attribute.String("authority", params.Authority.String())))
	defer span.End()

	now := s.clock.Now()
	p, err := models.NewPolicy(
		id.PolicyID(uuid.New()),
		params.Authority,
		params.MaxSpendUSDC,
		params.MinConfidence,
		params.AllowedChains,
		params.ExpiresAt,
		now,
	)
	if err != nil {
		s.metrics.IncrementRejected("invalid")
		span.SetStatus(codes.Error, "invalid policy")
		// Invariant violations surface to callers as validation errors
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.Recode(err, dErrors.CodeValidation)
		}
		return nil, err
	}

	if err := s.store.CreateIfNoActive(ctx, p, now); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.metrics.IncrementRejected("duplicate")
			return nil, dErrors.Wrap(models.ErrDuplicatePolicy, dErrors.CodeConflict,
				"authority already has an active policy")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create policy")
	}

	s.metrics.IncrementCreated()
	s.logger.InfoContext(ctx, "policy created",
		"policy_id", p.ID,
		"authority", p.Authority,
		"policy_hash", binding.BindPolicy(p),
		"expires_at", p.ExpiresAt,
	)
	return p, nil
}

// GetPolicy returns the authority's most recently created policy. It may
// have expired; callers decide what an inactive policy means for them.
func (s *Service) GetPolicy(ctx context.Context, authority id.AuthorityID) (*models.Policy, error) {
	ctx, span := s.tracer.Start(ctx, "policy.GetPolicy")
	defer span.End()

	p, err := s.store.FindLatestByAuthority(ctx, authority)
	if err != nil {
		return nil, s.translateLookupError(span, err)
	}
	return p, nil
}

// GetPolicyByID returns a policy by its reference.
func (s *Service) GetPolicyByID(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	ctx, span := s.tracer.Start(ctx, "policy.GetPolicyByID")
	defer span.End()

	p, err := s.store.FindByID(ctx, policyID)
	if err != nil {
		return nil, s.translateLookupError(span, err)
	}
	return p, nil
}

// Describe pairs a policy with its canonical hash and liveness at the
// service clock.
func (s *Service) Describe(p *models.Policy) *models.PolicyResponse {
	return &models.PolicyResponse{
		Policy:     p,
		PolicyHash: binding.BindPolicy(p).String(),
		Active:     p.IsActive(s.clock.Now()),
	}
}

func (s *Service) translateLookupError(span trace.Span, err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(models.ErrPolicyNotFound, dErrors.CodeNotFound, "policy not found")
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "lookup failed")
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load policy")
}
