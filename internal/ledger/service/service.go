package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mandate/internal/binding"
	"mandate/internal/evaluator"
	"mandate/internal/ledger"
	"mandate/internal/ledger/metrics"
	"mandate/internal/ledger/models"
	"mandate/internal/outbox"
	"mandate/internal/platform/clock"
	policymodels "mandate/internal/policy/models"
	"mandate/pkg/digest"
	id "mandate/pkg/domain"
	dErrors "mandate/pkg/domain-errors"
	"mandate/pkg/platform/sentinel"
)

// Store appends and reads ledger records. Appends must reject an existing
// (policy, agent, timestamp) key of the same kind with sentinel.ErrAlreadyUsed
// and must never overwrite.
type Store interface {
	AppendRefusal(ctx context.Context, r *models.RefusalLog) error
	AppendExecution(ctx context.Context, e *models.ExecutionLog) error
	GetRefusal(ctx context.Context, key models.RecordKey) (*models.RefusalLog, error)
	GetExecution(ctx context.Context, key models.RecordKey) (*models.ExecutionLog, error)
	FindByDecisionHash(ctx context.Context, hash digest.Digest) (*models.DecisionRecords, error)
	ListRefusals(ctx context.Context, policyID id.PolicyID, limit int) ([]*models.RefusalLog, error)
	ListExecutions(ctx context.Context, policyID id.PolicyID, limit int) ([]*models.ExecutionLog, error)
}

// PolicyReader loads the policy a record is bound to. Errors are expected to
// be coded already (policy not found, internal).
type PolicyReader interface {
	GetPolicyByID(ctx context.Context, policyID id.PolicyID) (*policymodels.Policy, error)
}

// LogRefusalParams describe a refusal. The timestamp is always the
// service clock's.
type LogRefusalParams struct {
	PolicyID      id.PolicyID
	Agent         id.AgentID
	MarketID      string
	RuleViolated  string
	RequestedUSDC uint64
}

// LogExecutionParams describe an execution and its off-ledger references.
type LogExecutionParams struct {
	PolicyID   id.PolicyID
	Agent      id.AgentID
	MarketID   string
	CCTPBurnTx string
	CCTPMintTx string
	BetTx      string
}

// Service writes and reads the decision ledger.
type Service struct {
	store     Store
	policies  PolicyReader
	clock     clock.Clock
	publisher outbox.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
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

// WithPublisher streams each record after it is appended. Only for stores
// without a transactional outbox; delivery is best effort.
func WithPublisher(p outbox.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func New(store Store, policies PolicyReader, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	if policies == nil {
		return nil, errors.New("policy reader is required")
	}
	s := &Service{
		store:    store,
		policies: policies,
		clock:    clock.NewMonotonic(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("mandate/ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// LogRefusal binds and appends a refusal under the referenced policy. The
// allowed amount is copied from the policy cap in force.
func (s *Service) LogRefusal(ctx context.Context, params LogRefusalParams) (*models.RefusalLog, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger.LogRefusal", trace.WithAttributes(
		attribute.String("policy_id", params.PolicyID.String()),
		attribute.String("agent", params.Agent.String()),
	))
	defer span.End()
	kind := binding.KindRefusal.String()

	p, err := s.loadPolicy(ctx, params.PolicyID, params.Agent)
	if err != nil {
		s.metrics.IncrementAppendFailure(kind, "invalid")
		return nil, failSpan(span, err)
	}
	marketID, err := models.BoundedField("market_id", params.MarketID, models.MaxMarketIDBytes)
	if err != nil {
		s.metrics.IncrementAppendFailure(kind, "invalid")
		return nil, failSpan(span, err)
	}
	ruleName, err := models.BoundedField("rule_violated", params.RuleViolated, models.MaxRuleBytes)
	if err != nil {
		s.metrics.IncrementAppendFailure(kind, "invalid")
		return nil, failSpan(span, err)
	}
	rule, ok := evaluator.ParseRule(ruleName)
	if !ok {
		s.metrics.IncrementAppendFailure(kind, "invalid")
		return nil, failSpan(span, dErrors.Wrap(models.ErrUnknownRule, dErrors.CodeValidation,
			fmt.Sprintf("rule_violated %q is not one of %v", ruleName, evaluator.Rules)))
	}

	ts := s.clock.Now()
	b, err := binding.Bind(binding.KindRefusal, p, marketID, ts)
	if err != nil {
		return nil, failSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to bind refusal"))
	}
	record := &models.RefusalLog{
		PolicyID:      p.ID,
		Agent:         params.Agent,
		Binding:       b,
		MarketID:      marketID,
		RuleViolated:  string(rule),
		RequestedUSDC: params.RequestedUSDC,
		AllowedUSDC:   p.MaxSpendUSDC,
		Timestamp:     ts,
	}

	if err := s.store.AppendRefusal(ctx, record); err != nil {
		return nil, failSpan(span, s.translateAppendError(kind, record.Key(), err))
	}

	s.publish(ctx, func() (outbox.Event, error) { return ledger.RefusalEvent(record) })
	s.metrics.IncrementRefusal(record.RuleViolated)
	s.metrics.ObserveAppendLatency(kind, time.Since(start))
	s.logger.InfoContext(ctx, "refusal logged",
		"policy_id", record.PolicyID,
		"agent", record.Agent,
		"market_id", record.MarketID,
		"rule", record.RuleViolated,
		"decision_hash", record.DecisionHash,
	)
	return record, nil
}

// LogExecution binds and appends an execution. It records the full rule list
// and does not re-evaluate the policy: the caller attests that every rule
// passed.
func (s *Service) LogExecution(ctx context.Context, params LogExecutionParams) (*models.ExecutionLog, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "ledger.LogExecution", trace.WithAttributes(
		attribute.String("policy_id", params.PolicyID.String()),
		attribute.String("agent", params.Agent.String()),
	))
	defer span.End()
	kind := binding.KindExecution.String()

	p, err := s.loadPolicy(ctx, params.PolicyID, params.Agent)
	if err != nil {
		s.metrics.IncrementAppendFailure(kind, "invalid")
		return nil, failSpan(span, err)
	}
	normalized, err := boundAll(
		boundedField{"market_id", params.MarketID, models.MaxMarketIDBytes},
		boundedField{"cctp_burn_tx", params.CCTPBurnTx, models.MaxTxRefBytes},
		boundedField{"cctp_mint_tx", params.CCTPMintTx, models.MaxTxRefBytes},
		boundedField{"bet_tx", params.BetTx, models.MaxTxRefBytes},
	)
	if err != nil {
		s.metrics.IncrementAppendFailure(kind, "invalid")
		return nil, failSpan(span, err)
	}
	marketID := normalized[0]

	ts := s.clock.Now()
	b, err := binding.Bind(binding.KindExecution, p, marketID, ts)
	if err != nil {
		return nil, failSpan(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to bind execution"))
	}
	rules := make([]string, len(evaluator.Rules))
	for i, r := range evaluator.Rules {
		rules[i] = string(r)
	}
	record := &models.ExecutionLog{
		PolicyID:    p.ID,
		Agent:       params.Agent,
		Binding:     b,
		MarketID:    marketID,
		RulesPassed: rules,
		CCTPBurnTx:  normalized[1],
		CCTPMintTx:  normalized[2],
		BetTx:       normalized[3],
		Timestamp:   ts,
	}

	if err := s.store.AppendExecution(ctx, record); err != nil {
		return nil, failSpan(span, s.translateAppendError(kind, record.Key(), err))
	}

	s.publish(ctx, func() (outbox.Event, error) { return ledger.ExecutionEvent(record) })
	s.metrics.IncrementExecution()
	s.metrics.ObserveAppendLatency(kind, time.Since(start))
	s.logger.InfoContext(ctx, "execution logged",
		"policy_id", record.PolicyID,
		"agent", record.Agent,
		"market_id", record.MarketID,
		"bet_tx", record.BetTx,
		"decision_hash", record.DecisionHash,
	)
	return record, nil
}

func (s *Service) GetRefusal(ctx context.Context, key models.RecordKey) (*models.RefusalLog, error) {
	r, err := s.store.GetRefusal(ctx, key)
	if err != nil {
		return nil, translateReadError(err, "refusal")
	}
	return r, nil
}

func (s *Service) GetExecution(ctx context.Context, key models.RecordKey) (*models.ExecutionLog, error) {
	e, err := s.store.GetExecution(ctx, key)
	if err != nil {
		return nil, translateReadError(err, "execution")
	}
	return e, nil
}

// FindByDecisionHash returns every record carrying hash. No match is a
// not-found error.
func (s *Service) FindByDecisionHash(ctx context.Context, hash digest.Digest) (*models.DecisionRecords, error) {
	records, err := s.store.FindByDecisionHash(ctx, hash)
	if err != nil {
		return nil, translateReadError(err, "decision")
	}
	if records.Empty() {
		return nil, dErrors.Wrap(models.ErrRecordNotFound, dErrors.CodeNotFound,
			"no record with decision hash "+hash.String())
	}
	return records, nil
}

// ListRefusals returns the newest refusals under policyID. A non-positive
// limit selects the default; limits above the maximum are clamped.
func (s *Service) ListRefusals(ctx context.Context, policyID id.PolicyID, limit int) ([]*models.RefusalLog, error) {
	out, err := s.store.ListRefusals(ctx, policyID, clampLimit(limit))
	if err != nil {
		return nil, translateReadError(err, "refusals")
	}
	return out, nil
}

func (s *Service) ListExecutions(ctx context.Context, policyID id.PolicyID, limit int) ([]*models.ExecutionLog, error) {
	out, err := s.store.ListExecutions(ctx, policyID, clampLimit(limit))
	if err != nil {
		return nil, translateReadError(err, "executions")
	}
	return out, nil
}

// VerifyDecision recomputes the binding of every record under hash against
// the policy each references.
func (s *Service) VerifyDecision(ctx context.Context, hash digest.Digest) (*models.VerificationReport, error) {
	ctx, span := s.tracer.Start(ctx, "ledger.VerifyDecision",
		trace.WithAttributes(attribute.String("decision_hash", hash.String())))
	defer span.End()

	records, err := s.FindByDecisionHash(ctx, hash)
	if err != nil {
		return nil, err
	}
	report := &models.VerificationReport{DecisionHash: hash.String(), Valid: true}
	for _, r := range records.Refusals {
		p, err := s.policies.GetPolicyByID(ctx, r.PolicyID)
		if err != nil {
			return nil, err
		}
		report.Add(binding.KindRefusal, r.Key(), r.DecisionHash, ledger.VerifyRefusal(p, r))
	}
	for _, e := range records.Executions {
		p, err := s.policies.GetPolicyByID(ctx, e.PolicyID)
		if err != nil {
			return nil, err
		}
		report.Add(binding.KindExecution, e.Key(), e.DecisionHash, ledger.VerifyExecution(p, e))
	}
	for _, v := range report.Records {
		if v.Valid {
			s.metrics.IncrementVerification("valid")
		} else {
			s.metrics.IncrementVerification("mismatch")
			s.logger.WarnContext(ctx, "ledger binding mismatch",
				"decision_hash", hash,
				"policy_id", v.PolicyID,
				"reason", v.Reason,
			)
		}
	}
	return report, nil
}

func (s *Service) loadPolicy(ctx context.Context, policyID id.PolicyID, agent id.AgentID) (*policymodels.Policy, error) {
	if agent.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "agent is required")
	}
	return s.policies.GetPolicyByID(ctx, policyID)
}

func (s *Service) translateAppendError(kind string, key models.RecordKey, err error) error {
	if errors.Is(err, sentinel.ErrAlreadyUsed) {
		s.metrics.IncrementAppendFailure(kind, "duplicate")
		return dErrors.Wrap(models.ErrDuplicateRecord, dErrors.CodeConflict,
			fmt.Sprintf("%s already recorded for %s", kind, key))
	}
	s.metrics.IncrementAppendFailure(kind, "storage")
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append "+kind)
}

func (s *Service) publish(ctx context.Context, build func() (outbox.Event, error)) {
	if s.publisher == nil {
		return
	}
	event, err := build()
	if err == nil {
		err = s.publisher.Publish(ctx, event)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish ledger event", "error", err)
	}
}

type boundedField struct {
	name  string
	value string
	limit int
}

func boundAll(fields ...boundedField) ([]string, error) {
	out := make([]string, len(fields))
	for i, f := range fields {
		v, err := models.BoundedField(f.name, f.value, f.limit)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func translateReadError(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(models.ErrRecordNotFound, dErrors.CodeNotFound, what+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read "+what)
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return ledger.DefaultListLimit
	case limit > ledger.MaxListLimit:
		return ledger.MaxListLimit
	default:
		return limit
	}
}
