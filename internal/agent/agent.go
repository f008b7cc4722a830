// Package agent runs the decision loop on the agent side: for each
// opportunity it evaluates the policy locally, then either logs a refusal or
// executes and logs the execution. Nothing is spent without a passing
// evaluation, and nothing is logged as executed unless the executor succeeded.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"mandate/internal/evaluator"
	"mandate/internal/platform/clock"
	"mandate/internal/policy/models"
	"mandate/pkg/client"
	id "mandate/pkg/domain"
)

const defaultConcurrency = 4

var ErrExecutionFailed = errors.New("execution failed")

// PolicySource loads the authority's current policy.
type PolicySource interface {
	CurrentPolicy(ctx context.Context, authority id.AuthorityID) (*models.Policy, error)
}

// Ledger records decisions. *client.Client satisfies it.
type Ledger interface {
	LogRefusal(ctx context.Context, policyID id.PolicyID, req client.LogRefusalRequest) (*client.RefusalLog, error)
	LogExecution(ctx context.Context, policyID id.PolicyID, req client.LogExecutionRequest) (*client.ExecutionLog, error)
}

// Executor bridges funds and places the bet for an allowed opportunity.
type Executor interface {
	Execute(ctx context.Context, opp Opportunity) (Receipt, error)
}

// Receipt carries the transaction references of an execution.
type Receipt struct {
	BurnTx string
	MintTx string
	BetTx  string
}

// Outcome is what happened to one opportunity. Exactly one of Refusal,
// Execution or Err is set.
type Outcome struct {
	Opportunity Opportunity
	Evaluation  evaluator.Evaluation
	Refusal     *client.RefusalLog
	Execution   *client.ExecutionLog
	Err         error
}

type Runner struct {
	source      PolicySource
	ledger      Ledger
	executor    Executor
	clock       clock.Clock
	logger      *slog.Logger
	concurrency int
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithClock(c clock.Clock) Option {
	return func(r *Runner) {
		r.clock = c
	}
}

// WithConcurrency bounds how many opportunities are decided at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func NewRunner(source PolicySource, ledger Ledger, executor Executor, opts ...Option) (*Runner, error) {
	if source == nil {
		return nil, errors.New("policy source is required")
	}
	if ledger == nil {
		return nil, errors.New("ledger is required")
	}
	if executor == nil {
		return nil, errors.New("executor is required")
	}
	r := &Runner{
		source:      source,
		ledger:      ledger,
		executor:    executor,
		clock:       clock.NewMonotonic(),
		logger:      slog.Default(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run decides every opportunity against the authority's current policy.
// Per-opportunity failures are reported in the outcomes; Run itself fails
// only when the policy cannot be loaded or ctx ends.
func (r *Runner) Run(ctx context.Context, authority id.AuthorityID, opps []Opportunity) ([]Outcome, error) {
	p, err := r.source.CurrentPolicy(ctx, authority)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	r.logger.InfoContext(ctx, "policy loaded",
		"policy_id", p.ID,
		"authority", authority,
		"opportunities", len(opps),
	)

	outcomes := make([]Outcome, len(opps))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, opp := range opps {
		g.Go(func() error {
			outcomes[i] = r.decide(ctx, p, opp)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, ctx.Err()
}

func (r *Runner) decide(ctx context.Context, p *models.Policy, opp Opportunity) Outcome {
	eval := evaluator.Evaluate(p, opp.Action(r.clock.Now()))
	out := Outcome{Opportunity: opp, Evaluation: eval}

	if !eval.Allowed() {
		rec, err := r.ledger.LogRefusal(ctx, p.ID, client.LogRefusalRequest{
			MarketID:      opp.MarketID,
			RuleViolated:  string(eval.Violated),
			RequestedUSDC: opp.RequestedUSDC,
		})
		if err != nil {
			out.Err = fmt.Errorf("log refusal: %w", err)
			r.logger.ErrorContext(ctx, "refusal not recorded",
				"market_id", opp.MarketID,
				"rule", eval.Violated,
				"error", err,
			)
			return out
		}
		out.Refusal = rec
		r.logger.InfoContext(ctx, "opportunity refused",
			"market_id", opp.MarketID,
			"rule", eval.Violated,
			"decision_hash", rec.DecisionHash,
		)
		return out
	}

	receipt, err := r.executor.Execute(ctx, opp)
	if err != nil {
		out.Err = fmt.Errorf("%w: %w", ErrExecutionFailed, err)
		r.logger.WarnContext(ctx, "execution failed, nothing logged",
			"market_id", opp.MarketID,
			"error", err,
		)
		return out
	}

	rec, err := r.ledger.LogExecution(ctx, p.ID, client.LogExecutionRequest{
		MarketID:   opp.MarketID,
		CCTPBurnTx: receipt.BurnTx,
		CCTPMintTx: receipt.MintTx,
		BetTx:      receipt.BetTx,
	})
	if err != nil {
		// The bet is placed but unrecorded; the receipt is the only trace.
		out.Err = fmt.Errorf("log execution: %w", err)
		r.logger.ErrorContext(ctx, "execution not recorded",
			"market_id", opp.MarketID,
			"bet_tx", receipt.BetTx,
			"error", err,
		)
		return out
	}
	out.Execution = rec
	r.logger.InfoContext(ctx, "opportunity executed",
		"market_id", opp.MarketID,
		"bet_tx", receipt.BetTx,
		"decision_hash", rec.DecisionHash,
	)
	return out
}

// Summary counts outcomes by result.
type Summary struct {
	Refused  int
	Executed int
	Failed   int
}

func Summarize(outcomes []Outcome) Summary {
	var s Summary
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			s.Failed++
		case o.Refusal != nil:
			s.Refused++
		case o.Execution != nil:
			s.Executed++
		}
	}
	return s
}
