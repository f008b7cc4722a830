package outbox

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// PendingStore is the outbox side the relay drains.
type PendingStore interface {
	PublishPending(ctx context.Context, limit int, publish func(context.Context, []Event) error) (int, error)
}

// Relay polls the outbox and forwards pending events to a Publisher.
type Relay struct {
	store     PendingStore
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *Metrics
}

type RelayOption func(*Relay)

func WithLogger(logger *slog.Logger) RelayOption {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *Metrics) RelayOption {
	return func(r *Relay) {
		r.metrics = m
	}
}

// WithInterval sets the poll interval used when the outbox is drained.
func WithInterval(d time.Duration) RelayOption {
	return func(r *Relay) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithBatchSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

func NewRelay(store PendingStore, publisher Publisher, opts ...RelayOption) (*Relay, error) {
	if store == nil {
		return nil, errors.New("outbox store is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	r := &Relay{
		store:     store,
		publisher: publisher,
		interval:  time.Second,
		batchSize: 100,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run drains the outbox until ctx is cancelled. A full batch is followed
// immediately by another; otherwise the relay sleeps for the interval.
// Publish failures are logged and retried on the next tick.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "outbox relay started",
		"interval", r.interval,
		"batch_size", r.batchSize,
	)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "outbox relay stopped")
			return nil
		case <-timer.C:
		}

		n, err := r.ProcessBatch(ctx)
		next := r.interval
		switch {
		case err != nil && ctx.Err() == nil:
			r.logger.ErrorContext(ctx, "outbox relay batch failed", "error", err)
		case n == r.batchSize:
			next = 0
		}
		timer.Reset(next)
	}
}

// ProcessBatch publishes at most one batch and returns how many events were
// marked published.
func (r *Relay) ProcessBatch(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := r.store.PublishPending(ctx, r.batchSize, func(ctx context.Context, events []Event) error {
		return r.publisher.Publish(ctx, events...)
	})
	if err != nil {
		r.metrics.IncrementFailures()
		return 0, err
	}
	if n > 0 {
		r.metrics.AddPublished(n)
		r.metrics.ObserveBatchLatency(time.Since(start))
		r.logger.DebugContext(ctx, "outbox batch published", "count", n)
	}
	return n, nil
}
