// Package middleware limits API requests per authenticated principal.
package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"mandate/internal/ratelimit/metrics"
	"mandate/internal/ratelimit/models"
	"mandate/pkg/platform/httputil"
	request "mandate/pkg/platform/middleware/request"
	"mandate/pkg/requestcontext"
)

const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 3
)

// Store records a request against a sliding window.
type Store interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
}

type Middleware struct {
	primary  Store
	fallback Store
	limits   map[models.Class]models.Limit
	breaker  *circuitBreaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Middleware) {
		m.logger = logger
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

// WithFallback sets the store used while the primary is failing.
func WithFallback(s Store) Option {
	return func(m *Middleware) {
		m.fallback = s
	}
}

// WithDisabled turns limiting off entirely, for local runs and tests.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func New(primary Store, limits map[models.Class]models.Limit, opts ...Option) *Middleware {
	m := &Middleware{
		primary: primary,
		limits:  limits,
		breaker: newCircuitBreaker(defaultFailureThreshold, defaultSuccessThreshold),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// PerPrincipal limits each caller separately. Writes and reads have separate
// budgets; the caller is the token subject, or the client address when the
// route is public.
func (m *Middleware) PerPrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		class := classOf(r)
		limit, ok := m.limits[class]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.check(ctx, models.NewKey(caller(r), class), limit)
		if err != nil {
			// Fail open: losing the limiter must not take the ledger down.
			m.logger.ErrorContext(ctx, "rate limit check failed",
				"error", err,
				"request_id", request.GetRequestID(ctx),
			)
			m.metrics.IncrementCheck(string(class), "error")
			next.ServeHTTP(w, r)
			return
		}

		addHeaders(w, result)
		if m.breaker.IsOpen() {
			w.Header().Set("X-RateLimit-Status", "degraded")
		}
		if !result.Allowed {
			m.metrics.IncrementCheck(string(class), "denied")
			m.logger.WarnContext(ctx, "rate limit exceeded",
				"class", class,
				"principal", requestcontext.Principal(ctx),
				"request_id", request.GetRequestID(ctx),
			)
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":             "rate_limited",
				"error_description": "too many requests, retry after " + strconv.Itoa(result.RetryAfter) + "s",
			})
			return
		}
		m.metrics.IncrementCheck(string(class), "allowed")
		next.ServeHTTP(w, r)
	})
}

// check asks the primary store first, even while the breaker is open, so the
// breaker can close. The fallback answers only when the primary fails, which
// keeps each request charged to exactly one store.
func (m *Middleware) check(ctx context.Context, key string, limit models.Limit) (*models.Result, error) {
	result, err := m.primary.Allow(ctx, key, limit)
	if err != nil {
		m.metrics.IncrementError()
		wasOpen := m.breaker.IsOpen()
		open := m.breaker.RecordFailure()
		if open && !wasOpen {
			m.metrics.SetDegraded(true)
			m.logger.WarnContext(ctx, "rate limiter degraded, using fallback", "error", err)
		}
		if !open || m.fallback == nil {
			return nil, err
		}
		return m.fallback.Allow(ctx, key, limit)
	}

	wasOpen := m.breaker.IsOpen()
	closed := m.breaker.RecordSuccess()
	if wasOpen && closed {
		m.metrics.SetDegraded(false)
		m.logger.InfoContext(ctx, "rate limiter recovered")
	}
	return result, nil
}

func classOf(r *http.Request) models.Class {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return models.ClassRead
	default:
		return models.ClassWrite
	}
}

func caller(r *http.Request) string {
	if p := requestcontext.Principal(r.Context()); !p.IsNil() {
		return "principal:" + p.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}

func addHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
