package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mandate/internal/ratelimit/metrics"
	"mandate/internal/ratelimit/models"
	"mandate/internal/ratelimit/store"
	id "mandate/pkg/domain"
	"mandate/pkg/requestcontext"
)

var noContent = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

var testLimits = map[models.Class]models.Limit{
	models.ClassWrite: {RequestsPerWindow: 2, Window: time.Minute},
	models.ClassRead:  {RequestsPerWindow: 5, Window: time.Minute},
}

type failingStore struct {
	fail bool
}

func (f *failingStore) Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error) {
	if f.fail {
		return nil, errors.New("redis: connection refused")
	}
	return &models.Result{Allowed: true, Limit: limit.RequestsPerWindow, Remaining: limit.RequestsPerWindow}, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func as(principal id.PrincipalID, method string) *http.Request {
	req := httptest.NewRequest(method, "/v1/policies/x/refusals", nil)
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), principal, requestcontext.RoleAgent))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestPerPrincipal(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	h := New(store.NewInMemory(), testLimits, WithLogger(discard()), WithMetrics(m)).PerPrincipal(noContent)
	agent := id.PrincipalID(uuid.New())

	t.Run("writes are limited per principal", func(t *testing.T) {
		for range 2 {
			rr := serve(h, as(agent, http.MethodPost))
			require.Equal(t, http.StatusNoContent, rr.Code)
			assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Limit"))
		}
		rr := serve(h, as(agent, http.MethodPost))
		assert.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "60", rr.Header().Get("Retry-After"))
		assert.Contains(t, rr.Body.String(), `"error":"rate_limited"`)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Checks.WithLabelValues("write", "denied")))
	})

	t.Run("reads have their own budget", func(t *testing.T) {
		rr := serve(h, as(agent, http.MethodGet))
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "4", rr.Header().Get("X-RateLimit-Remaining"))
	})

	t.Run("another principal is unaffected", func(t *testing.T) {
		rr := serve(h, as(id.PrincipalID(uuid.New()), http.MethodPost))
		assert.Equal(t, http.StatusNoContent, rr.Code)
	})

	t.Run("anonymous callers are keyed by address", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/decisions/x/verify", nil)
		req.RemoteAddr = "203.0.113.9:5555"
		rr := serve(h, req)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "4", rr.Header().Get("X-RateLimit-Remaining"))
	})
}

func TestDisabled(t *testing.T) {
	h := New(&failingStore{fail: true}, testLimits, WithDisabled(true), WithLogger(discard())).PerPrincipal(noContent)
	rr := serve(h, as(id.PrincipalID(uuid.New()), http.MethodPost))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Header().Get("X-RateLimit-Limit"))
}

func TestFailsOpenWithoutFallback(t *testing.T) {
	h := New(&failingStore{fail: true}, testLimits, WithLogger(discard())).PerPrincipal(noContent)
	rr := serve(h, as(id.PrincipalID(uuid.New()), http.MethodPost))
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestBreakerSwitchesToFallbackAndRecovers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	primary := &failingStore{fail: true}
	h := New(primary, testLimits,
		WithFallback(store.NewInMemory()),
		WithLogger(discard()),
		WithMetrics(m),
	).PerPrincipal(noContent)
	agent := id.PrincipalID(uuid.New())

	// below the threshold requests pass unlimited
	for range defaultFailureThreshold - 1 {
		rr := serve(h, as(agent, http.MethodGet))
		require.Equal(t, http.StatusNoContent, rr.Code)
		require.Empty(t, rr.Header().Get("X-RateLimit-Status"))
	}

	rr := serve(h, as(agent, http.MethodGet))
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "degraded", rr.Header().Get("X-RateLimit-Status"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Degraded))

	// the fallback enforces the write budget while degraded
	serve(h, as(agent, http.MethodPost))
	serve(h, as(agent, http.MethodPost))
	rr = serve(h, as(agent, http.MethodPost))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	primary.fail = false
	for range defaultSuccessThreshold {
		serve(h, as(agent, http.MethodGet))
	}
	rr = serve(h, as(agent, http.MethodGet))
	assert.Empty(t, rr.Header().Get("X-RateLimit-Status"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Degraded))
	// every primary failure counts, including those answered by the fallback
	assert.Equal(t, float64(defaultFailureThreshold+3), testutil.ToFloat64(m.Errors))
}

type countingStore struct {
	Store
	calls int
}

func (c *countingStore) Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error) {
	c.calls++
	return c.Store.Allow(ctx, key, limit)
}

func TestHealthyPrimaryAnswersWhileDegraded(t *testing.T) {
	primary := &failingStore{fail: true}
	fallback := &countingStore{Store: store.NewInMemory()}
	h := New(primary, testLimits, WithFallback(fallback), WithLogger(discard())).PerPrincipal(noContent)
	agent := id.PrincipalID(uuid.New())

	for range defaultFailureThreshold {
		serve(h, as(agent, http.MethodPost))
	}
	require.Equal(t, 1, fallback.calls, "only the request that opened the breaker reaches the fallback")

	// the breaker stays open until enough successes accumulate, but the
	// primary already answers and the fallback budget is left untouched
	primary.fail = false
	for range defaultSuccessThreshold - 1 {
		rr := serve(h, as(agent, http.MethodPost))
		require.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "degraded", rr.Header().Get("X-RateLimit-Status"))
		assert.Equal(t, "2", rr.Header().Get("X-RateLimit-Remaining"))
	}
	assert.Equal(t, 1, fallback.calls)

	rr := serve(h, as(agent, http.MethodPost))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Header().Get("X-RateLimit-Status"))
	assert.Equal(t, 1, fallback.calls)
}

func TestCircuitBreaker(t *testing.T) {
	b := newCircuitBreaker(2, 2)
	assert.False(t, b.RecordFailure())
	assert.True(t, b.RecordFailure())
	assert.True(t, b.IsOpen())

	assert.False(t, b.RecordSuccess())
	assert.True(t, b.RecordFailure(), "a failure resets the success streak")
	assert.False(t, b.RecordSuccess())
	assert.True(t, b.RecordSuccess())
	assert.False(t, b.IsOpen())

	assert.False(t, b.RecordFailure(), "failure count restarts after closing")
}
