package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mandate/internal/policy/metrics"
	id "mandate/pkg/domain"
	"mandate/pkg/platform/sentinel"
)

// unreachableClient fails every command quickly, which exercises the
// fall-through path without a running server.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisCache_FallsThroughWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	backing := NewInMemory()
	m := metrics.New(prometheus.NewRegistry())
	cache := NewRedisCache(backing, unreachableClient(), time.Minute,
		WithCacheLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithCacheMetrics(m),
	)

	p := newTestPolicy(id.AuthorityID(uuid.New()), baseTime.Add(time.Hour))
	require.NoError(t, cache.CreateIfNoActive(ctx, p, baseTime), "cache write failures never fail a create")

	found, err := cache.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheRequests.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheRequests.WithLabelValues("miss")))

	_, err = cache.FindByID(ctx, id.PolicyID(uuid.New()))
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	latest, err := cache.FindLatestByAuthority(ctx, p.Authority)
	require.NoError(t, err)
	assert.Equal(t, p.ID, latest.ID)
}
