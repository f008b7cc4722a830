package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"mandate/internal/policy/metrics"
	"mandate/internal/policy/models"
	id "mandate/pkg/domain"
)

const cacheKeyPrefix = "mandate:policy:"

// Backing is the store a cache reads through to.
type Backing interface {
	CreateIfNoActive(ctx context.Context, p *models.Policy, now time.Time) error
	FindByID(ctx context.Context, policyID id.PolicyID) (*models.Policy, error)
	FindLatestByAuthority(ctx context.Context, authority id.AuthorityID) (*models.Policy, error)
}

// RedisCache caches policies by ID. Policies are immutable, so an entry can
// never go stale and there is no invalidation; the TTL only bounds memory.
// Authority lookups are not cached because the latest policy for an
// authority changes when a new one is created. Redis failures fall through
// to the backing store.
type RedisCache struct {
	backing Backing
	client  redis.UniversalClient
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type CacheOption func(*RedisCache)

func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *RedisCache) { c.logger = logger }
}

func WithCacheMetrics(m *metrics.Metrics) CacheOption {
	return func(c *RedisCache) { c.metrics = m }
}

func NewRedisCache(backing Backing, client redis.UniversalClient, ttl time.Duration, opts ...CacheOption) *RedisCache {
	c := &RedisCache{
		backing: backing,
		client:  client,
		ttl:     ttl,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateIfNoActive writes through and primes the cache on success.
func (c *RedisCache) CreateIfNoActive(ctx context.Context, p *models.Policy, now time.Time) error {
	if err := c.backing.CreateIfNoActive(ctx, p, now); err != nil {
		return err
	}
	c.set(ctx, p)
	return nil
}

func (c *RedisCache) FindByID(ctx context.Context, policyID id.PolicyID) (*models.Policy, error) {
	key := cacheKeyPrefix + policyID.String()

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var p models.Policy
		if jsonErr := json.Unmarshal(raw, &p); jsonErr == nil {
			c.metrics.IncrementCache("hit")
			return &p, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached policy", "policy_id", policyID)
	case errors.Is(err, redis.Nil):
	default:
		c.metrics.IncrementCache("error")
		c.logger.WarnContext(ctx, "policy cache read failed", "policy_id", policyID, "error", err)
	}
	c.metrics.IncrementCache("miss")

	v, err, _ := c.group.Do(key, func() (any, error) {
		p, err := c.backing.FindByID(ctx, policyID)
		if err != nil {
			return nil, err
		}
		c.set(ctx, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*models.Policy)
	return &p, nil
}

func (c *RedisCache) FindLatestByAuthority(ctx context.Context, authority id.AuthorityID) (*models.Policy, error) {
	return c.backing.FindLatestByAuthority(ctx, authority)
}

func (c *RedisCache) set(ctx context.Context, p *models.Policy) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+p.ID.String(), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "policy cache write failed", "policy_id", p.ID, "error", err)
	}
}
