package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mandate/internal/ratelimit/models"
)

// Redis is a sliding window shared by every server instance. Each request is
// a member of a sorted set scored by its arrival time in nanoseconds.
type Redis struct {
	client redis.UniversalClient
	now    func() time.Time
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, now: time.Now}
}

// Allow trims the window, counts it and, when there is room, adds this
// request. Trim and count run in one MULTI so concurrent callers see a
// consistent count; a request admitted past the limit by a race is removed
// again.
func (s *Redis) Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error) {
	now := s.now()
	cutoff := now.Add(-limit.Window).UnixNano()
	member := uuid.NewString()

	var (
		added  *redis.IntCmd
		count  *redis.IntCmd
		oldest *redis.ZSliceCmd
	)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
		added = p.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: member})
		count = p.ZCard(ctx, key)
		oldest = p.ZRangeWithScores(ctx, key, 0, 0)
		p.PExpire(ctx, key, limit.Window)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("rate limit window %s: %w", key, err)
	}
	if added.Val() != 1 {
		return nil, fmt.Errorf("rate limit window %s: request not recorded", key)
	}

	resetAt := now.Add(limit.Window)
	if zs := oldest.Val(); len(zs) > 0 {
		resetAt = time.Unix(0, int64(zs[0].Score)).Add(limit.Window)
	}

	n := int(count.Val())
	if n > limit.RequestsPerWindow {
		if err := s.client.ZRem(ctx, key, member).Err(); err != nil {
			return nil, fmt.Errorf("rate limit window %s: %w", key, err)
		}
		return &models.Result{
			Allowed:    false,
			Limit:      limit.RequestsPerWindow,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(resetAt.Sub(now)),
		}, nil
	}
	return &models.Result{
		Allowed:   true,
		Limit:     limit.RequestsPerWindow,
		Remaining: limit.RequestsPerWindow - n,
		ResetAt:   resetAt,
	}, nil
}

func (s *Redis) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
