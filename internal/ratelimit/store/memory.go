package store

import (
	"context"
	"math"
	"sync"
	"time"

	"mandate/internal/ratelimit/models"
)

// sweepThreshold is the bucket count above which idle buckets are dropped.
const sweepThreshold = 10000

// InMemory is a process-local sliding window limiter. It is the fallback when
// the shared store is unavailable, and the only store without Redis.
type InMemory struct {
	mu      sync.Mutex
	buckets map[string]*slidingWindow
	now     func() time.Time
}

type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

func NewInMemory() *InMemory {
	return &InMemory{
		buckets: make(map[string]*slidingWindow),
		now:     time.Now,
	}
}

// Allow records one request for key if it fits in the window.
func (s *InMemory) Allow(_ context.Context, key string, limit models.Limit) (*models.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if len(s.buckets) > sweepThreshold {
		s.sweep(now)
	}
	sw := s.bucket(key, limit.Window)
	sw.cleanup(now)

	if len(sw.timestamps) >= limit.RequestsPerWindow {
		resetAt := sw.timestamps[0].Add(limit.Window)
		return &models.Result{
			Allowed:    false,
			Limit:      limit.RequestsPerWindow,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter(resetAt.Sub(now)),
		}, nil
	}

	sw.timestamps = append(sw.timestamps, now)
	return &models.Result{
		Allowed:   true,
		Limit:     limit.RequestsPerWindow,
		Remaining: limit.RequestsPerWindow - len(sw.timestamps),
		ResetAt:   sw.timestamps[0].Add(limit.Window),
	}, nil
}

// Reset clears the window for key.
func (s *InMemory) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buckets, key)
	return nil
}

// cleanup drops timestamps that left the window.
func (sw *slidingWindow) cleanup(now time.Time) {
	cutoff := now.Add(-sw.window)
	i := 0
	for ; i < len(sw.timestamps); i++ {
		if sw.timestamps[i].After(cutoff) {
			break
		}
	}
	sw.timestamps = sw.timestamps[i:]
}

// sweep removes buckets with no request left in their window. Must be called
// while holding s.mu.
func (s *InMemory) sweep(now time.Time) {
	for key, sw := range s.buckets {
		sw.cleanup(now)
		if len(sw.timestamps) == 0 {
			delete(s.buckets, key)
		}
	}
}

// Must be called while holding s.mu.
func (s *InMemory) bucket(key string, window time.Duration) *slidingWindow {
	if sw := s.buckets[key]; sw != nil {
		return sw
	}
	sw := &slidingWindow{window: window}
	s.buckets[key] = sw
	return sw
}

func retryAfter(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}
