// Package ratelimit bounds inbound requests per client identity over a
// rolling window.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/email-lookup/internal/lookup"
)

// Limiter admits or rejects a request for a client identity.
type Limiter interface {
	Admit(ctx context.Context, clientID string) (bool, error)
}

// Config holds the per-window budget.
type Config struct {
	Limit  int
	Window time.Duration
}

// SlidingWindow is the in-process limiter: per-identity admission timestamps
// pruned to the trailing window before each check. Correct for a single
// instance only; multi-instance deployments should use the Redis limiter.
type SlidingWindow struct {
	cfg   Config
	clock lookup.Clock

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewSlidingWindow constructs the in-process limiter.
func NewSlidingWindow(cfg Config, clock lookup.Clock) *SlidingWindow {
	return &SlidingWindow{
		cfg:   cfg,
		clock: clock,
		hits:  make(map[string][]time.Time),
	}
}

// Admit implements Limiter. Stale entries are pruned, then the request is
// admitted and recorded only when the window still has room.
func (l *SlidingWindow) Admit(_ context.Context, clientID string) (bool, error) {
	now := l.clock.Now()
	cutoff := now.Add(-l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.hits[clientID][:0]
	for _, ts := range l.hits[clientID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	if len(recent) >= l.cfg.Limit {
		l.hits[clientID] = recent
		return false, nil
	}
	l.hits[clientID] = append(recent, now)
	return true, nil
}

// RedisLimiter delegates window accounting to redis_rate so limits hold
// across multiple service instances.
type RedisLimiter struct {
	limiter *redis_rate.Limiter
	limit   redis_rate.Limit
}

// NewRedisLimiter builds a limiter over an existing Redis connection.
func NewRedisLimiter(client *redis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{
		limiter: redis_rate.NewLimiter(client),
		limit: redis_rate.Limit{
			Rate:   cfg.Limit,
			Burst:  cfg.Limit,
			Period: cfg.Window,
		},
	}
}

// Admit implements Limiter.
func (l *RedisLimiter) Admit(ctx context.Context, clientID string) (bool, error) {
	res, err := l.limiter.Allow(ctx, "ratelimit:"+clientID, l.limit)
	if err != nil {
		return false, fmt.Errorf("redis rate limit: %w", err)
	}
	return res.Allowed > 0, nil
}
