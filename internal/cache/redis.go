package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/email-lookup/internal/telemetry"
)

// Redis is the shared cache backend for multi-instance deployments. Backend
// failures degrade to misses; the store stays authoritative.
type Redis struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedis connects and pings the configured Redis instance.
func NewRedis(url string, logger *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, logger: logger}, nil
}

// Client exposes the underlying connection so the rate limiter can share it.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Close releases the connection.
func (r *Redis) Close() error {
	if err := r.client.Close(); err != nil {
		return fmt.Errorf("close redis: %w", err)
	}
	return nil
}

// Get implements lookup.Cache.
func (r *Redis) Get(ctx context.Context, key string) (string, bool) {
	value, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			telemetry.ObserveCache("get", "error")
			r.logger.Warn("redis get failed", zap.String("key", key), zap.Error(err))
		} else {
			telemetry.ObserveCache("get", "miss")
		}
		return "", false
	}
	telemetry.ObserveCache("get", "hit")
	return value, true
}

// Set implements lookup.Cache.
func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		telemetry.ObserveCache("set", "error")
		r.logger.Warn("redis set failed", zap.String("key", key), zap.Error(err))
		return
	}
	telemetry.ObserveCache("set", "ok")
}
