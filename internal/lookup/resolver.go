package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/email-lookup/internal/telemetry"
)

const cacheKeyPrefix = "email:"

// Resolver orchestrates the resolution pipeline: fingerprint, cache, store,
// provider chain, persistence. Dependencies are injected so tests can swap in
// fakes for every collaborator.
type Resolver struct {
	cache     Cache
	store     RecordStore
	providers []Provider
	ttl       time.Duration
	logger    *zap.Logger
}

// NewResolver wires the pipeline. The provider slice order is the priority
// order; ttl bounds positive cache entries.
func NewResolver(cache Cache, store RecordStore, providers []Provider, ttl time.Duration, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		cache:     cache,
		store:     store,
		providers: providers,
		ttl:       ttl,
		logger:    logger,
	}
}

// Resolve runs the pipeline for one request. Provider failures are never
// fatal; a store failure is, since persistence is what makes a result
// meaningful.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	hints := req.Hints()
	key := hints.Fingerprint()

	if !req.ForceRefresh {
		if cached, ok := r.cache.Get(ctx, cacheKeyPrefix+key); ok {
			email, source := decodeCacheValue(cached)
			telemetry.ObserveLookup("cache_hit")
			return Result{Key: key, Email: email, Source: source}, nil
		}

		rec, err := r.store.Get(ctx, key)
		switch {
		case err == nil && rec.Email != nil:
			// A stored positive result short-circuits and warms the cache.
			r.warmCache(ctx, key, rec.Email, rec.Source)
			telemetry.ObserveLookup("store_hit")
			return Result{Key: key, Email: rec.Email, Source: rec.Source}, nil
		case err == nil:
			// A stored negative result is treated as a miss: the earlier run
			// found nothing, so providers are consulted again.
		case errors.Is(err, ErrNotFound):
		default:
			return Result{}, fmt.Errorf("store lookup for %s: %w", key, err)
		}
	}

	email, source := r.runProviders(ctx, hints)

	rec, err := r.store.Upsert(ctx, key, email, source)
	if err != nil {
		return Result{}, fmt.Errorf("persist result for %s: %w", key, err)
	}
	if rec.Email != nil {
		r.warmCache(ctx, key, rec.Email, rec.Source)
		telemetry.ObserveLookup("resolved")
	} else {
		telemetry.ObserveLookup("miss")
	}
	return Result{Key: rec.Key, Email: rec.Email, Source: rec.Source}, nil
}

// runProviders walks the chain in priority order and stops at the first
// provider that yields an email. Errors are logged and count as misses.
func (r *Resolver) runProviders(ctx context.Context, hints Hints) (email, source *string) {
	for _, p := range r.providers {
		if !p.Applicable(hints) {
			telemetry.ObserveProvider(string(p.Name()), "skipped")
			continue
		}
		found, err := p.Lookup(ctx, hints)
		if err != nil {
			telemetry.ObserveProvider(string(p.Name()), "error")
			r.logger.Warn("provider failed",
				zap.String("provider", string(p.Name())),
				zap.String("username", hints.Username),
				zap.Error(err),
			)
			continue
		}
		if found == "" {
			telemetry.ObserveProvider(string(p.Name()), "miss")
			continue
		}
		telemetry.ObserveProvider(string(p.Name()), "found")
		name := string(p.Name())
		return &found, &name
	}
	return nil, nil
}

func (r *Resolver) warmCache(ctx context.Context, key string, email, source *string) {
	r.cache.Set(ctx, cacheKeyPrefix+key, encodeCacheValue(email, source), r.ttl)
}

// Cached values pack email and source into one string so a hit can answer
// without touching the store.
func encodeCacheValue(email, source *string) string {
	var e, s string
	if email != nil {
		e = *email
	}
	if source != nil {
		s = *source
	}
	return e + "|" + s
}

func decodeCacheValue(value string) (email, source *string) {
	parts := strings.SplitN(value, "|", 2)
	if parts[0] != "" {
		email = &parts[0]
	}
	if len(parts) == 2 && parts[1] != "" {
		source = &parts[1]
	}
	return email, source
}
