// Package cache provides the volatile memoization backends: a shared Redis
// store when configured, and an in-process fallback otherwise.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/email-lookup/internal/lookup"
	"github.com/JakeFAU/email-lookup/internal/telemetry"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process cache with per-entry absolute expiry. Expiry is
// enforced at read time: an expired entry is a miss and is pruned on the spot.
// Single-instance only; deployments with replicas should configure Redis.
type Memory struct {
	clock lookup.Clock

	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemory constructs an empty in-process cache.
func NewMemory(clock lookup.Clock) *Memory {
	return &Memory{
		clock:   clock,
		entries: make(map[string]memoryEntry),
	}
}

// Get implements lookup.Cache.
func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		telemetry.ObserveCache("get", "miss")
		return "", false
	}
	if m.clock.Now().After(entry.expiresAt) {
		delete(m.entries, key)
		telemetry.ObserveCache("get", "expired")
		return "", false
	}
	telemetry.ObserveCache("get", "hit")
	return entry.value, true
}

// Set implements lookup.Cache.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{
		value:     value,
		expiresAt: m.clock.Now().Add(ttl),
	}
	telemetry.ObserveCache("set", "ok")
}
