// Package memory provides an in-memory record store for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/email-lookup/internal/lookup"
)

// RecordStore keeps records in a mutex-guarded map. Upsert preserves the
// original CreatedAt, matching the durable store's first-seen semantics.
type RecordStore struct {
	clock lookup.Clock

	mu      sync.RWMutex
	records map[string]lookup.Record
}

// NewRecordStore constructs an empty store.
func NewRecordStore(clock lookup.Clock) *RecordStore {
	return &RecordStore{
		clock:   clock,
		records: make(map[string]lookup.Record),
	}
}

// Get implements lookup.RecordStore.
func (s *RecordStore) Get(_ context.Context, key string) (lookup.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key]
	if !ok {
		return lookup.Record{}, lookup.ErrNotFound
	}
	return rec, nil
}

// Upsert implements lookup.RecordStore.
func (s *RecordStore) Upsert(_ context.Context, key string, email, source *string) (lookup.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok {
		rec = lookup.Record{Key: key, CreatedAt: s.clock.Now()}
	}
	rec.Email = email
	rec.Source = source
	s.records[key] = rec
	return rec, nil
}
