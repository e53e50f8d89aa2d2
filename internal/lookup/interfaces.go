package lookup

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by RecordStore.Get when no record exists for a key.
var ErrNotFound = errors.New("record not found")

// Cache is the volatile memoization layer. A miss is never an error: backends
// swallow their own failures and report absence instead.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, value string, ttl time.Duration)
}

// RecordStore remembers prior resolutions, positive or negative. Upsert is
// unconditional and atomic per key; CreatedAt reflects first-seen time and is
// not touched on overwrite.
type RecordStore interface {
	Get(ctx context.Context, key string) (Record, error)
	Upsert(ctx context.Context, key string, email, source *string) (Record, error)
}

// Provider attempts to resolve an email from one external source. Lookup
// returns the empty string when the source yields nothing; an error means the
// source could not be consulted at all.
type Provider interface {
	Name() Source
	Applicable(hints Hints) bool
	Lookup(ctx context.Context, hints Hints) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
