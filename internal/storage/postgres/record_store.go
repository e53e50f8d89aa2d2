// Package postgres provides the Postgres-backed record store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/email-lookup/internal/lookup"
)

type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// RecordStoreConfig controls the connection pool.
type RecordStoreConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// RecordStore persists email records keyed by fingerprint.
type RecordStore struct {
	pool poolIface
}

// NewRecordStore creates a Postgres-backed RecordStore using the provided config.
func NewRecordStore(ctx context.Context, cfg RecordStoreConfig) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RecordStore{pool: pool}, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(pool poolIface) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RecordStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	s.pool.Close()
}

// EnsureSchema creates the records table when it does not exist yet.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS email_records (
			key TEXT PRIMARY KEY,
			email TEXT,
			source TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure email_records schema: %w", err)
	}
	return nil
}

// Get implements lookup.RecordStore.
func (s *RecordStore) Get(ctx context.Context, key string) (lookup.Record, error) {
	query := `
		SELECT key, email, source, created_at
		FROM email_records
		WHERE key = $1;
	`
	var rec lookup.Record
	err := s.pool.QueryRow(ctx, query, key).Scan(&rec.Key, &rec.Email, &rec.Source, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return lookup.Record{}, lookup.ErrNotFound
		}
		return lookup.Record{}, fmt.Errorf("select email record: %w", err)
	}
	return rec, nil
}

// Upsert implements lookup.RecordStore. The ON CONFLICT clause makes the
// write atomic per key and leaves created_at at first-seen time.
func (s *RecordStore) Upsert(ctx context.Context, key string, email, source *string) (lookup.Record, error) {
	query := `
		INSERT INTO email_records (key, email, source)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET email = EXCLUDED.email, source = EXCLUDED.source
		RETURNING key, email, source, created_at;
	`
	var rec lookup.Record
	err := s.pool.QueryRow(ctx, query, key, email, source).Scan(&rec.Key, &rec.Email, &rec.Source, &rec.CreatedAt)
	if err != nil {
		return lookup.Record{}, fmt.Errorf("upsert email record: %w", err)
	}
	return rec, nil
}
