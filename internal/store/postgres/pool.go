// Package postgres implements the internal/store repository interfaces
// against Postgres via jackc/pgx/v5's connection pool, with jsonb
// columns for the nested workflow/runbook definitions and metadata
// maps. Schema migrations live in internal/store/migrations and are
// applied with pressly/goose/v3.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps a pgxpool.Pool and implements every internal/store
// repository interface.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres using dsn and verifies connectivity with a
// ping before returning.
func Open(ctx context.Context, dsn string, maxConns, minConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parsing dsn: %w", err)
	}
	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping failed: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}
