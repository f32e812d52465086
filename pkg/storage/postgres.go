package storage

import (
	"context"

	// Registers the "pgx" database/sql driver.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fluxorio/grainstate/pkg/eventlog"
)

// PostgresStore is an eventlog.Store backed by Postgres via jackc/pgx/v5's
// database/sql driver, wired for SPEC_FULL.md 4.D's relational storage
// backend.
type PostgresStore struct {
	*relationalStore
}

// NewPostgresStore opens a pool against dsn, configured HikariCP-style,
// and ensures the grainstate_events/grainstate_snapshots schema exists.
func NewPostgresStore(ctx context.Context, cfg PoolConfig) (*PostgresStore, error) {
	cfg.DriverName = "pgx"
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := pool.DB().ExecContext(ctx, schemaPostgres); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{relationalStore: &relationalStore{pool: pool, ph: placeholderDollar}}, nil
}

var _ eventlog.Store = (*PostgresStore)(nil)
