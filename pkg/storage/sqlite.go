package storage

import (
	"context"

	// Registers the "sqlite3" database/sql driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/fluxorio/grainstate/pkg/eventlog"
)

// SQLiteStore is an eventlog.Store backed by SQLite via
// mattn/go-sqlite3's database/sql driver, wired for SPEC_FULL.md 4.D's
// embedded relational storage backend (single-process hosts, tests that
// want real SQL semantics without a Postgres server).
type SQLiteStore struct {
	*relationalStore
}

// NewSQLiteStore opens path (or ":memory:") and ensures the schema exists.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	cfg := DefaultPoolConfig(path, "sqlite3")
	cfg.MaxOpenConns = 1 // sqlite only supports one writer at a time
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, err
	}
	if _, err := pool.DB().ExecContext(ctx, schemaSQLite); err != nil {
		pool.Close()
		return nil, err
	}
	return &SQLiteStore{relationalStore: &relationalStore{pool: pool, ph: placeholderQuestion}}, nil
}

var _ eventlog.Store = (*SQLiteStore)(nil)
