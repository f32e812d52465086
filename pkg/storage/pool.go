package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PoolConfig configures a relational connection pool, HikariCP-style,
// grounded on the teacher's db.PoolConfig/db.Pool.
type PoolConfig struct {
	DSN             string
	DriverName      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultPoolConfig returns HikariCP-like defaults for driverName/dsn.
func DefaultPoolConfig(dsn, driverName string) PoolConfig {
	return PoolConfig{
		DSN:             dsn,
		DriverName:      driverName,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// Pool wraps *sql.DB with HikariCP-style configuration, shared by
// PostgresStore and SQLiteStore.
type Pool struct {
	db     *sql.DB
	config PoolConfig
}

// NewPool opens and pings a connection pool per cfg, fail-fast on a bad
// configuration, mirroring the teacher's db.NewPool.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage: DSN cannot be empty")
	}
	if cfg.DriverName == "" {
		return nil, fmt.Errorf("storage: DriverName cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns < 0 || cfg.MaxIdleConns > cfg.MaxOpenConns {
		cfg.MaxIdleConns = 5
	}

	db, err := sql.Open(cfg.DriverName, cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &Pool{db: db, config: cfg}, nil
}

// DB returns the underlying *sql.DB.
func (p *Pool) DB() *sql.DB { return p.db }

// Close closes the pool.
func (p *Pool) Close() error { return p.db.Close() }

// Stats returns the underlying *sql.DB stats.
func (p *Pool) Stats() sql.DBStats { return p.db.Stats() }
