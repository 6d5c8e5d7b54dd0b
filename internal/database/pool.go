package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/stockexchange/internal/config"
)

// Connect creates a connection pool and verifies it with a ping.
func Connect(ctx context.Context, cfg config.DBConfig, appName string) (*pgxpool.Pool, error) {
	connStr := BuildConnString(cfg, appName)

	poolCfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Execer runs a statement. *pgxpool.Pool satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// schema creates the history tables. Each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS ticker_snapshots (
		sampled_at  TIMESTAMPTZ    NOT NULL,
		instance_id TEXT           NOT NULL,
		symbol      TEXT           NOT NULL,
		price       NUMERIC(20, 4),
		quantity    BIGINT         NOT NULL,
		volume      NUMERIC(28, 4) NOT NULL,
		PRIMARY KEY (symbol, instance_id, sampled_at)
	)`,
	`SELECT create_hypertable('ticker_snapshots', 'sampled_at', if_not_exists => TRUE)`,
	`CREATE TABLE IF NOT EXISTS index_samples (
		sampled_at  TIMESTAMPTZ      NOT NULL,
		instance_id TEXT             NOT NULL,
		value       DOUBLE PRECISION,
		priced      INTEGER          NOT NULL,
		PRIMARY KEY (instance_id, sampled_at)
	)`,
	`SELECT create_hypertable('index_samples', 'sampled_at', if_not_exists => TRUE)`,
}

// EnsureSchema creates the ticker history tables and hypertables.
func EnsureSchema(ctx context.Context, db Execer) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
