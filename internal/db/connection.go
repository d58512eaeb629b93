// Package db connects to the LIMS database.
//
// The pool is shared by the whole run. Every worker holds one dedicated
// connection from it for as long as it lives, see SourceFactory.
package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/config"
)

// dialTimeout bounds a single connection attempt
const dialTimeout = 10 * time.Second

// PoolConfig builds the pool configuration for cfg. The pool holds at least
// one connection per worker.
func PoolConfig(cfg *config.DatabaseConfig, workers int) (*pgxpool.Config, error) {
	if cfg == nil {
		return nil, errors.New("database configuration is required")
	}

	connStr, err := cfg.GetConnectionString()
	if err != nil {
		return nil, fmt.Errorf("failed to build database connection string: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}
	poolConfig.ConnConfig.ConnectTimeout = dialTimeout

	//nolint:gosec // G115: worker counts are small
	maxConns := max(cfg.MaxOpenConns, int32(workers))
	if maxConns > 0 {
		poolConfig.MaxConns = maxConns
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = min(cfg.MaxIdleConns, poolConfig.MaxConns)
	}
	if lifetime := cfg.GetConnMaxLifetime(); lifetime > 0 {
		poolConfig.MaxConnLifetime = lifetime
	}

	return poolConfig, nil
}

// Connect creates the pool and waits until the database answers. Failed
// attempts are retried with exponential backoff for up to timeout.
func Connect(ctx context.Context, poolConfig *pgxpool.Config, timeout time.Duration) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, pool.Ping(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.WarnContext(ctx, "Database not reachable, retrying",
				"host", poolConfig.ConnConfig.Host,
				"retry_in", next,
				"error", err)
		}),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.InfoContext(ctx, "Database connection pool created",
		"host", poolConfig.ConnConfig.Host,
		"database", poolConfig.ConnConfig.Database,
		"max_conns", poolConfig.MaxConns)
	return pool, nil
}

// NewPool connects to the LIMS database described by cfg
func NewPool(ctx context.Context, cfg *config.DatabaseConfig, workers int) (*pgxpool.Pool, error) {
	poolConfig, err := PoolConfig(cfg, workers)
	if err != nil {
		return nil, err
	}
	return Connect(ctx, poolConfig, cfg.GetConnectTimeout())
}
