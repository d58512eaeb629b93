package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/NationalGenomicsInfrastructure/acheron/internal/lims"
)

// SourceFactory opens LIMS sources, each on its own pooled connection
type SourceFactory struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	opts    []lims.Option
}

// NewSourceFactory creates a SourceFactory over pool. Acquiring a connection
// is retried for up to timeout; opts configure every source.
func NewSourceFactory(pool *pgxpool.Pool, timeout time.Duration, opts ...lims.Option) *SourceFactory {
	return &SourceFactory{pool: pool, timeout: timeout, opts: opts}
}

// Open acquires a connection and builds a source on it that logs to logger.
// The returned release func gives the connection back to the pool and must
// be called once.
func (f *SourceFactory) Open(ctx context.Context, logger *slog.Logger) (lims.Source, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := backoff.Retry(ctx, func() (*pgxpool.Conn, error) {
		return f.pool.Acquire(ctx)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(f.timeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.WarnContext(ctx, "Failed to acquire database connection, retrying",
				"retry_in", next,
				"error", err)
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire database connection: %w", err)
	}

	opts := append([]lims.Option{lims.WithQuerier(conn)}, f.opts...)
	opts = append(opts, lims.WithLogger(logger))
	source, err := lims.NewPostgresSource(opts...)
	if err != nil {
		conn.Release()
		return nil, nil, fmt.Errorf("failed to create LIMS source: %w", err)
	}
	return source, conn.Release, nil
}
