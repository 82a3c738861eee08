// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/seat-reservation/internal/config"
	"github.com/Shivanand-hulikatti/seat-reservation/internal/logger"
)

// NewPool creates and validates a pgxpool connection pool. It retries the
// connect-and-ping sequence to accommodate a database that is still starting.
// tracer may be nil.
func NewPool(ctx context.Context, cfg config.DatabaseConfig, tracer pgx.QueryTracer) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	if tracer != nil {
		poolCfg.ConnConfig.Tracer = tracer
	}

	var pool *pgxpool.Pool
	err = withRetry(ctx, cfg, "db connect", func(ctx context.Context) error {
		var err error
		pool, err = connect(ctx, poolCfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return pool, nil
}

// withRetry runs fn up to cfg.ConnectRetries times (at least once), sleeping
// cfg.ConnectRetryPeriod between failures. It gives up early when ctx is done.
func withRetry(ctx context.Context, cfg config.DatabaseConfig, op string, fn func(context.Context) error) error {
	attempts := max(cfg.ConnectRetries, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		logger.Warn(op+" attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(cfg.ConnectRetryPeriod):
		}
	}
	return fmt.Errorf("after %d attempts: %w", attempts, err)
}

func connect(ctx context.Context, poolCfg *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
