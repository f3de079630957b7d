package db

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool and verifies connectivity with a ping.
// A nil logger discards output.
func Connect(ctx context.Context, dsn string, logger *log.Logger) (*pgxpool.Pool, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Printf("db: connected host=%s database=%s max_conns=%d", cfg.ConnConfig.Host, cfg.ConnConfig.Database, cfg.MaxConns)
	return pool, nil
}
