package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotConfigured is returned by Connect when Config has no URL.
var ErrNotConfigured = errors.New("DATABASE_URL is not configured")

const connectTimeout = 10 * time.Second

// Connect opens a pool for cfg and returns it as a Postgres repository once
// the database answers a ping.
func Connect(ctx context.Context, cfg Config) (*Postgres, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	pc, err := cfg.poolConfig()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPostgres(pool), nil
}
