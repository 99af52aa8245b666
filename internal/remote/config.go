package remote

import (
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool settings used when the configuration leaves them at zero.
const (
	DefaultMaxConnIdleTime   = time.Minute
	DefaultMaxConnLifetime   = time.Hour
	DefaultHealthCheckPeriod = 30 * time.Second
)

// Config describes the PostgreSQL connection. Zero connection counts keep
// the pgx defaults; zero durations take the Default* values above.
type Config struct {
	URL               string
	MaxConns          int32
	MinConns          int32
	MaxConnIdleTime   time.Duration
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
}

// Enabled reports whether a database URL is configured.
func (c Config) Enabled() bool {
	return c.URL != ""
}

// poolConfig parses the URL and overlays the tuning fields.
func (c Config) poolConfig() (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if c.MaxConns > 0 {
		pc.MaxConns = c.MaxConns
	}
	if c.MinConns > 0 {
		pc.MinConns = min(c.MinConns, pc.MaxConns)
	}
	pc.MaxConnIdleTime = durationOr(c.MaxConnIdleTime, DefaultMaxConnIdleTime)
	pc.MaxConnLifetime = durationOr(c.MaxConnLifetime, DefaultMaxConnLifetime)
	pc.HealthCheckPeriod = durationOr(c.HealthCheckPeriod, DefaultHealthCheckPeriod)
	return pc, nil
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
