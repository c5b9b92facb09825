package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/Megamind2600/resumerocketpro/internal/shared/telemetry"
)

// Pool sizes the connection pool behind the record store.
type Pool struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
	MaxIdleTime time.Duration
	PingTimeout time.Duration
}

// ServerPool is the pool used by the API process.
func ServerPool() Pool {
	return Pool{
		MaxOpen:     10,
		MaxIdle:     5,
		MaxLifetime: time.Hour,
		MaxIdleTime: 2 * time.Minute,
		PingTimeout: 5 * time.Second,
	}
}

// MigratePool is the pool used by the one-shot migrate command.
func MigratePool() Pool {
	p := ServerPool()
	p.MaxOpen, p.MaxIdle = 1, 1
	return p
}

var openDB = sql.Open

// WithEnv applies DB_* overrides read through lookup. Every malformed value
// is reported; valid ones are still applied.
func (p Pool) WithEnv(lookup func(string) (string, bool)) (Pool, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	var errs []error
	setInt := func(key string, dst *int) {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		v, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || v <= 0 {
			errs = append(errs, fmt.Errorf("%s: want a positive integer, got %q", key, raw))
			return
		}
		*dst = v
	}
	setDuration := func(key string, dst *time.Duration) {
		raw, ok := lookup(key)
		if !ok || strings.TrimSpace(raw) == "" {
			return
		}
		v, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil || v <= 0 {
			errs = append(errs, fmt.Errorf("%s: want a positive duration, got %q", key, raw))
			return
		}
		*dst = v
	}

	setInt("DB_MAX_OPEN_CONNS", &p.MaxOpen)
	setInt("DB_MAX_IDLE_CONNS", &p.MaxIdle)
	setDuration("DB_CONN_MAX_LIFETIME", &p.MaxLifetime)
	setDuration("DB_CONN_MAX_IDLE_TIME", &p.MaxIdleTime)
	setDuration("DB_PING_TIMEOUT", &p.PingTimeout)
	if p.MaxIdle > p.MaxOpen {
		p.MaxIdle = p.MaxOpen
	}
	return p, errors.Join(errs...)
}

// Connect opens a pgx-backed *sql.DB and pings it. Callers share the handle.
func Connect(ctx context.Context, databaseURL string, pool Pool) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	db, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	pool.apply(db)

	timeout := pool.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	telemetry.Info("db.connected", Stats(db))
	return db, nil
}

func (p Pool) apply(db *sql.DB) {
	if p.MaxOpen > 0 {
		db.SetMaxOpenConns(p.MaxOpen)
	}
	if p.MaxIdle > 0 {
		db.SetMaxIdleConns(p.MaxIdle)
	}
	if p.MaxLifetime > 0 {
		db.SetConnMaxLifetime(p.MaxLifetime)
	}
	if p.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(p.MaxIdleTime)
	}
}

// Stats summarises pool usage for logs and the health endpoint.
func Stats(db *sql.DB) map[string]any {
	s := db.Stats()
	return map[string]any{
		"open":     s.OpenConnections,
		"in_use":   s.InUse,
		"idle":     s.Idle,
		"wait":     s.WaitCount,
		"max_open": s.MaxOpenConnections,
	}
}
