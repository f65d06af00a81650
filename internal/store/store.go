package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/taskdeck/taskdeck/internal/logger"
)

// Options configures the database connection pool
type Options struct {
	URL             string
	MaxConnections  int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

// DefaultOptions returns sensible pool defaults
func DefaultOptions(url string) Options {
	return Options{
		URL:             url,
		MaxConnections:  25,
		MaxIdle:         5,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// Open connects to Postgres and verifies the connection
func Open(ctx context.Context, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(opts.MaxConnections)
	db.SetMaxIdleConns(opts.MaxIdle)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Store().Debug("database connection established", "max_conns", opts.MaxConnections)
	return db, nil
}
