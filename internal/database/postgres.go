package database

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the query surface shared by *pgxpool.Pool, *pgxpool.Conn and pgx.Tx.
// Repositories depend on it so pgxscan can run against any of them.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Beginner is a DBTX that can open transactions. *pgxpool.Pool satisfies it.
type Beginner interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Options tune the pool beyond the connection string.
type Options struct {
	// QueryTimeout is installed as the session statement_timeout so long
	// aggregate queries are cancelled server-side.
	QueryTimeout time.Duration
	MaxRetries   int
	RetryDelay   time.Duration
}

// NewPostgresPool creates and returns a new PostgreSQL connection pool.
// It will gracefully attempt to connect to the database with retries.
func NewPostgresPool(ctx context.Context, databaseURL string, opts Options) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 5 * time.Second
	}

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.QueryTimeout > 0 {
		cfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(opts.QueryTimeout.Milliseconds(), 10)
	}

	// Retry connecting to the database a few times in case it's not ready yet.
	for i := 0; i < opts.MaxRetries; i++ {
		var pool *pgxpool.Pool
		pool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Println("✅ Successfully connected to PostgreSQL database")
				return pool, nil
			}
			log.Printf("... failed to ping database: %v", err)
			pool.Close()
		}

		log.Printf("... could not connect to database (attempt %d/%d), retrying in %v...", i+1, opts.MaxRetries, opts.RetryDelay)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.RetryDelay):
		}
	}

	return nil, fmt.Errorf("connect to postgres after %d attempts: %w", opts.MaxRetries, err)
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check pings the database with a short deadline. It backs the health endpoint.
func Check(ctx context.Context, db Pinger) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return db.Ping(ctx)
}
