package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS shared_suites (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	content_hash TEXT NOT NULL UNIQUE,
	chain TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS credentials (
	identity TEXT PRIMARY KEY,
	shared_id BIGINT REFERENCES shared_suites (id),
	intrinsic TEXT,
	login_attempts INT NOT NULL DEFAULT 0,
	last_attempt TIMESTAMPTZ,
	last_login TIMESTAMPTZ,
	last_failed_ip TEXT NOT NULL DEFAULT '',
	last_ok_ip TEXT NOT NULL DEFAULT '',
	soft_locked TIMESTAMPTZ,
	locked TIMESTAMPTZ
);
`

// Connection wraps a pgx connection pool.
type Connection struct {
	*pgxpool.Pool
}

// NewConnection opens a connection pool for the given DSN and applies the
// schema.
func NewConnection(ctx context.Context, dsn string) (*Connection, error) {
	conf, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection pool: %w", err)
	}

	conn := &Connection{Pool: pool}
	if err := conn.Migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return conn, nil
}

// Migrate applies the credential schema. Idempotent.
func (c *Connection) Migrate(ctx context.Context) error {
	if _, err := c.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (c *Connection) Close() error {
	if c.Pool != nil {
		c.Pool.Close()
	}
	return nil
}

func (c *Connection) Ping(ctx context.Context) error {
	if c.Pool == nil {
		return fmt.Errorf("connection pool is nil")
	}
	return c.Pool.Ping(ctx)
}
