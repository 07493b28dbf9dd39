package db

import (
	"context"
	_ "embed"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"production-tracker/internal/common/config"
)

//go:embed schema.sql
var schema string

type Conn struct{ *pgxpool.Pool }

const (
	maxRetries = 10
	retryDelay = 2 * time.Second
	pingTTL    = 5 * time.Second
)

// DSN builds a postgres URL from the database section.
func DSN(cfg config.DB) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Pass),
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Name,
	}
	q := u.Query()
	if cfg.SSLMode != "" {
		q.Set("sslmode", cfg.SSLMode)
	}
	if cfg.MaxConns > 0 {
		q.Set("pool_max_conns", fmt.Sprint(cfg.MaxConns))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect opens a pool and waits for the server to answer, retrying while
// the database is still starting.
func Connect(ctx context.Context, cfg config.DB) (*Conn, error) {
	pcfg, err := pgxpool.ParseConfig(DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	for i := 1; i <= maxRetries; i++ {
		var pool *pgxpool.Pool
		pool, err = pgxpool.NewWithConfig(ctx, pcfg)
		if err == nil {
			pctx, cancel := context.WithTimeout(ctx, pingTTL)
			err = pool.Ping(pctx)
			cancel()
			if err == nil {
				return &Conn{Pool: pool}, nil
			}
			pool.Close()
		}

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, fmt.Errorf("db connect canceled: %w", ctx.Err())
		}
	}
	return nil, fmt.Errorf("database unreachable after %d attempts: %w", maxRetries, err)
}

// Migrate applies the embedded schema. Every statement is idempotent.
func (c *Conn) Migrate(ctx context.Context) error {
	if _, err := c.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (c *Conn) Close() {
	if c != nil && c.Pool != nil {
		c.Pool.Close()
	}
}
