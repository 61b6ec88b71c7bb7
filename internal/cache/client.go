// Package cache wraps the Redis client used by the ingestion front-end for
// rate limiting (C2) and idempotency suppression (C3).
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps go-redis v9 with the dial/read timeouts and connectivity
// check used across this codebase's Redis adapters.
type Client struct {
	rdb *redis.Client
}

// NewClient parses a redis:// URL, opens a connection pool, and pings it
// before returning. The caller treats a non-nil error as fatal at startup.
func NewClient(url string, dialTimeout, readTimeout time.Duration) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("cache: parse url: %w", err)
	}
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = readTimeout

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", opts.Addr, err)
	}

	slog.Info("cache: connected", "addr", opts.Addr, "db", opts.DB)
	return &Client{rdb: rdb}, nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping reports whether Redis is reachable, for the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Raw exposes the underlying go-redis client for packages (stream) that
// need operations beyond what cache.Client wraps.
func (c *Client) Raw() *redis.Client {
	return c.rdb
}
