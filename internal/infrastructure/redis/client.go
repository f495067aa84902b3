// Package redis adapts domain.PreferenceKV, domain.RateLimiter and
// domain.TokenInvalidations onto Redis.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Client wraps a *redis.Client and exposes the narrow pieces the three
// adapters in this package need.
type Client struct {
	rdb *redis.Client
}

// Connect parses a redis:// URL and pings the server, failing fast if
// either step errors, same sequencing as the document store's Connect.
func Connect(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error {
	return c.rdb.Close()
}
