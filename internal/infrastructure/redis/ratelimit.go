package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const unsentCountTTL = 24 * time.Hour

func lastSentKey(token string) string {
	return fmt.Sprintf("raidenx:notification:%s:last_sent", token)
}

func unsentCountKey(token string) string {
	return fmt.Sprintf("raidenx:notification:%s:unsent_count", token)
}

// RateLimiter implements domain.RateLimiter. rateWindow is the TTL given
// to last_sent.
type RateLimiter struct {
	client     *Client
	rateWindow time.Duration
}

func NewRateLimiter(c *Client, rateWindow time.Duration) *RateLimiter {
	return &RateLimiter{client: c, rateWindow: rateWindow}
}

func (r *RateLimiter) LastSent(ctx context.Context, token string) (int64, bool, error) {
	raw, err := r.client.rdb.Get(ctx, lastSentKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get last_sent: %w", err)
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse last_sent: %w", err)
	}
	return ms, true, nil
}

func (r *RateLimiter) UnsentCount(ctx context.Context, token string) (int64, error) {
	raw, err := r.client.rdb.Get(ctx, unsentCountKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get unsent_count: %w", err)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse unsent_count: %w", err)
	}
	return n, nil
}

func (r *RateLimiter) IncrementUnsent(ctx context.Context, token string) (int64, error) {
	key := unsentCountKey(token)
	n, err := r.client.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incr unsent_count: %w", err)
	}
	if n == 1 {
		if err := r.client.rdb.Expire(ctx, key, unsentCountTTL).Err(); err != nil {
			return 0, fmt.Errorf("expire unsent_count: %w", err)
		}
	}
	return n, nil
}

// MarkSent sets last_sent=now (TTL=rate window) and resets unsent_count to
// 0 (TTL 24h), as one pipelined round trip.
func (r *RateLimiter) MarkSent(ctx context.Context, token string, now int64) error {
	pipe := r.client.rdb.TxPipeline()
	pipe.SetEx(ctx, lastSentKey(token), now, r.rateWindow)
	pipe.SetEx(ctx, unsentCountKey(token), 0, unsentCountTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}
