package cache

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter enforces a fixed-window request ceiling per patient (C2).
// The window is reset by Redis key expiry, not by wall-clock bucketing:
// the first request in a window sets the TTL, every subsequent request in
// the same window just increments.
type RateLimiter struct {
	client      *Client
	maxRequests int64
	window      time.Duration
}

func NewRateLimiter(client *Client, maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, maxRequests: int64(maxRequests), window: window}
}

// Allow increments the counter for patientID and reports whether the
// caller is still within the window's ceiling. It sets the window TTL
// only on the increment that creates the key (count == 1), matching a
// fixed, non-sliding window per patient.
func (r *RateLimiter) Allow(ctx context.Context, patientID string) (bool, error) {
	key := fmt.Sprintf("rate_limit:%s", patientID)

	count, err := r.client.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("cache: rate limit incr: %w", err)
	}
	if count == 1 {
		if err := r.client.rdb.Expire(ctx, key, r.window).Err(); err != nil {
			return false, fmt.Errorf("cache: rate limit expire: %w", err)
		}
	}

	return count <= r.maxRequests, nil
}
