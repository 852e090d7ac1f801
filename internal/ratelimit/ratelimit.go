// Package ratelimit counts requests per client in fixed windows kept in Redis.
//
// The counter for a key is created by the first hit of a window and expires
// with it, so every replica behind a load balancer shares the same budget.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "mealplanner:ratelimit:"

// Result describes the state of one key after a hit.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter is a fixed-window counter.
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// New connects to Redis at addr and allows limit hits per window per key.
func New(ctx context.Context, addr string, limit int, window time.Duration) (*Limiter, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ratelimit: connecting to redis at %s: %w", addr, err)
	}

	return NewWithClient(client, limit, window), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client, limit int, window time.Duration) *Limiter {
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{client: client, limit: limit, window: window}
}

// Allow records one hit for key.
//
// INCR and PTTL go out in one pipeline. The expiry is only set when the key
// has none, which is what makes the window fixed: later hits never push the
// reset time back.
func (l *Limiter) Allow(ctx context.Context, key string) (Result, error) {
	k := keyPrefix + key

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, k)
	pttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, fmt.Errorf("ratelimit: counting %s: %w", key, err)
	}

	ttl := pttl.Val()
	if ttl < 0 {
		if err := l.client.PExpire(ctx, k, l.window).Err(); err != nil {
			return Result{}, fmt.Errorf("ratelimit: setting window on %s: %w", key, err)
		}
		ttl = l.window
	}

	count := int(incr.Val())
	return Result{
		Allowed:   count <= l.limit,
		Limit:     l.limit,
		Remaining: max(l.limit-count, 0),
		Reset:     time.Now().Add(ttl),
	}, nil
}

func (l *Limiter) Close() error {
	return l.client.Close()
}
