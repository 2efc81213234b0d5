package ratelimit

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/seat-reservations/internal/adapters/redis"
)

// RateLimiter counts requests per key in fixed windows backed by redis.
type RateLimiter struct {
	cache *redisadapter.Cache
}

func NewRateLimiter(cache *redisadapter.Cache) *RateLimiter {
	return &RateLimiter{cache: cache}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) bool {
	fullKey := "resv:rl:" + key

	pipe := rl.cache.Client().Pipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.Expire(ctx, fullKey, period)

	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open: a broken limiter must not take the API down.
		return true
	}

	return incr.Val() <= int64(rate)
}
