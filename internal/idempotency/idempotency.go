package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/seat-reservations/internal/adapters/redis"
)

// Idempotency replays stored responses for repeated POSTs carrying the
// same Idempotency-Key.
type Idempotency struct {
	cache *redisadapter.Cache
	ttl   time.Duration
}

func NewIdempotency(cache *redisadapter.Cache, ttl time.Duration) *Idempotency {
	return &Idempotency{cache: cache, ttl: ttl}
}

type Response struct {
	Status int
	Result []byte
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	if key == "" {
		return nil, nil
	}
	stored, err := i.cache.GetResponse(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, Result: stored.Result}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	if key == "" {
		return nil
	}
	return i.cache.SetResponse(ctx, key, redisadapter.StoredResponse{Status: resp.Status, Result: resp.Result}, i.ttl)
}
