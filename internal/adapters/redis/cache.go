package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// StoredResponse is a replayable POST response kept for idempotent
// retries.
type StoredResponse struct {
	Status int
	Result []byte
}

func (c *Cache) GetResponse(ctx context.Context, key string) (*StoredResponse, error) {
	val, err := c.client.Get(ctx, "resv:idemp:"+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp StoredResponse
	if err := json.Unmarshal(val, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Cache) SetResponse(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "resv:idemp:"+key, data, ttl).Err()
}
