package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-order-saga.git/internal/redisx"
)

type CachedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// ResultCache: dedup level saga. Harus durable & shared antar instance
// orchestrator, makanya backed Redis dan bukan map in-process.
type ResultCache interface {
	Get(ctx context.Context, key string) (*CachedResponse, error)
	Put(ctx context.Context, key string, resp CachedResponse) error
}

type RedisCache struct{ RDB *redis.Client }

func (c *RedisCache) Get(ctx context.Context, key string) (*CachedResponse, error) {
	s, err := c.RDB.Get(ctx, fmt.Sprintf(redisx.KeySagaResult, key)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp CachedResponse
	if err := json.Unmarshal([]byte(s), &resp); err != nil {
		return nil, fmt.Errorf("saga cache: decode: %w", err)
	}
	return &resp, nil
}

func (c *RedisCache) Put(ctx context.Context, key string, resp CachedResponse) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, fmt.Sprintf(redisx.KeySagaResult, key), b, redisx.TTLSagaResult).Err()
}
