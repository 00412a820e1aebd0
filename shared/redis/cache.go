package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by JSONCache.Get when nothing is stored under key.
var ErrCacheMiss = errors.New("cache miss")

// JSONCache stores values of one type as JSON strings. It reports every
// failure to the caller and leaves the decision to log or ignore it there.
type JSONCache[T any] struct {
	client *goredis.Client
	ttl    time.Duration // zero keeps keys until overwritten
}

func NewJSONCache[T any](client *goredis.Client, ttl time.Duration) *JSONCache[T] {
	return &JSONCache[T]{client: client, ttl: ttl}
}

func (c *JSONCache[T]) Get(ctx context.Context, key string) (*T, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	value := new(T)
	if err := json.Unmarshal(data, value); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return value, nil
}

func (c *JSONCache[T]) Set(ctx context.Context, key string, value *T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (c *JSONCache[T]) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
