package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"opsdesk/pkg/platform/sentinel"
)

// RedisCollection persists one record set as a hash: field per document key,
// JSON value.
type RedisCollection[T any] struct {
	client *redis.Client
	key    string
}

// NewRedisCollection binds a collection to a hash key like "docs:projects".
func NewRedisCollection[T any](client *redis.Client, name string) *RedisCollection[T] {
	return &RedisCollection[T]{client: client, key: "docs:" + name}
}

func (c *RedisCollection[T]) Save(ctx context.Context, key string, doc T) error {
	value, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := c.client.HSet(ctx, c.key, key, value).Err(); err != nil {
		return fmt.Errorf("save document %s: %w", key, err)
	}
	return nil
}

func (c *RedisCollection[T]) Find(ctx context.Context, key string) (T, error) {
	var doc T
	value, err := c.client.HGet(ctx, c.key, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return doc, sentinel.ErrNotFound
		}
		return doc, fmt.Errorf("find document %s: %w", key, err)
	}
	if err := json.Unmarshal(value, &doc); err != nil {
		return doc, fmt.Errorf("unmarshal document %s: %w", key, err)
	}
	return doc, nil
}

func (c *RedisCollection[T]) List(ctx context.Context) ([]T, error) {
	values, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	out := make([]T, 0, len(values))
	for key, value := range values {
		var doc T
		if err := json.Unmarshal([]byte(value), &doc); err != nil {
			return nil, fmt.Errorf("unmarshal document %s: %w", key, err)
		}
		out = append(out, doc)
	}
	return out, nil
}

func (c *RedisCollection[T]) Delete(ctx context.Context, key string) error {
	removed, err := c.client.HDel(ctx, c.key, key).Result()
	if err != nil {
		return fmt.Errorf("delete document %s: %w", key, err)
	}
	if removed == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
