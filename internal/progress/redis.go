package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores progress in a single Redis hash, one field per symbol.
type RedisBackend struct {
	client redis.UniversalClient
	key    string
}

// NewRedisBackend creates a backend that keeps its entries in the hash at key.
func NewRedisBackend(client redis.UniversalClient, key string) *RedisBackend {
	if client == nil {
		panic("redis client cannot be nil")
	}
	return &RedisBackend{client: client, key: key}
}

// Load reads every field of the hash. A missing hash yields an empty map.
func (b *RedisBackend) Load(ctx context.Context) (map[string]json.RawMessage, error) {
	fields, err := b.client.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", b.key, err)
	}

	entries := make(map[string]json.RawMessage, len(fields))
	for field, value := range fields {
		if !json.Valid([]byte(value)) {
			return nil, &CorruptProgressError{
				Source: fmt.Sprintf("redis %s[%s]", b.key, field),
				Err:    errors.New("invalid JSON payload"),
			}
		}
		entries[field] = json.RawMessage(value)
	}
	return entries, nil
}

// Save replaces the hash with entries in one transaction.
func (b *RedisBackend) Save(ctx context.Context, entries map[string]json.RawMessage) error {
	values := make(map[string]any, len(entries))
	for k, v := range entries {
		values[k] = string(v)
	}

	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, b.key)
		if len(values) > 0 {
			pipe.HSet(ctx, b.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save %s: %w", b.key, err)
	}
	return nil
}

// Put sets one field unless it already exists.
func (b *RedisBackend) Put(ctx context.Context, key string, payload json.RawMessage) error {
	if err := b.client.HSetNX(ctx, b.key, key, string(payload)).Err(); err != nil {
		return fmt.Errorf("redis hsetnx %s[%s]: %w", b.key, key, err)
	}
	return nil
}
