package progress

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis connects to a local Redis and skips the test when none is
// running. The integration build tag runs the same checks in a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		t.Skipf("Redis not available for testing: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})
	return client
}

func TestNewRedisBackend_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewRedisBackend should panic with nil redis client")
		}
	}()
	NewRedisBackend(nil, "progress")
}

func TestRedisBackend(t *testing.T) {
	client := setupTestRedis(t)
	runRedisBackendChecks(t, client)
}

func runRedisBackendChecks(t *testing.T, client *redis.Client) {
	ctx := context.Background()
	key := "fetcher:test:progress"
	require.NoError(t, client.Del(ctx, key).Err())

	backend := NewRedisBackend(client, key)

	entries, err := backend.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, backend.Put(ctx, "AAA", json.RawMessage(`"ok1"`)))
	require.NoError(t, backend.Put(ctx, "AAA", json.RawMessage(`"replaced"`)))

	entries, err = backend.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `"ok1"`, string(entries["AAA"]))

	require.NoError(t, backend.Save(ctx, map[string]json.RawMessage{"CCC": json.RawMessage(`"ok3"`)}))
	entries, err = backend.Load(ctx)
	require.NoError(t, err)
	assert.NotContains(t, entries, "AAA")
	assert.JSONEq(t, `"ok3"`, string(entries["CCC"]))

	require.NoError(t, client.HSet(ctx, key, "BAD", "{oops").Err())
	_, err = backend.Load(ctx)
	assert.ErrorIs(t, err, ErrCorruptProgress)
}
