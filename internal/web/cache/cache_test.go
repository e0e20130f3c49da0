package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backends returns each cache implementation under a common interface
func backends(t *testing.T) map[string]Cache {
	t.Helper()

	mem := NewMemoryCacheWithConfig(Config{DefaultTTL: time.Minute, Prefix: "test:"})
	t.Cleanup(func() { mem.Close() })

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return map[string]Cache{
		"memory": mem,
		"redis":  NewRedisCache(client, Config{DefaultTTL: time.Minute, Prefix: "test:"}),
	}
}

func TestCacheSetGet(t *testing.T) {
	entry := &Entry{
		SQL:    "SELECT * FROM users WHERE name = ?",
		Params: []interface{}{"ada"},
	}

	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, c.Set(ctx, "k", entry, time.Minute))

			got, err := c.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, entry.SQL, got.SQL)
			assert.Equal(t, entry.Params, got.Params)
		})
	}
}

func TestCacheMaterializedEntryKeepsNilParams(t *testing.T) {
	entry := &Entry{SQL: "SELECT * FROM users WHERE name = 'ada'"}

	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, c.Set(ctx, "k", entry, time.Minute))

			got, err := c.Get(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, entry.SQL, got.SQL)
			assert.Nil(t, got.Params)
		})
	}
}

func TestCacheMiss(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Get(context.Background(), "absent")
			require.Error(t, err)
			assert.True(t, IsCacheMiss(err))
		})
	}
}

func TestCacheDelete(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, c.Set(ctx, "k", &Entry{SQL: "SELECT 1"}, time.Minute))
			require.NoError(t, c.Delete(ctx, "k"))

			_, err := c.Get(ctx, "k")
			assert.True(t, IsCacheMiss(err))
		})
	}
}

func TestCacheClear(t *testing.T) {
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, c.Set(ctx, "a", &Entry{SQL: "SELECT 1"}, time.Minute))
			require.NoError(t, c.Set(ctx, "b", &Entry{SQL: "SELECT 2"}, time.Minute))
			require.NoError(t, c.Clear(ctx))

			_, err := c.Get(ctx, "a")
			assert.True(t, IsCacheMiss(err))
			_, err = c.Get(ctx, "b")
			assert.True(t, IsCacheMiss(err))
		})
	}
}

func TestMemoryCacheExpiration(t *testing.T) {
	c := NewMemoryCacheWithConfig(Config{DefaultTTL: time.Minute, Prefix: "test:"})
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", &Entry{SQL: "SELECT 1"}, 10*time.Millisecond))

	time.Sleep(30 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisCacheExpiration(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCache(client, Config{DefaultTTL: time.Minute, Prefix: "test:"})

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", &Entry{SQL: "SELECT 1"}, time.Second))

	mr.FastForward(2 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.True(t, IsCacheMiss(err))
}

func TestRedisCacheUndecodableValueReadsAsMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	require.NoError(t, mr.Set("test:k", "not json"))

	c := NewRedisCache(client, Config{DefaultTTL: time.Minute, Prefix: "test:"})
	_, err := c.Get(context.Background(), "k")
	assert.True(t, IsCacheMiss(err))
}
