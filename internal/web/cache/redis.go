package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares compile results across service instances. Entries
// ride as JSON; a value that no longer decodes reads as a miss so a
// schema change cannot wedge the service.
type RedisCache struct {
	client *redis.Client
	config Config
}

// NewRedisCache creates a Redis cache on an existing client
func NewRedisCache(client *redis.Client, config Config) *RedisCache {
	return &RedisCache{
		client: client,
		config: config,
	}
}

// Get returns the compile result stored under key
func (r *RedisCache) Get(ctx context.Context, key string) (*Entry, error) {
	raw, err := r.client.Get(ctx, r.config.Prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss{Key: key}
		}
		return nil, fmt.Errorf("cache get %s: %w", key, err)
	}

	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, ErrCacheMiss{Key: key}
	}
	return &entry, nil
}

// Set stores a compile result under key with a TTL
func (r *RedisCache) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	if ttl == 0 {
		ttl = r.config.DefaultTTL
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}

	return r.client.Set(ctx, r.config.Prefix+key, raw, ttl).Err()
}

// Delete removes one compile result from the cache
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.config.Prefix+key).Err()
}

// Clear removes all compile results with this cache's prefix
func (r *RedisCache) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.config.Prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
