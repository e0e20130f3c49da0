package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter implements a Redis-backed sliding window rate limiter
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// RedisLimiterConfig holds configuration for the Redis rate limiter
type RedisLimiterConfig struct {
	// Client is the Redis client to use
	Client *redis.Client
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Window is the time window for rate limiting
	Window time.Duration
	// Prefix is the key prefix for Redis keys
	Prefix string
}

// DefaultRedisLimiterConfig returns a default Redis limiter configuration.
// Allows 120 requests per minute
func DefaultRedisLimiterConfig(client *redis.Client) RedisLimiterConfig {
	return RedisLimiterConfig{
		Client: client,
		Limit:  120,
		Window: time.Minute,
		Prefix: "jsonsql:ratelimit:",
	}
}

// NewRedisLimiter creates a new Redis rate limiter
func NewRedisLimiter(config RedisLimiterConfig) (*RedisLimiter, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.Limit <= 0 {
		return nil, errors.New("limit must be greater than 0")
	}
	if config.Window <= 0 {
		return nil, errors.New("window must be greater than 0")
	}

	return &RedisLimiter{
		client: config.Client,
		limit:  config.Limit,
		window: config.Window,
		prefix: config.Prefix,
	}, nil
}

// allowScript counts and records a request atomically in a sorted set
// keyed by timestamp, trimming entries outside the window first.
var allowScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, 0, window_start)

	local current = redis.call('ZCARD', key)

	if current < limit then
		redis.call('ZADD', key, now, now)
		redis.call('EXPIRE', key, window)
		return {1, current + 1}
	else
		return {0, current}
	end
`)

// Allow checks if a request should be allowed for the given key using
// a sliding window
func (r *RedisLimiter) Allow(ctx context.Context, key string) (*Info, error) {
	redisKey := r.prefix + key
	now := time.Now()
	windowStart := now.Add(-r.window)

	result, err := allowScript.Run(ctx, r.client, []string{redisKey},
		now.UnixNano(),
		windowStart.UnixNano(),
		r.limit,
		int(r.window.Seconds()),
	).Result()

	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	resultSlice, ok := result.([]interface{})
	if !ok || len(resultSlice) != 2 {
		return nil, errors.New("unexpected redis script result")
	}

	allowed, ok := resultSlice[0].(int64)
	if !ok {
		return nil, errors.New("invalid allowed value from redis")
	}

	count, ok := resultSlice[1].(int64)
	if !ok {
		return nil, errors.New("invalid count value from redis")
	}

	remaining := r.limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return &Info{
		Limit:     r.limit,
		Remaining: remaining,
		ResetAt:   now.Add(r.window),
		Allowed:   allowed == 1,
	}, nil
}

// Reset removes all rate limit data for the given key
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}
