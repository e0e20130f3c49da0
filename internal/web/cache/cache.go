// Package cache stores compile results keyed by request body so
// repeated requests skip the compiler. Backends: in-process memory and
// Redis.
package cache

import (
	"context"
	"time"
)

// Entry is one cached compile result. SQL holds the full statement for
// the compile endpoints and the bare fragment for the condition
// endpoint; Params is nil in materialized mode, where the values are
// inlined into the statement.
type Entry struct {
	SQL    string        `json:"sql"`
	Params []interface{} `json:"params,omitempty"`
}

// Cache defines the interface for all cache backends
type Cache interface {
	// Get returns the compile result stored under key
	Get(ctx context.Context, key string) (*Entry, error)

	// Set stores a compile result under key with a TTL
	Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error

	// Delete removes one compile result from the cache
	Delete(ctx context.Context, key string) error

	// Clear removes all compile results from the cache
	Clear(ctx context.Context) error
}

// Config holds common configuration for cache backends
type Config struct {
	// DefaultTTL is the default time-to-live for cached items
	DefaultTTL time.Duration
	// Prefix is prepended to all cache keys
	Prefix string
}

// DefaultConfig returns a default cache configuration
func DefaultConfig() Config {
	return Config{
		DefaultTTL: 5 * time.Minute,
		Prefix:     "jsonsql:",
	}
}

// ErrCacheMiss is returned when a key is not found in the cache
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	_, ok := err.(ErrCacheMiss)
	return ok
}
