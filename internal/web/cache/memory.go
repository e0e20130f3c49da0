package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache keeps compile results in-process. Entries are held as
// typed values, so a hit costs a map lookup and no decoding. Expired
// entries are dropped on access and by a periodic sweep.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	config  Config
	done    chan struct{}
}

type memoryEntry struct {
	result   *Entry
	deadline time.Time
}

// expired reports whether the entry's deadline has passed. A zero
// deadline never expires.
func (e memoryEntry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// NewMemoryCache creates an in-process cache with default configuration
func NewMemoryCache() *MemoryCache {
	return NewMemoryCacheWithConfig(DefaultConfig())
}

// NewMemoryCacheWithConfig creates an in-process cache with custom configuration
func NewMemoryCacheWithConfig(config Config) *MemoryCache {
	m := &MemoryCache{
		entries: make(map[string]memoryEntry),
		config:  config,
		done:    make(chan struct{}),
	}

	go m.sweep()

	return m
}

// Get returns the compile result stored under key
func (m *MemoryCache) Get(ctx context.Context, key string) (*Entry, error) {
	k := m.config.Prefix + key

	m.mu.RLock()
	item, ok := m.entries[k]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}
	if item.expired(time.Now()) {
		m.mu.Lock()
		delete(m.entries, k)
		m.mu.Unlock()
		return nil, ErrCacheMiss{Key: key}
	}

	return item.result, nil
}

// Set stores a compile result under key. A zero TTL uses the default;
// a negative TTL stores the entry without expiration
func (m *MemoryCache) Set(ctx context.Context, key string, entry *Entry, ttl time.Duration) error {
	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	item := memoryEntry{result: entry}
	if ttl > 0 {
		item.deadline = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[m.config.Prefix+key] = item
	m.mu.Unlock()
	return nil
}

// Delete removes one compile result from the cache
func (m *MemoryCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, m.config.Prefix+key)
	m.mu.Unlock()
	return nil
}

// Clear removes all compile results from the cache
func (m *MemoryCache) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]memoryEntry)
	m.mu.Unlock()
	return nil
}

// Close stops the background sweep
func (m *MemoryCache) Close() error {
	close(m.done)
	return nil
}

// sweep evicts expired entries once a minute so an idle cache does not
// accumulate dead results between requests
func (m *MemoryCache) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case now := <-ticker.C:
			m.mu.Lock()
			for k, item := range m.entries {
				if item.expired(now) {
					delete(m.entries, k)
				}
			}
			m.mu.Unlock()
		}
	}
}
