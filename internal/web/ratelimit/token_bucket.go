package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket is the in-process limiter. Each client identity gets a
// budget of Limit requests per Window, refilled continuously rather
// than on window boundaries, so a client that paces its requests is
// never bursted against.
type TokenBucket struct {
	mu      sync.Mutex
	clients map[string]*clientBudget
	limit   float64
	window  time.Duration
	done    chan struct{}
}

// clientBudget tracks the remaining fractional budget for one client
type clientBudget struct {
	tokens float64
	seen   time.Time
}

// TokenBucketConfig holds configuration for the in-process limiter
type TokenBucketConfig struct {
	// Limit is the number of requests granted per Window
	Limit int
	// Window is the period over which Limit requests refill
	Window time.Duration
	// SweepInterval is how often idle client budgets are evicted
	SweepInterval time.Duration
}

// DefaultTokenBucketConfig allows 120 requests per minute
func DefaultTokenBucketConfig() TokenBucketConfig {
	return TokenBucketConfig{
		Limit:         120,
		Window:        time.Minute,
		SweepInterval: 5 * time.Minute,
	}
}

// NewTokenBucket creates an in-process limiter with default configuration
func NewTokenBucket() *TokenBucket {
	return NewTokenBucketWithConfig(DefaultTokenBucketConfig())
}

// NewTokenBucketWithConfig creates an in-process limiter with custom configuration
func NewTokenBucketWithConfig(config TokenBucketConfig) *TokenBucket {
	tb := &TokenBucket{
		clients: make(map[string]*clientBudget),
		limit:   float64(config.Limit),
		window:  config.Window,
		done:    make(chan struct{}),
	}

	if config.SweepInterval > 0 {
		go tb.sweep(config.SweepInterval)
	}

	return tb
}

// Allow spends one token from the client's budget. A new client starts
// with a full budget
func (tb *TokenBucket) Allow(ctx context.Context, key string) (*Info, error) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	b, ok := tb.clients[key]
	if !ok {
		b = &clientBudget{tokens: tb.limit}
		tb.clients[key] = b
	} else if elapsed := now.Sub(b.seen); elapsed > 0 {
		refill := tb.limit * float64(elapsed) / float64(tb.window)
		b.tokens = min(tb.limit, b.tokens+refill)
	}
	b.seen = now

	info := &Info{Limit: int(tb.limit)}
	if b.tokens >= 1 {
		b.tokens--
		info.Allowed = true
	}
	info.Remaining = int(b.tokens)
	info.ResetAt = now.Add(tb.timeToFull(b.tokens))
	return info, nil
}

// timeToFull reports how long until a budget refills completely
func (tb *TokenBucket) timeToFull(tokens float64) time.Duration {
	missing := tb.limit - tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / tb.limit * float64(tb.window))
}

// sweep evicts budgets idle for longer than two windows; such clients
// have refilled completely and are indistinguishable from new ones
func (tb *TokenBucket) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-tb.done:
			return
		case now := <-ticker.C:
			tb.mu.Lock()
			for key, b := range tb.clients {
				if now.Sub(b.seen) > 2*tb.window {
					delete(tb.clients, key)
				}
			}
			tb.mu.Unlock()
		}
	}
}

// Close stops the sweep goroutine
func (tb *TokenBucket) Close() error {
	close(tb.done)
	return nil
}
