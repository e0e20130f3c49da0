package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jsonsql-dev/jsonsql/internal/web/ratelimit"
	"github.com/jsonsql-dev/jsonsql/internal/web/response"
)

// RateLimitConfig holds configuration for rate limiting middleware
type RateLimitConfig struct {
	// Limiter is the rate limiter implementation to use
	Limiter ratelimit.RateLimiter
	// KeyFunc extracts the rate limit key from the request
	KeyFunc RateLimitKeyFunc
	// SkipPaths is a list of paths to serve without counting
	SkipPaths []string
	// FailOpen determines behavior when the limiter returns an error.
	// If true, allows the request; if false, denies it
	FailOpen bool
}

// RateLimitKeyFunc extracts a rate limit key from a request
type RateLimitKeyFunc func(*http.Request) string

// DefaultRateLimitConfig returns a default rate limit configuration
func DefaultRateLimitConfig(limiter ratelimit.RateLimiter) RateLimitConfig {
	return RateLimitConfig{
		Limiter:  limiter,
		KeyFunc:  ClientKeyFunc,
		FailOpen: true,
	}
}

// RateLimit creates a rate limiting middleware keyed by client identity
func RateLimit(limiter ratelimit.RateLimiter) Middleware {
	return RateLimitWithConfig(DefaultRateLimitConfig(limiter))
}

// RateLimitWithConfig creates a rate limiting middleware with custom configuration
func RateLimitWithConfig(config RateLimitConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skipPath := range config.SkipPaths {
				if r.URL.Path == skipPath {
					next.ServeHTTP(w, r)
					return
				}
			}

			key := config.KeyFunc(r)
			if key == "" {
				if config.FailOpen {
					next.ServeHTTP(w, r)
				} else {
					response.RenderInternalError(w, "rate limit key extraction failed")
				}
				return
			}

			info, err := config.Limiter.Allow(r.Context(), key)
			if err != nil {
				if config.FailOpen {
					next.ServeHTTP(w, r)
				} else {
					response.RenderInternalError(w, "rate limit check failed")
				}
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))

			if !info.Allowed {
				retryAfter := int64(time.Until(info.ResetAt).Seconds())
				if retryAfter < 0 {
					retryAfter = 0
				}
				w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				response.RenderTooManyRequests(w, "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientKeyFunc keys by the authenticated client identity, falling
// back to the remote IP for anonymous requests
func ClientKeyFunc(r *http.Request) string {
	if client := GetClient(r.Context()); client != "" {
		return client
	}
	return "ip:" + IPKeyFunc(r)
}

// IPKeyFunc extracts the IP address from the request.
// Checks X-Forwarded-For header first, then falls back to RemoteAddr
func IPKeyFunc(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		// Take the first IP in the list
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			ip := strings.TrimSpace(ips[0])
			if ip != "" {
				return ip
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	// RemoteAddr is in format "ip:port", extract just the IP
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
