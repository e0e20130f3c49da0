package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/jsonsql-dev/jsonsql/internal/web/auth"
	"github.com/jsonsql-dev/jsonsql/internal/web/response"
)

// AuthMode selects the credential scheme the service accepts
type AuthMode int

const (
	// AuthNone disables authentication
	AuthNone AuthMode = iota
	// AuthToken requires an HS256 bearer token
	AuthToken
	// AuthKey requires an X-API-Key header matching a configured bcrypt hash
	AuthKey
)

// AuthConfig holds configuration for the auth middleware
type AuthConfig struct {
	// Mode selects the credential scheme
	Mode AuthMode
	// Tokens validates bearer tokens (required for AuthToken)
	Tokens *auth.TokenService
	// Keys verifies API keys (required for AuthKey)
	Keys *auth.KeyVerifier
	// SkipPaths is a list of paths to serve without credentials
	SkipPaths []string
}

// Auth creates a middleware that authenticates requests per the
// configured mode and stores the client identity in the context
func Auth(config AuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Mode == AuthNone {
				next.ServeHTTP(w, r)
				return
			}

			for _, skipPath := range config.SkipPaths {
				if r.URL.Path == skipPath {
					next.ServeHTTP(w, r)
					return
				}
			}

			var client string
			switch config.Mode {
			case AuthToken:
				token, ok := bearerToken(r)
				if !ok {
					response.RenderUnauthorized(w, "missing bearer token")
					return
				}
				validated, err := config.Tokens.ValidateToken(token)
				if err != nil {
					response.RenderUnauthorized(w, "invalid token")
					return
				}
				client = validated

			case AuthKey:
				key := r.Header.Get("X-API-Key")
				if key == "" {
					response.RenderUnauthorized(w, "missing API key")
					return
				}
				verified, ok := config.Keys.Verify(key)
				if !ok {
					response.RenderUnauthorized(w, "invalid API key")
					return
				}
				client = verified
			}

			ctx := context.WithValue(r.Context(), ClientKey, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an Authorization: Bearer header
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
