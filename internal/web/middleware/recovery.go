package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/jsonsql-dev/jsonsql/internal/web/response"
)

// RecoveryConfig holds configuration for the recovery middleware
type RecoveryConfig struct {
	// Logger receives the panic value and stack trace
	Logger *zap.Logger
	// EnableStackTrace determines whether to log stack traces
	EnableStackTrace bool
}

// DefaultRecoveryConfig returns the default recovery configuration
func DefaultRecoveryConfig(logger *zap.Logger) RecoveryConfig {
	return RecoveryConfig{
		Logger:           logger,
		EnableStackTrace: true,
	}
}

// Recovery creates a middleware that recovers from handler panics and
// responds with a JSON 500
func Recovery(logger *zap.Logger) Middleware {
	return RecoveryWithConfig(DefaultRecoveryConfig(logger))
}

// RecoveryWithConfig creates a recovery middleware with custom configuration
func RecoveryWithConfig(config RecoveryConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if config.Logger != nil {
						fields := []zap.Field{
							zap.String("request_id", GetRequestID(r.Context())),
							zap.String("path", r.URL.Path),
							zap.String("panic", fmt.Sprintf("%v", rec)),
						}
						if config.EnableStackTrace {
							fields = append(fields, zap.ByteString("stack", debug.Stack()))
						}
						config.Logger.Error("panic recovered", fields...)
					}

					response.RenderInternalError(w, "")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
