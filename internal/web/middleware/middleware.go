// Package middleware provides the http.Handler wrappers the compile
// service is assembled from: request IDs, structured request logging,
// panic recovery, client authentication, and rate limiting. Each
// constructor returns a Middleware in the shape chi's Use expects, so
// the router composes them without a chaining layer of its own.
package middleware

import "net/http"

// Middleware wraps an http.Handler with one cross-cutting concern
type Middleware func(http.Handler) http.Handler
