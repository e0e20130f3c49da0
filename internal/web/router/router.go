// Package router wires the compile API onto chi.
package router

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jsonsql-dev/jsonsql/internal/web/api"
	"github.com/jsonsql-dev/jsonsql/internal/web/middleware"
	"github.com/jsonsql-dev/jsonsql/internal/web/response"
)

var errMethodNotAllowed = errors.New("method not allowed")

// Config holds router configuration
type Config struct {
	// API provides the endpoint handlers
	API *api.Handler
	// Middleware wraps every route, in the order given
	Middleware []middleware.Middleware
}

// New builds the service route table
func New(config Config) http.Handler {
	r := chi.NewRouter()

	for _, mw := range config.Middleware {
		r.Use(mw)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/compile", config.API.Compile)
		r.Post("/condition", config.API.Condition)
		r.Get("/policy", config.API.Policy)
	})

	r.Get("/health", config.API.Health)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		response.RenderNotFound(w, "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		response.RenderError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	})

	return r
}
