// Package api implements the HTTP handlers of the compile service.
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jsonsql-dev/jsonsql"
	"github.com/jsonsql-dev/jsonsql/internal/web/cache"
	"github.com/jsonsql-dev/jsonsql/internal/web/response"
)

// maxBodyBytes caps the request body size for compile endpoints
const maxBodyBytes = 1 << 20 // 1 MB

// Handler serves the compile API
type Handler struct {
	compiler *jsonsql.Compiler
	logger   *zap.Logger
	cache    cache.Cache
	keys     *cache.KeyGenerator
	cacheTTL time.Duration
	version  string
}

// Config holds handler dependencies
type Config struct {
	// Compiler performs the actual query compilation
	Compiler *jsonsql.Compiler
	// Logger receives handler diagnostics
	Logger *zap.Logger
	// Cache stores compile results; nil disables caching
	Cache cache.Cache
	// CacheTTL is how long compile results stay cached
	CacheTTL time.Duration
	// Version is reported by the health endpoint
	Version string
}

// NewHandler creates the API handler
func NewHandler(config Config) *Handler {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	h := &Handler{
		compiler: config.Compiler,
		logger:   logger,
		cache:    config.Cache,
		cacheTTL: config.CacheTTL,
		version:  config.Version,
	}
	if config.Cache != nil {
		h.keys = cache.NewKeyGenerator(config.Compiler.Policy())
	}
	return h
}

// CompileResult is the success payload of the compile endpoints
type CompileResult struct {
	SQL    string        `json:"sql"`
	Params []interface{} `json:"params"`
}

// ConditionResult is the success payload of the condition endpoint
type ConditionResult struct {
	Fragment string        `json:"fragment"`
	Params   []interface{} `json:"params"`
}

// Compile handles POST /api/v1/compile. With ?values=true the
// compiled statement is materialized and params are omitted
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		response.RenderBadRequest(w, "failed to read request body")
		return
	}

	withValues := r.URL.Query().Get("values") == "true"

	if h.cache != nil {
		key := h.keys.CompileKey(body, withValues)
		if entry, err := h.cache.Get(r.Context(), key); err == nil {
			w.Header().Set("X-Cache", "HIT")
			response.RenderJSON(w, http.StatusOK, compileResultFromEntry(entry))
			return
		}
	}

	req, err := jsonsql.ParseRequest(body)
	if err != nil {
		response.RenderBadRequest(w, err.Error())
		return
	}

	var result CompileResult
	if withValues {
		sql, cerr := h.compiler.CompileWithValues(req)
		if cerr != nil {
			response.RenderError(w, http.StatusUnprocessableEntity, cerr)
			return
		}
		result = CompileResult{SQL: sql, Params: []interface{}{}}
	} else {
		sql, params, cerr := h.compiler.Compile(req)
		if cerr != nil {
			response.RenderError(w, http.StatusUnprocessableEntity, cerr)
			return
		}
		if params == nil {
			params = []interface{}{}
		}
		result = CompileResult{SQL: sql, Params: params}
	}

	h.respondAndCache(w, r, result, body, withValues)
}

// Condition handles POST /api/v1/condition: it compiles a bare
// condition tree into a WHERE fragment
func (h *Handler) Condition(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		response.RenderBadRequest(w, "failed to read request body")
		return
	}

	if h.cache != nil {
		key := h.keys.ConditionKey(body)
		if entry, err := h.cache.Get(r.Context(), key); err == nil {
			w.Header().Set("X-Cache", "HIT")
			response.RenderJSON(w, http.StatusOK, conditionResultFromEntry(entry))
			return
		}
	}

	var cond jsonsql.Condition
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&cond); err != nil {
		response.RenderBadRequest(w, "invalid condition: "+err.Error())
		return
	}

	fragment, params, cerr := h.compiler.CompileCondition(cond)
	if cerr != nil {
		response.RenderError(w, http.StatusUnprocessableEntity, cerr)
		return
	}
	if params == nil {
		params = []interface{}{}
	}

	if h.cache != nil {
		entry := &cache.Entry{SQL: fragment, Params: params}
		if err := h.cache.Set(r.Context(), h.keys.ConditionKey(body), entry, h.cacheTTL); err != nil {
			h.logger.Warn("cache store failed", zap.Error(err))
		}
	}

	response.RenderJSON(w, http.StatusOK, ConditionResult{Fragment: fragment, Params: params})
}

// Policy handles GET /api/v1/policy with the active policy snapshot
func (h *Handler) Policy(w http.ResponseWriter, r *http.Request) {
	response.RenderJSON(w, http.StatusOK, h.compiler.Policy().Snapshot())
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response.RenderJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// respondAndCache writes the success payload and stores the result for
// subsequent identical requests. Materialized results store without
// params; the empty params list is restored when the entry is served
func (h *Handler) respondAndCache(w http.ResponseWriter, r *http.Request, result CompileResult, body []byte, withValues bool) {
	if h.cache != nil {
		entry := &cache.Entry{SQL: result.SQL}
		if !withValues {
			entry.Params = result.Params
		}
		key := h.keys.CompileKey(body, withValues)
		if err := h.cache.Set(r.Context(), key, entry, h.cacheTTL); err != nil {
			h.logger.Warn("cache store failed", zap.Error(err))
		}
	}

	response.RenderJSON(w, http.StatusOK, result)
}

func compileResultFromEntry(entry *cache.Entry) CompileResult {
	result := CompileResult{SQL: entry.SQL, Params: entry.Params}
	if result.Params == nil {
		result.Params = []interface{}{}
	}
	return result
}

func conditionResultFromEntry(entry *cache.Entry) ConditionResult {
	result := ConditionResult{Fragment: entry.SQL, Params: entry.Params}
	if result.Params == nil {
		result.Params = []interface{}{}
	}
	return result
}
