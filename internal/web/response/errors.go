package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jsonsql-dev/jsonsql"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Entity  string `json:"entity,omitempty"`
}

// RenderError renders a standard error response
func RenderError(w http.ResponseWriter, statusCode int, err error) {
	RenderErrorWithCode(w, statusCode, err, "")
}

// RenderErrorWithCode renders an error with a specific error code
func RenderErrorWithCode(w http.ResponseWriter, statusCode int, err error, code string) {
	// Compilation failures carry their own kind and entity
	var compileErr *jsonsql.Error
	if errors.As(err, &compileErr) {
		RenderCompileError(w, compileErr)
		return
	}

	// Generate error code from status if not provided
	if code == "" {
		code = errorCodeFromStatus(statusCode)
	}

	response := &ErrorResponse{
		Error:   "error",
		Message: err.Error(),
		Code:    code,
	}

	writeJSON(w, statusCode, response)
}

// RenderCompileError renders a compilation failure as 422 with the
// failure kind as the error code
func RenderCompileError(w http.ResponseWriter, compileErr *jsonsql.Error) {
	response := &ErrorResponse{
		Error:   compileErr.Kind.String(),
		Message: compileErr.Message,
		Code:    compileErr.Kind.String(),
		Entity:  compileErr.Entity,
	}

	writeJSON(w, http.StatusUnprocessableEntity, response)
}

// RenderBadRequest renders a 400 Bad Request error
func RenderBadRequest(w http.ResponseWriter, message string) {
	RenderError(w, http.StatusBadRequest, fmt.Errorf("%s", message))
}

// RenderUnauthorized renders a 401 Unauthorized error
func RenderUnauthorized(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Authentication required"
	}
	RenderError(w, http.StatusUnauthorized, fmt.Errorf("%s", message))
}

// RenderNotFound renders a 404 Not Found error
func RenderNotFound(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Resource not found"
	}
	RenderError(w, http.StatusNotFound, fmt.Errorf("%s", message))
}

// RenderTooManyRequests renders a 429 Too Many Requests error
func RenderTooManyRequests(w http.ResponseWriter, message string) {
	if message == "" {
		message = "Rate limit exceeded"
	}
	RenderError(w, http.StatusTooManyRequests, fmt.Errorf("%s", message))
}

// RenderInternalError renders a 500 Internal Server Error
func RenderInternalError(w http.ResponseWriter, message string) {
	if message == "" {
		message = "An unexpected error occurred"
	}
	RenderError(w, http.StatusInternalServerError, fmt.Errorf("%s", message))
}

// RenderJSON renders an arbitrary payload as a JSON response
func RenderJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	writeJSON(w, statusCode, payload)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// errorCodeFromStatus maps an HTTP status to a machine-readable code
func errorCodeFromStatus(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	case http.StatusInternalServerError:
		return "internal_server_error"
	default:
		return "error"
	}
}
