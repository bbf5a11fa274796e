package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/embedd-dev/embedd/internal/service"
)

// RetryAfterSeconds is sent with 503 responses while the model loads.
const RetryAfterSeconds = 5

// APIError represents a structured error response from the embedd API.
// Detail carries the human-readable cause; Suggestion says how to fix it.
type APIError struct {
	Code       string `json:"code"`
	Detail     string `json:"detail"`
	Suggestion string `json:"suggestion,omitempty"`
}

// Error implements the error interface for APIError.
func (e APIError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s: %s. %s", e.Code, e.Detail, e.Suggestion)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// WithDetail returns a copy of the error with a different detail.
func (e APIError) WithDetail(detail string) APIError {
	e.Detail = detail
	return e
}

// =============================================================================
// Model Errors
// =============================================================================

var (
	// ErrModelNotReady is returned while the model is still loading.
	ErrModelNotReady = APIError{
		Code:       "MODEL_NOT_READY",
		Detail:     "Model is not loaded yet. Please try again in a moment.",
		Suggestion: "Poll GET /health until status is 'ok', then retry",
	}

	// ErrModelLoadFailed is returned after the model failed to load.
	ErrModelLoadFailed = APIError{
		Code:       "MODEL_LOAD_FAILED",
		Detail:     "Model failed to load",
		Suggestion: "Check the server logs and the model configuration, then restart the service",
	}

	// ErrEmbeddingFailed is returned when embedding generation fails.
	ErrEmbeddingFailed = APIError{
		Code:       "EMBEDDING_FAILED",
		Detail:     "Error during embedding generation",
		Suggestion: "This may be a temporary issue with the inference backend. Check its logs and try again",
	}
)

// =============================================================================
// Request Errors
// =============================================================================

var (
	// ErrTextEmpty is returned when text is an empty string or list.
	ErrTextEmpty = APIError{
		Code:       "TEXT_EMPTY",
		Detail:     "Input text cannot be empty.",
		Suggestion: "Send a non-empty string or a non-empty list of strings in 'text'",
	}

	// ErrTextInvalidType is returned when text is not a string or list of strings.
	ErrTextInvalidType = APIError{
		Code:       "TEXT_INVALID_TYPE",
		Detail:     "Input text must be a string or a list of strings.",
		Suggestion: `Use {"text": "..."} or {"text": ["...", "..."]}`,
	}

	// ErrInvalidJSON is returned when the request body contains invalid JSON.
	ErrInvalidJSON = APIError{
		Code:       "INVALID_JSON",
		Detail:     "Request body contains invalid JSON",
		Suggestion: "Check your JSON syntax and ensure all strings are properly quoted",
	}

	// ErrRequestTooLarge is returned when the request body exceeds the size limit.
	ErrRequestTooLarge = APIError{
		Code:       "REQUEST_TOO_LARGE",
		Detail:     "Request body is too large",
		Suggestion: "Split the texts across several requests",
	}

	// ErrRequestTimeout is returned when encoding outlives the request timeout.
	ErrRequestTimeout = APIError{
		Code:       "REQUEST_TIMEOUT",
		Detail:     "Embedding generation did not finish within the request timeout",
		Suggestion: "Send fewer texts per request or raise server.request_timeout_seconds",
	}

	// ErrRouteNotFound is returned for unknown paths.
	ErrRouteNotFound = APIError{
		Code:       "NOT_FOUND",
		Detail:     "Not Found",
		Suggestion: "Available endpoints are GET /health and POST /embed",
	}

	// ErrMethodNotAllowed is returned for a known path with the wrong method.
	ErrMethodNotAllowed = APIError{
		Code:   "METHOD_NOT_ALLOWED",
		Detail: "Method Not Allowed",
	}
)

// FromServiceError maps a service error to its HTTP status and body.
func FromServiceError(err error) (int, APIError) {
	var svcErr *service.Error
	if !errors.As(err, &svcErr) {
		return http.StatusInternalServerError, ErrEmbeddingFailed.WithDetail(err.Error())
	}

	switch svcErr.Kind {
	case service.KindNotReady:
		return http.StatusServiceUnavailable, ErrModelNotReady.WithDetail(svcErr.Error())
	case service.KindFatalLoadFailure:
		return http.StatusServiceUnavailable, ErrModelLoadFailed.WithDetail(svcErr.Error())
	case service.KindInvalidInput:
		if svcErr.Message == ErrTextEmpty.Detail {
			return http.StatusBadRequest, ErrTextEmpty
		}
		return http.StatusBadRequest, ErrTextInvalidType.WithDetail(svcErr.Error())
	default:
		return http.StatusInternalServerError, ErrEmbeddingFailed.WithDetail(svcErr.Error())
	}
}

// =============================================================================
// HTTP Response Helpers
// =============================================================================

// WriteError writes an APIError as a JSON response with the appropriate status code.
func WriteError(w http.ResponseWriter, statusCode int, err APIError) {
	if statusCode == http.StatusServiceUnavailable && err.Code == ErrModelNotReady.Code {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	writeJSON(w, statusCode, err)
}

// WriteBadRequest writes a 400 Bad Request response with the given error.
func WriteBadRequest(w http.ResponseWriter, err APIError) {
	WriteError(w, http.StatusBadRequest, err)
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
