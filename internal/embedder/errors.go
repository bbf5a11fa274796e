package embedder

import (
	"errors"
	"strings"
)

// EmbeddingError represents an error from a backend with helpful context.
type EmbeddingError struct {
	Code       string
	Message    string
	Suggestion string
	Cause      error
}

// Error implements the error interface.
func (e *EmbeddingError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	if e.Suggestion != "" {
		sb.WriteString(". ")
		sb.WriteString(e.Suggestion)
	}
	return sb.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *EmbeddingError) Unwrap() error {
	return e.Cause
}

// Is matches any EmbeddingError with the same code, so the sentinels
// below work with errors.Is after WithMessage or WithCause.
func (e *EmbeddingError) Is(target error) bool {
	t, ok := target.(*EmbeddingError)
	return ok && t.Code == e.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *EmbeddingError) WithCause(cause error) *EmbeddingError {
	c := *e
	c.Cause = cause
	return &c
}

// WithMessage returns a copy of the error with a more specific message.
func (e *EmbeddingError) WithMessage(msg string) *EmbeddingError {
	c := *e
	c.Message = msg
	return &c
}

// Predefined embedding errors
var (
	// ErrBackendUnavailable indicates the inference runtime is not reachable
	ErrBackendUnavailable = &EmbeddingError{
		Code:       "BACKEND_UNAVAILABLE",
		Message:    "Inference backend is not responding",
		Suggestion: "Check that the model runtime is running and reachable at the configured URL",
	}

	// ErrModelNotFound indicates the runtime does not host the requested model
	ErrModelNotFound = &EmbeddingError{
		Code:       "MODEL_NOT_FOUND",
		Message:    "Embedding model not found",
		Suggestion: "Stage the model in the runtime or check the model.path setting",
	}

	// ErrInvalidResponse indicates the runtime answered with something unusable
	ErrInvalidResponse = &EmbeddingError{
		Code:    "INVALID_RESPONSE",
		Message: "Received invalid response from inference backend",
	}

	// ErrDimensionMismatch indicates vectors of unexpected length
	ErrDimensionMismatch = &EmbeddingError{
		Code:    "DIMENSION_MISMATCH",
		Message: "Embedding dimensionality does not match the model",
	}

	// ErrUnsupportedDevice indicates a device other than CPU was requested
	ErrUnsupportedDevice = &EmbeddingError{
		Code:       "UNSUPPORTED_DEVICE",
		Message:    "Unsupported inference device",
		Suggestion: "Only 'cpu' is supported",
	}

	// ErrInferenceFailed wraps any failure during Encode
	ErrInferenceFailed = &EmbeddingError{
		Code:    "INFERENCE_FAILED",
		Message: "Embedding inference failed",
	}

	// ErrUnknownBackend indicates an unrecognized backend type
	ErrUnknownBackend = &EmbeddingError{
		Code:       "UNKNOWN_BACKEND",
		Message:    "Unknown inference backend",
		Suggestion: "Use one of: ollama, openai, hash",
	}
)

// CodeOf returns the code of the first EmbeddingError in err's chain, or "".
func CodeOf(err error) string {
	var embErr *EmbeddingError
	if errors.As(err, &embErr) {
		return embErr.Code
	}
	return ""
}
