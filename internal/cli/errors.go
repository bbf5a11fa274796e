package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/embedd-dev/embedd/internal/client"
)

// CLIError represents a user-friendly error with context and suggestions.
type CLIError struct {
	Message    string
	Suggestion string
	Cause      error
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	if e.Suggestion != "" {
		sb.WriteString("\n\nSuggestion: ")
		sb.WriteString(e.Suggestion)
	}
	return sb.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *CLIError) Unwrap() error {
	return e.Cause
}

// NewCLIError creates a new CLIError with a message and suggestion.
func NewCLIError(message, suggestion string) *CLIError {
	return &CLIError{
		Message:    message,
		Suggestion: suggestion,
	}
}

// WrapError wraps an existing error with additional context.
func WrapError(cause error, message, suggestion string) *CLIError {
	return &CLIError{
		Message:    message,
		Suggestion: suggestion,
		Cause:      cause,
	}
}

// =============================================================================
// Common CLI Errors
// =============================================================================

// ErrServerUnreachable returns an error when no server answers at url.
func ErrServerUnreachable(url string, cause error) *CLIError {
	return &CLIError{
		Message:    fmt.Sprintf("Cannot reach embedd at %s", url),
		Suggestion: "Start the server with 'embedd' or point --url at a running instance",
		Cause:      cause,
	}
}

// ErrModelLoading returns an error when the model is still loading.
func ErrModelLoading() *CLIError {
	return &CLIError{
		Message:    "The embedding model is still loading",
		Suggestion: "Retry in a moment, pass --wait, or run 'embedctl wait' first",
	}
}

// ErrModelLoadFailed returns an error when the server could not load its model.
func ErrModelLoadFailed(cause error) *CLIError {
	return &CLIError{
		Message:    "The server failed to load its embedding model",
		Suggestion: "Check the server logs and model configuration, then restart embedd",
		Cause:      cause,
	}
}

// classifyError turns client errors into CLIErrors with suggestions.
func classifyError(url string, err error) error {
	var se *client.StatusError
	switch {
	case err == nil:
		return nil
	case client.IsNotReady(err):
		return ErrModelLoading()
	case errors.Is(err, client.ErrLoadFailed):
		return ErrModelLoadFailed(err)
	case errors.As(err, &se) && se.APIError.Code == "MODEL_LOAD_FAILED":
		return ErrModelLoadFailed(errors.New(se.APIError.Detail))
	case errors.As(err, &se):
		return WrapError(errors.New(se.APIError.Detail), fmt.Sprintf("Request rejected (%s)", se.APIError.Code), se.APIError.Suggestion)
	case strings.Contains(err.Error(), "server not reachable"):
		return ErrServerUnreachable(url, err)
	default:
		return err
	}
}
