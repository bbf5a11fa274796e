package service

import "errors"

// Kind classifies request failures
type Kind int

const (
	// KindNotReady means the model is still loading; retry later.
	KindNotReady Kind = iota + 1
	// KindInvalidInput means the request must be fixed before retrying.
	KindInvalidInput
	// KindInferenceFailure means the model failed while encoding.
	KindInferenceFailure
	// KindFatalLoadFailure means the model failed to load and never will.
	KindFatalLoadFailure
)

func (k Kind) String() string {
	switch k {
	case KindNotReady:
		return "not_ready"
	case KindInvalidInput:
		return "invalid_input"
	case KindInferenceFailure:
		return "inference_failure"
	case KindFatalLoadFailure:
		return "fatal_load_failure"
	default:
		return "unknown"
	}
}

const (
	msgNotReady     = "Model is not loaded yet. Please try again in a moment."
	msgLoadFailed   = "Model failed to load"
	msgEmpty        = "Input text cannot be empty."
	msgInvalidType  = "Input text must be a string or a list of strings."
	msgEncodeFailed = "Error during embedding generation"
)

// Error is returned by every failing Service operation
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same kind, so sentinels such as
// ErrNotReady work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == "" && t.Kind == e.Kind
}

// Kind sentinels for errors.Is
var (
	ErrNotReady     = &Error{Kind: KindNotReady}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
)

// KindOf returns the Kind of err, or 0 if err is not a service error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func invalidInput(msg string, cause error) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg, Cause: cause}
}
