package agent

import "errors"

// ErrorKind is the closed taxonomy surfaced across the engine boundary.
// Callers always receive either a reply or an *Error with one of these
// kinds, never a raw internal error.
type ErrorKind string

const (
	ErrSessionStoreUnavailable ErrorKind = "session_store_unavailable"
	ErrUnknownTool             ErrorKind = "unknown_tool"
	ErrDependencyCycle         ErrorKind = "dependency_cycle"
	ErrToolTimeout             ErrorKind = "tool_timeout"
	ErrDependencyFailed        ErrorKind = "dependency_failed"
	ErrAllProvidersExhausted   ErrorKind = "all_providers_exhausted"
	ErrMalformedModelOutput    ErrorKind = "malformed_model_output"
	ErrModelFailure            ErrorKind = "model_failure"
	ErrRequestCancelled        ErrorKind = "request_cancelled"
)

// Error is the typed failure the engine returns to its caller.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return string(e.Kind) + ": " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds a typed engine error.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the taxonomy kind of err, or empty for untyped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
