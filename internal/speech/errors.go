package speech

import (
	"errors"
	"fmt"
)

// Common speech errors
var (
	// ErrEmptyText indicates there was nothing to synthesize
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrTextTooLong indicates the text exceeds the engine limit
	ErrTextTooLong = errors.New("text too long")

	// ErrUnknownEngine indicates an unsupported engine name
	ErrUnknownEngine = errors.New("unknown speech engine")

	// ErrNotConfigured indicates missing credentials or binaries
	ErrNotConfigured = errors.New("speech engine not configured")
)

// ErrorCode identifies specific error types
type ErrorCode string

const (
	ErrorCodeSynthesisFailed ErrorCode = "SYNTHESIS_FAILED"
	ErrorCodeCanceled        ErrorCode = "SYNTHESIS_CANCELED"
	ErrorCodeRateLimited     ErrorCode = "RATE_LIMITED"
	ErrorCodeUnauthorized    ErrorCode = "UNAUTHORIZED"
	ErrorCodeTimeout         ErrorCode = "TIMEOUT"
	ErrorCodeInvalidInput    ErrorCode = "INVALID_INPUT"
)

// Error is a synthesis failure with context.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// NewError creates a new speech error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	e.Context[key] = value
	return e
}

// IsRetryable returns true if the render may succeed on a later attempt.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrorCodeTimeout, ErrorCodeRateLimited:
		return true
	default:
		return false
	}
}

// CodeOf returns the ErrorCode carried by err, or "" if none.
func CodeOf(err error) ErrorCode {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}
