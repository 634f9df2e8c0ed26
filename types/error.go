package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the collector.
type ErrorCode string

// Workflow error codes
const (
	ErrUnknownStep     ErrorCode = "UNKNOWN_STEP"
	ErrUnknownAction   ErrorCode = "UNKNOWN_ACTION"
	ErrInvalidWorkflow ErrorCode = "INVALID_WORKFLOW"
	ErrStepFailed      ErrorCode = "STEP_FAILED"
)

// Platform error codes
const (
	ErrActionRequired ErrorCode = "ACTION_REQUIRED"
	ErrPlatform       ErrorCode = "PLATFORM_ERROR"
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
)

// Service error codes
const (
	ErrInvalidRequest     ErrorCode = "INVALID_REQUEST"
	ErrNotFound           ErrorCode = "NOT_FOUND"
	ErrPersistence        ErrorCode = "PERSISTENCE_ERROR"
	ErrInternalError      ErrorCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Collector  string    `json:"collector,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	prefix := fmt.Sprintf("[%s]", e.Code)
	if e.Collector != "" {
		prefix = fmt.Sprintf("[%s][%s]", e.Code, e.Collector)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s %s: %v", prefix, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s", prefix, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Errorf creates a new Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithCollector tags the error with the collector identity that raised it.
func (e *Error) WithCollector(id string) *Error {
	e.Collector = id
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsFatal reports whether err is a misconfiguration the workflow loop must
// not retry.
func IsFatal(err error) bool {
	switch GetErrorCode(err) {
	case ErrUnknownStep, ErrUnknownAction, ErrInvalidWorkflow, ErrActionRequired:
		return true
	}
	return false
}
