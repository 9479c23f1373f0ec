// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data errors
	ErrNoData       = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrViewNotFound = &Error{Code: "VIEW_NOT_FOUND", Message: "view not found"}
	ErrJobNotFound  = &Error{Code: "JOB_NOT_FOUND", Message: "job not found"}

	// Upstream errors
	ErrUpstreamUnreachable = &Error{Code: "UPSTREAM_UNREACHABLE", Message: "unable to reach analytics API"}
	ErrUpstreamStatus      = &Error{Code: "UPSTREAM_STATUS", Message: "analytics API returned an error status"}
	ErrDecode              = &Error{Code: "DECODE_FAILED", Message: "unable to decode analytics API response"}

	// Request errors
	ErrInvalidParam = &Error{Code: "INVALID_PARAM", Message: "invalid parameter"}
	ErrInvalidRange = &Error{Code: "INVALID_RANGE", Message: "invalid date range"}

	// Export errors
	ErrExportFailed = &Error{Code: "EXPORT_FAILED", Message: "snapshot export failed"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Auth errors
	ErrUnauthorized = &Error{Code: "UNAUTHORIZED", Message: "missing or invalid API key"}

	// LLM errors
	ErrLLMFailed   = &Error{Code: "LLM_FAILED", Message: "LLM request failed"}
	ErrLLMDisabled = &Error{Code: "LLM_DISABLED", Message: "no LLM provider configured"}
)
