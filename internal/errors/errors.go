package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Configuration & upstream
	ErrCodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeUpstream      ErrorCode = "UPSTREAM_ERROR"

	// Match lifecycle
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeInvalidKey ErrorCode = "INVALID_KEY"
	ErrCodeDisabled   ErrorCode = "DISABLED"
	ErrCodeExpired    ErrorCode = "EXPIRED"
	ErrCodeForbidden  ErrorCode = "FORBIDDEN"
	ErrCodeGone       ErrorCode = "GONE"

	// Validation
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Rate limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Configuration(message string) *AppError {
	return New(ErrCodeConfiguration, message)
}

// Upstream wraps a rejected call to an external provider. The provider's
// HTTP status travels as diagnostic detail only; callers branch on the code.
func Upstream(provider string, status int, cause error) *AppError {
	e := Wrap(ErrCodeUpstream, fmt.Sprintf("%s request failed", provider), cause)
	details := map[string]any{"provider": provider}
	if status > 0 {
		details["status"] = status
	}
	return e.WithDetails(details)
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidKey(message string) *AppError {
	return New(ErrCodeInvalidKey, message)
}

func Disabled() *AppError {
	return New(ErrCodeDisabled, "Match has been terminated")
}

func Expired() *AppError {
	return New(ErrCodeExpired, "Match has expired")
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func Gone(message string) *AppError {
	return New(ErrCodeGone, message)
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
