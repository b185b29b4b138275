package errors

import (
	"errors"
	"fmt"
)

// ErrCode represents an error code
type ErrCode string

const (
	// Validation failures, detected before any external call.
	ErrCodeInvalidDateFormat ErrCode = "INVALID_DATE_FORMAT"
	ErrCodeInvalidDateRange  ErrCode = "INVALID_DATE_RANGE"
	ErrCodeFutureDate        ErrCode = "FUTURE_DATE_NOT_ALLOWED"
	ErrCodeDateRangeTooLarge ErrCode = "DATE_RANGE_TOO_LARGE"
	ErrCodeInvalidTimezone   ErrCode = "INVALID_TIMEZONE"
	ErrCodeMissingParameter  ErrCode = "MISSING_PARAMETER"
	ErrCodeInvalidParameter  ErrCode = "INVALID_PARAMETER"

	// Propagated from the upstream data source.
	ErrCodeNotFound     ErrCode = "USER_NOT_FOUND"
	ErrCodeUnauthorized ErrCode = "AUTHENTICATION_ERROR"
	ErrCodeRateLimited  ErrCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeUpstream     ErrCode = "GITHUB_API_ERROR"

	ErrCodeInternal ErrCode = "INTERNAL_ERROR"
)

// AppError represents an application error
type AppError struct {
	Code    ErrCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates an AppError with an arbitrary code
func New(code ErrCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NewValidationError creates a client-input error with the given code
func NewValidationError(code ErrCode, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(subject string) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("GitHub user %q not found", subject),
	}
}

// NewUnauthorizedError creates a new authentication error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: ErrCodeUnauthorized, Message: message}
}

// NewRateLimitedError creates a new rate limited error
func NewRateLimitedError(message string) *AppError {
	return &AppError{Code: ErrCodeRateLimited, Message: message}
}

// NewUpstreamError creates an error propagated from the GitHub API.
// The message is sanitized so credential material never leaves the core.
func NewUpstreamError(message string, err error) *AppError {
	return &AppError{
		Code:    ErrCodeUpstream,
		Message: Sanitize(message),
		Err:     err,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: message, Err: err}
}

// CodeOf extracts the error code, falling back to INTERNAL_ERROR
// for errors that did not originate in this application.
func CodeOf(err error) ErrCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsValidation reports whether the error is a recoverable client-input
// failure the caller can fix and resubmit.
func IsValidation(err error) bool {
	switch CodeOf(err) {
	case ErrCodeInvalidDateFormat, ErrCodeInvalidDateRange, ErrCodeFutureDate,
		ErrCodeDateRangeTooLarge, ErrCodeInvalidTimezone,
		ErrCodeMissingParameter, ErrCodeInvalidParameter:
		return true
	}
	return false
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return CodeOf(err) == ErrCodeNotFound
}

// IsRateLimited checks if the error is a rate limited error
func IsRateLimited(err error) bool {
	return CodeOf(err) == ErrCodeRateLimited
}
