package errors

import (
	"errors"
	"fmt"
)

// ErrorType defines different categories of errors
type ErrorType string

const (
	ErrorTypeValidation       ErrorType = "VALIDATION"
	ErrorTypeNotFound         ErrorType = "NOT_FOUND"
	ErrorTypePermissionDenied ErrorType = "PERMISSION_DENIED"
	ErrorTypeConflict         ErrorType = "CONFLICT"
	ErrorTypeRateLimited      ErrorType = "RATE_LIMITED"
	ErrorTypeStoreUnavailable ErrorType = "STORE_UNAVAILABLE"
	ErrorTypeCacheUnavailable ErrorType = "CACHE_UNAVAILABLE"
	ErrorTypeSerialization    ErrorType = "SERIALIZATION"
	ErrorTypeInternal         ErrorType = "INTERNAL"
)

// AppError is the custom error type for the application
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work
func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the failed operation.
func (e *AppError) Retryable() bool {
	return e.Type == ErrorTypeConflict || e.Type == ErrorTypeStoreUnavailable || e.Type == ErrorTypeRateLimited
}

// Constructor functions for different error types

// NewValidation creates a validation error
func NewValidation(message string) error {
	return &AppError{Type: ErrorTypeValidation, Message: message}
}

// NewNotFound creates a not found error
func NewNotFound(message string) error {
	return &AppError{Type: ErrorTypeNotFound, Message: message}
}

// NewPermissionDenied creates a permission denied error.
// The message must not disclose whether the target entity exists.
func NewPermissionDenied(message string) error {
	return &AppError{Type: ErrorTypePermissionDenied, Message: message}
}

// NewConflict creates a conflict error for uniqueness or concurrent-modification violations
func NewConflict(message string, err error) error {
	return &AppError{Type: ErrorTypeConflict, Message: message, Err: err}
}

// NewRateLimited creates a throttling error
func NewRateLimited(message string) error {
	return &AppError{Type: ErrorTypeRateLimited, Message: message}
}

// NewStoreUnavailable creates a retryable database availability error
func NewStoreUnavailable(message string, err error) error {
	return &AppError{Type: ErrorTypeStoreUnavailable, Message: message, Err: err}
}

// NewCacheUnavailable creates a cache backend error.
// These never cross the cache package boundary; callers observe a miss instead.
func NewCacheUnavailable(message string, err error) error {
	return &AppError{Type: ErrorTypeCacheUnavailable, Message: message, Err: err}
}

// NewSerialization creates a payload encode/decode error
func NewSerialization(message string, err error) error {
	return &AppError{Type: ErrorTypeSerialization, Message: message, Err: err}
}

// NewInternal creates an internal error
func NewInternal(message string, err error) error {
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}

	// If it's already an AppError, preserve the type
	var appErr *AppError
	if errors.As(err, &appErr) {
		return &AppError{
			Type:    appErr.Type,
			Message: fmt.Sprintf("%s: %s", message, appErr.Message),
			Err:     appErr.Err,
		}
	}

	// Otherwise, create an internal error
	return &AppError{Type: ErrorTypeInternal, Message: message, Err: err}
}

// Type checking functions

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool { return isType(err, ErrorTypeValidation) }

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return isType(err, ErrorTypeNotFound) }

// IsPermissionDenied checks if an error is a permission error
func IsPermissionDenied(err error) bool { return isType(err, ErrorTypePermissionDenied) }

// IsConflict checks if an error is a conflict error
func IsConflict(err error) bool { return isType(err, ErrorTypeConflict) }

// IsRateLimited checks if an error is a throttling error
func IsRateLimited(err error) bool { return isType(err, ErrorTypeRateLimited) }

// IsStoreUnavailable checks if an error is a database availability error
func IsStoreUnavailable(err error) bool { return isType(err, ErrorTypeStoreUnavailable) }

// IsCacheUnavailable checks if an error is a cache backend error
func IsCacheUnavailable(err error) bool { return isType(err, ErrorTypeCacheUnavailable) }

// IsSerialization checks if an error is a payload codec error
func IsSerialization(err error) bool { return isType(err, ErrorTypeSerialization) }

// IsInternal checks if an error is an internal error
func IsInternal(err error) bool { return isType(err, ErrorTypeInternal) }
