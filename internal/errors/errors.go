package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrAuth              ErrorType = "AUTH"
	ErrRateLimit         ErrorType = "RATE_LIMIT"
	ErrTransient         ErrorType = "TRANSIENT"
	ErrPartialCollection ErrorType = "PARTIAL_COLLECTION"
	ErrEmptySnapshot     ErrorType = "EMPTY_SNAPSHOT"
	ErrInvalidInput      ErrorType = "INVALID_INPUT"
	ErrCacheCompute      ErrorType = "CACHE_COMPUTE"
	ErrNotFound          ErrorType = "NOT_FOUND"
	ErrInternal          ErrorType = "INTERNAL"
	ErrUnauthorized      ErrorType = "UNAUTHORIZED"
)

// Typed is implemented by errors that belong to the application taxonomy
// without being an *AppError, such as the GitHub client's own error types.
type Typed interface {
	error
	AppType() ErrorType
}

// AppError represents an application error
type AppError struct {
	Type      ErrorType
	Message   string
	Cause     error
	Timestamp time.Time
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// AppType implements Typed
func (e *AppError) AppType() ErrorType {
	return e.Type
}

// New creates a new AppError
func New(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:      errType,
		Message:   message,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// TypeOf walks the error chain and returns the first taxonomy type found.
func TypeOf(err error) (ErrorType, bool) {
	for err != nil {
		if typed, ok := err.(Typed); ok {
			return typed.AppType(), true
		}
		err = stderrors.Unwrap(err)
	}
	return "", false
}

// Is reports whether err carries the given type anywhere in its chain.
func Is(err error, errType ErrorType) bool {
	for err != nil {
		if typed, ok := err.(Typed); ok && typed.AppType() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsAuth checks if the error is an authentication error
func IsAuth(err error) bool {
	return Is(err, ErrAuth)
}

// IsRateLimit checks if the error is a rate limit error
func IsRateLimit(err error) bool {
	return Is(err, ErrRateLimit)
}

// IsTransient checks if the error is a transient network error
func IsTransient(err error) bool {
	return Is(err, ErrTransient)
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	return Is(err, ErrNotFound)
}

// IsInvalidInput checks if the error is an invalid input error
func IsInvalidInput(err error) bool {
	return Is(err, ErrInvalidInput)
}

// IsEmptySnapshot checks if a collection cycle produced no repositories
func IsEmptySnapshot(err error) bool {
	return Is(err, ErrEmptySnapshot)
}

// IsCacheCompute checks if the error came from a failed cache recomputation
func IsCacheCompute(err error) bool {
	return Is(err, ErrCacheCompute)
}

// NewPartialCollectionError records a single skipped item during collection
func NewPartialCollectionError(item string, err error) *AppError {
	return New(ErrPartialCollection, fmt.Sprintf("skipped %s", item), err)
}

// NewEmptySnapshotError creates the hard failure for a cycle with no repositories
func NewEmptySnapshotError(message string, err error) *AppError {
	return New(ErrEmptySnapshot, message, err)
}

// NewValidationError creates a new validation error
func NewValidationError(message string, err error) *AppError {
	return New(ErrInvalidInput, message, err)
}

// NewCacheComputeError wraps a failed recomputation of a cache key
func NewCacheComputeError(key string, err error) *AppError {
	return New(ErrCacheCompute, fmt.Sprintf("failed to compute %q", key), err)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return New(ErrNotFound, message, err)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, err error) *AppError {
	return New(ErrUnauthorized, message, err)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return New(ErrInternal, message, err)
}
