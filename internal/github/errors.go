package github

import (
	"fmt"
	"time"

	apperrors "github.com/Kamar-Folarin/github-ma-intel/internal/errors"
)

// GitHubError is a non-retryable API failure that fits no other class
type GitHubError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *GitHubError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("GitHub API error (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("GitHub API error (status %d): %s", e.StatusCode, e.Message)
}

func (e *GitHubError) Unwrap() error {
	return e.Err
}

func (e *GitHubError) AppType() apperrors.ErrorType {
	return apperrors.ErrInternal
}

// AuthError represents an invalid or missing credential. It is never retried.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("GitHub API authentication failed (status %d): %s", e.StatusCode, e.Message)
}

func (e *AuthError) AppType() apperrors.ErrorType {
	return apperrors.ErrAuth
}

// RateLimitError represents when we hit GitHub's rate limits
type RateLimitError struct {
	ResetTime time.Time
	Limit     int
	Remaining int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("GitHub API rate limit exceeded. Reset at %v. Limit: %d, Remaining: %d",
		e.ResetTime, e.Limit, e.Remaining)
}

func (e *RateLimitError) AppType() apperrors.ErrorType {
	return apperrors.ErrRateLimit
}

// TransientError represents a timeout, transport failure or 5xx response
type TransientError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient GitHub API failure (status %d): %s: %v", e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("transient GitHub API failure (status %d): %s", e.StatusCode, e.Message)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func (e *TransientError) AppType() apperrors.ErrorType {
	return apperrors.ErrTransient
}

// ValidationError represents invalid input to client methods or an invalid payload
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: invalid %s: %s", e.Field, e.Value)
}

func (e *ValidationError) AppType() apperrors.ErrorType {
	return apperrors.ErrInvalidInput
}

// NewGitHubError creates a new GitHubError with the given status code and message
func NewGitHubError(statusCode int, message string, err error) error {
	return &GitHubError{
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// NewAuthError creates a new AuthError
func NewAuthError(statusCode int, message string) error {
	return &AuthError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// NewRateLimitError creates a new RateLimitError
func NewRateLimitError(resetTime time.Time, limit, remaining int) error {
	return &RateLimitError{
		ResetTime: resetTime,
		Limit:     limit,
		Remaining: remaining,
	}
}

// NewTransientError creates a new TransientError
func NewTransientError(statusCode int, message string, err error) error {
	return &TransientError{
		StatusCode: statusCode,
		Message:    message,
		Err:        err,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, value string) error {
	return &ValidationError{
		Field: field,
		Value: value,
	}
}
