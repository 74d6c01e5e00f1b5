// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Store errors.
	ErrNotFound               = errors.New("not found")
	ErrDuplicateReceiptNumber = errors.New("duplicate receipt number")
	ErrPersistence            = errors.New("persistence failure")

	// Acquisition errors.
	ErrInvalidDocument   = errors.New("document cannot be opened")
	ErrRecognitionFailed = errors.New("text recognition produced no usable result")

	// Sync errors.
	ErrSyncInFlight = errors.New("sync already in flight for this receipt")
	ErrRemote       = errors.New("remote receipt service error")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable determines if an error should trigger a retry. Errors are
// retried unless they are explicitly marked non-retryable or indicate a
// condition another attempt cannot change.
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	switch {
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrDuplicateReceiptNumber),
		errors.Is(err, ErrInvalidDocument),
		errors.Is(err, ErrRecognitionFailed),
		errors.Is(err, ErrSyncInFlight),
		errors.Is(err, ErrMissingConfig),
		errors.Is(err, ErrInvalidConfig):
		return false
	}

	return true
}
