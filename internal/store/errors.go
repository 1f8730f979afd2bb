package store

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation rejects a message before anything is persisted.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means an identity or conversation does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable is a persistence timeout or driver failure. Retryable;
	// no partial state was committed.
	ErrUnavailable = errors.New("message store unavailable")
)

// wrapUnavailable maps driver and deadline failures onto ErrUnavailable so
// callers can treat them as retryable without knowing the backend.
func wrapUnavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}
