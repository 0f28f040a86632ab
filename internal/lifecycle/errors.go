package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the operation referenced a request id absent from the store.
	ErrNotFound = errors.New("help request not found")

	// ErrInvalidState means the request is not in the state the operation
	// needs, e.g. resolving a request that already resolved or timed out.
	// Retrying will not help.
	ErrInvalidState = errors.New("help request is not pending")

	// ErrStoreFailure wraps errors from the persistence collaborator.
	ErrStoreFailure = errors.New("store failure")

	// ErrInvalidInput is returned for blank questions or answers.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("lifecycle manager already started")

	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("lifecycle manager stopped")
)

func storeFailure(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreFailure, err)
}

// notFound reports a missing request. It matches both ErrNotFound and
// ErrInvalidState since a missing request is, by definition, not pending.
func notFound(op, id string) error {
	return fmt.Errorf("%s %s: %w: %w", op, id, ErrNotFound, ErrInvalidState)
}
