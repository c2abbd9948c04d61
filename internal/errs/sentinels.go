// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across store/service/storage layers.
var (
	// ErrNotFound indicates the requested entity or storage key does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an id collision (e.g., a child id already in the snapshot).
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnauthorized indicates the current user has no access to the entity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrValidation indicates an action or input that breaks a data model invariant.
	ErrValidation = errors.New("validation")

	// ErrLastParent indicates an attempt to leave a child without parents.
	ErrLastParent = errors.New("cannot remove the last parent")

	// ErrNoSession indicates an operation that needs a signed-in user or a selected child.
	ErrNoSession = errors.New("no active session")

	// ErrPasswordMismatch indicates sign-up with differing password and confirmation.
	ErrPasswordMismatch = errors.New("passwords do not match")

	// ErrClosed indicates use of a component after shutdown.
	ErrClosed = errors.New("closed")
)
