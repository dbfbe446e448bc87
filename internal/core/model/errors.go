package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity is required to exist and does not.
	ErrNotFound = errors.New("entity was not found")

	// ErrForbidden is returned when the principal is not allowed to mutate the entity.
	ErrForbidden = errors.New("operation not allowed for principal")

	// ErrConflict is returned when the operation collides with the current state.
	ErrConflict = errors.New("conflicting state")

	// ErrValidation is returned for malformed or missing arguments.
	ErrValidation = errors.New("invalid argument")

	// ErrInfrastructure is returned when the store or the broker cannot be reached.
	ErrInfrastructure = errors.New("infrastructure unavailable")
)

var (
	ErrSelfFollow       = fmt.Errorf("%w: a chef cannot follow itself", ErrConflict)
	ErrAlreadyFollowing = fmt.Errorf("%w: chef is already followed", ErrConflict)
	ErrNotFollowing     = fmt.Errorf("%w: chef is not followed", ErrConflict)
)

// Infrastructure marks err as an infrastructure failure. A nil err stays nil.
func Infrastructure(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrInfrastructure) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrInfrastructure, err)
}

// Invalid builds a validation error with a caller-facing message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
