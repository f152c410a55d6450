package domain

import "errors"

var (
	// ErrNotFound is returned when a reservation id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks malformed or disallowed input.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidState marks an operation not permitted in the current status,
	// including approval conflicts.
	ErrInvalidState = errors.New("invalid state")
)
