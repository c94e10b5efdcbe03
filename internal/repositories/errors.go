package repositories

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when an optimistic version check fails.
	ErrVersionConflict = errors.New("record was modified concurrently")
)
