package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("entity already exists")

	// ErrStaleVersion is returned when an optimistic update finds that the
	// entity was modified since it was read.
	ErrStaleVersion = errors.New("entity version is stale")
)
