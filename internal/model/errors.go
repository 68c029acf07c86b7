package model

import "errors"

var (
	// ErrNotFound is returned by stores when a lookup matches no row (or, for
	// single-row lookups, more than one).
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write would violate a uniqueness rule.
	ErrConflict = errors.New("already exists")
	// ErrBadTimestamp marks an observation timestamp no accepted layout
	// matches.
	ErrBadTimestamp = errors.New("unrecognized timestamp")
)
