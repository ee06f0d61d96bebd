package repositories

import "errors"

var (
	// ErrNotFound is returned (wrapped) when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned (wrapped) when a unique field is already taken.
	ErrConflict = errors.New("already exists")
)
