package store

import "errors"

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("key not found")

	// ErrStorageFull indicates the device ran out of space during a write.
	// Fatal for the single operation; never retried automatically.
	ErrStorageFull = errors.New("local storage full")
)
