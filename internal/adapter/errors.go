package adapter

import "errors"

var (
	// ErrUnauthorized means the session token was missing or stale.
	// Classified as transient: re-establishing the session may fix it
	// without changing the operation.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrTransient covers timeouts, connectivity loss mid-call, and 5xx
	// responses. The same operation may succeed if repeated later.
	ErrTransient = errors.New("transient remote error")

	// ErrRejected means the remote store definitively refused the operation
	// (validation failure or another 4xx that is not "not found").
	// Repeating it verbatim can never succeed.
	ErrRejected = errors.New("operation rejected by remote")
)

// IsTransient reports whether err should be retried in a later cycle.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrUnauthorized)
}

// IsRejected reports whether err is a definitive rejection that must fail the
// operation immediately without consuming retries.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}
