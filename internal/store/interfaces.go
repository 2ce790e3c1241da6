// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package store

import "context"

// LocalStore is the durable key/value persistence everything else reads and
// writes through. Every operation is individually atomic and durable on
// success; interleavings between concurrent callers are therefore safe
// without a cross-operation lock.
//
// Reserved key ranges:
//
//	rec/<entity_type>/<entity_id>  locally committed records
//	op/<seq>                       pending operation log (owned by queue)
//	meta/...                       engine metadata (sequence counter,
//	                               last successful sync, placeholder identity)
type LocalStore interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set durably writes value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Keys returns all keys with the given prefix in ascending lexical
	// order. The ordering is what lets the operation log live inside the
	// store as a reserved key range instead of a second database.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
