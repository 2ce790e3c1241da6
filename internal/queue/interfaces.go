// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/soffoalbert/buzo-sync/models"
)

// PendingChangeQueue is the ordered, durable log of mutations not yet
// confirmed by the remote store. Contents survive process restart; no
// operation is ever silently dropped except through MarkCompleted or an
// explicit Discard.
type PendingChangeQueue interface {
	// Enqueue appends a mutation and returns its operation id. Logically
	// identical operations are never deduplicated: two updates to the same
	// entity are both queued and replayed in order.
	Enqueue(ctx context.Context, opType models.OpType, entityType, entityID string, payload json.RawMessage, updatedAt time.Time) (string, error)

	// PeekBatch returns up to maxN operations eligible for a push attempt,
	// in enqueue order. Enqueue order is total, so per-entity FIFO follows.
	// Operations left in_flight by a crash are included again: push is
	// idempotent per entity id, so replaying them is safe. An entity with an
	// earlier terminally failed operation contributes nothing until the user
	// retries or discards it, so per-entity order holds across cycles too.
	PeekBatch(ctx context.Context, maxN int) ([]models.PendingOperation, error)

	// MarkInFlight transitions the operation to in_flight before a push
	// attempt.
	MarkInFlight(ctx context.Context, operationID string) error

	// MarkCompleted removes the confirmed operation from durable storage.
	MarkCompleted(ctx context.Context, operationID string) error

	// MarkFailed records a push failure. It increments the attempt counter
	// and stores the error. The operation stays pending while attempts are
	// below the retry ceiling; at the ceiling, or when definitive is true,
	// it becomes terminally failed and is excluded from automatic retry.
	// The returned bool reports whether this failure turned the operation
	// terminal, so the caller can account it as a cycle-level failure.
	MarkFailed(ctx context.Context, operationID string, opErr error, definitive bool) (terminal bool, err error)

	// Counts returns the number of operations awaiting push and the number
	// terminally failed.
	Counts(ctx context.Context) (pending, failed int, err error)

	// FailedOperations lists terminally failed operations so the host can
	// surface them as needing attention.
	FailedOperations(ctx context.Context) ([]models.PendingOperation, error)

	// Retry returns a terminally failed operation to the pending state with
	// a fresh attempt budget. User-driven; the engine never does this on its
	// own.
	Retry(ctx context.Context, operationID string) error

	// Discard permanently removes a terminally failed operation.
	Discard(ctx context.Context, operationID string) error
}
