// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package models

import (
	"encoding/json"
	"time"
)

// OpType identifies the kind of mutation a PendingOperation carries.
type OpType string

const (
	OpCreate OpType = "create"
	OpUpdate OpType = "update"
	OpDelete OpType = "delete"
)

// OpStatus is the lifecycle state of a PendingOperation.
type OpStatus string

const (
	// OpPending: enqueued, eligible for the next sync cycle.
	OpPending OpStatus = "pending"
	// OpInFlight: currently being applied to the remote store.
	OpInFlight OpStatus = "in_flight"
	// OpFailed: terminal; excluded from automatic retry and surfaced to the
	// user as needing attention.
	OpFailed OpStatus = "failed"
	// OpCompleted: confirmed by the remote store; removed from durable
	// storage right after.
	OpCompleted OpStatus = "completed"
)

// PendingOperation is one queued mutation awaiting remote confirmation.
// Operations for the same EntityID are applied in enqueue order; operations
// for different entities carry no mutual ordering guarantee.
type PendingOperation struct {
	// ID is unique per operation, generated at enqueue time.
	ID string `json:"id"`

	// Seq is the queue-assigned sequence number; it defines the enqueue
	// order durable storage preserves across restarts.
	Seq int64 `json:"seq"`

	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	OpType     OpType `json:"op_type"`

	// Payload holds the full record for create/update; empty for delete.
	Payload json.RawMessage `json:"payload,omitempty"`

	// UpdatedAt is the mutation timestamp copied from the record at enqueue
	// time, pushed to the remote so it can order concurrent writes.
	UpdatedAt time.Time `json:"updated_at"`

	CreatedAt time.Time `json:"created_at"`

	// Attempts counts push attempts made so far.
	Attempts int `json:"attempts"`

	// LastError is the message of the most recent push failure, empty when
	// the operation has never failed.
	LastError string `json:"last_error,omitempty"`

	Status OpStatus `json:"status"`
}

// Retryable reports whether the operation is still eligible for an automatic
// push attempt.
func (op PendingOperation) Retryable() bool {
	return op.Status == OpPending
}
