// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package service

import (
	"context"

	"github.com/soffoalbert/buzo-sync/models"
)

// ConflictResolver chooses the surviving version when the local and remote
// copies of the same record diverge. Implementations must be pure: no I/O,
// no side effects, total over any two valid records.
type ConflictResolver interface {
	Resolve(local, remote models.SyncableRecord) models.SyncableRecord
}

// SyncStatusPublisher broadcasts sync progress and results to interested
// callers. Every subscriber receives every published status in publish
// order; a subscriber that panics must not prevent delivery to the others.
type SyncStatusPublisher interface {
	// Subscribe registers fn and returns an unsubscribe handle. The handle
	// is idempotent and safe to call after the publisher is gone.
	Subscribe(fn func(models.SyncStatus)) (unsubscribe func())

	Publish(status models.SyncStatus)
}

// SyncCoordinator orchestrates a sync cycle: push of queued mutations, pull
// of remote state, conflict resolution, and status publication.
type SyncCoordinator interface {
	// TriggerSync attempts to start a cycle and reports whether one ran.
	// Triggers arriving while a cycle is in progress are dropped, not
	// queued; the next organic trigger picks up any remaining work.
	// TriggerSync never returns an error: triggers originate from timers
	// and OS callbacks that could not handle one meaningfully.
	TriggerSync(ctx context.Context) bool

	// Status returns the current process-wide sync state.
	Status() models.SyncStatus
}

// RecordService is the optimistic-write entry point domain code calls. Every
// mutation is applied to the local store immediately and queued for remote
// confirmation.
type RecordService interface {
	// Create stores a new record under a client-generated UUID and queues a
	// create operation. Returns the stored record.
	Create(ctx context.Context, entityType string, payload any) (models.SyncableRecord, error)

	// Update overwrites the local copy and queues an update operation.
	Update(ctx context.Context, entityType, entityID string, payload any) (models.SyncableRecord, error)

	// Delete removes the local copy and queues a delete operation.
	Delete(ctx context.Context, entityType, entityID string) error

	// Get returns the locally committed copy of a record.
	Get(ctx context.Context, entityType, entityID string) (models.SyncableRecord, error)

	// List returns all locally committed records of the given types.
	List(ctx context.Context, entityTypes []string) ([]models.SyncableRecord, error)
}
