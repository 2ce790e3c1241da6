package service

import (
	"github.com/soffoalbert/buzo-sync/models"
)

// lastWriteWinsResolver is the concrete implementation of ConflictResolver.
// It performs a purely in-memory comparison of the two copies; no storage
// layer or logger is required because the operation is stateless and
// produces no side effects.
//
// Policy: the record with the later UpdatedAt wins. Ties go to the remote
// copy: the remote is the shared source of truth, and letting it win
// ambiguous races avoids silently discarding another device's write. Richer
// field-level merging is deliberately absent: records are small and mutation
// events are infrequent relative to sync cadence, so last-write-wins keeps
// the contract simple and auditable.
type lastWriteWinsResolver struct{}

// NewConflictResolver constructs a ConflictResolver ready for use. Because
// Resolve is a stateless, in-memory operation, no dependencies are needed.
func NewConflictResolver() ConflictResolver {
	return &lastWriteWinsResolver{}
}

// Resolve implements ConflictResolver.
func (r *lastWriteWinsResolver) Resolve(local, remote models.SyncableRecord) models.SyncableRecord {
	if local.UpdatedAt.After(remote.UpdatedAt) {
		// The local copy survives, but the server's version counter is
		// adopted so the next push addresses the row the server knows.
		if remote.Version != nil {
			local.Version = remote.Version
		}
		return local
	}
	return remote
}
