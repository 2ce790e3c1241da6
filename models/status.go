package models

import "time"

// SyncStatus is the process-wide synchronization state. It is mutated only by
// the sync coordinator and read by any number of subscribers. Only
// LastSuccessfulSync survives a restart; the rest is rebuilt at process start.
type SyncStatus struct {
	IsSyncing bool `json:"is_syncing"`

	// LastSuccessfulSync is the completion time of the last cycle that
	// finished without a cycle-level failure. Nil until the first success.
	LastSuccessfulSync *time.Time `json:"last_successful_sync,omitempty"`

	// PendingCount is the number of operations awaiting push. Advisory UI
	// state; it may lag the queue by a few operations.
	PendingCount int `json:"pending_count"`

	// FailedCount is the number of terminally failed operations needing
	// manual attention.
	FailedCount int `json:"failed_count"`

	// LastError describes the most recent cycle-level failure, empty when
	// the last cycle had none.
	LastError string `json:"last_error,omitempty"`
}
