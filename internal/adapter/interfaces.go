// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package adapter

import (
	"context"
	"time"

	"github.com/soffoalbert/buzo-sync/models"
)

// RemoteClient is the engine's view of the remote sync API. The engine does
// not define transport details beyond this contract.
type RemoteClient interface {
	// Push applies one queued mutation to the remote store, keyed by the
	// operation's entity id so that an ambiguous-timeout replay does not
	// duplicate the effect. A nil return means accepted. Failures are
	// classified through IsTransient / IsRejected.
	Push(ctx context.Context, userID string, op models.PendingOperation) error

	// Pull fetches the authoritative records for the given entity types,
	// optionally limited to those updated after since. Pull is idempotent
	// and read-only, so the implementation may retry it internally.
	Pull(ctx context.Context, userID string, entityTypes []string, since *time.Time) ([]models.SyncableRecord, error)

	// SetToken installs the session token used to authenticate subsequent
	// calls. An empty token clears it.
	SetToken(token string)
}
