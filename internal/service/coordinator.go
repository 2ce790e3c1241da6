// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soffoalbert/buzo-sync/internal/adapter"
	"github.com/soffoalbert/buzo-sync/internal/identity"
	"github.com/soffoalbert/buzo-sync/internal/logger"
	"github.com/soffoalbert/buzo-sync/internal/netmon"
	"github.com/soffoalbert/buzo-sync/internal/queue"
	"github.com/soffoalbert/buzo-sync/internal/store"
	"github.com/soffoalbert/buzo-sync/models"
)

// syncCoordinator drains the pending-change queue against the remote store,
// reconciles diverging records, and publishes the aggregate result. It owns
// no persistent state of its own; it is a stateless orchestrator over the
// store, the queue, and the remote client.
type syncCoordinator struct {
	records   store.RecordStore
	pending   queue.PendingChangeQueue
	monitor   netmon.NetworkMonitor
	remote    adapter.RemoteClient
	sessions  identity.Provider
	resolver  ConflictResolver
	publisher SyncStatusPublisher
	batchSize int
	logger    *logger.Logger

	// syncing enforces at most one concurrent cycle. Checked and set
	// atomically at cycle start; losers are dropped, not queued.
	syncing atomic.Bool

	mu     sync.RWMutex
	status models.SyncStatus

	now func() time.Time
}

// NewSyncCoordinator wires a coordinator over its collaborators. ctx is used
// once, to restore the persisted last-successful-sync timestamp so a fresh
// launch can show "last synced N minutes ago".
func NewSyncCoordinator(
	ctx context.Context,
	records store.RecordStore,
	pending queue.PendingChangeQueue,
	monitor netmon.NetworkMonitor,
	remote adapter.RemoteClient,
	sessions identity.Provider,
	resolver ConflictResolver,
	publisher SyncStatusPublisher,
	batchSize int,
	log *logger.Logger,
) SyncCoordinator {
	c := &syncCoordinator{
		records:   records,
		pending:   pending,
		monitor:   monitor,
		remote:    remote,
		sessions:  sessions,
		resolver:  resolver,
		publisher: publisher,
		batchSize: batchSize,
		logger:    log,
		now:       time.Now,
	}

	if at, err := records.LastSuccessfulSync(ctx); err == nil {
		c.status.LastSuccessfulSync = &at
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Err(err).Msg("restore last successful sync")
	}
	if pendingN, failedN, err := pending.Counts(ctx); err == nil {
		c.status.PendingCount = pendingN
		c.status.FailedCount = failedN
	}

	return c
}

// TriggerSync implements SyncCoordinator.
func (c *syncCoordinator) TriggerSync(ctx context.Context) bool {
	if !c.syncing.CompareAndSwap(false, true) {
		c.logger.Debug().Msg("sync trigger dropped: cycle already in progress")
		return false
	}
	defer c.syncing.Store(false)

	// Not reachable: a no-op, not a failure. No state change, no error.
	if !c.monitor.IsReachable() {
		c.logger.Debug().Msg("sync trigger skipped: network unreachable")
		return false
	}

	sess, err := c.sessions.Current(ctx)
	if err != nil {
		c.finishCycle(ctx, fmt.Errorf("resolve session: %w", err), c.now())
		return true
	}

	// A placeholder identity means the device has never authenticated. The
	// remote would refuse everything, so mutations stay queued locally
	// until a real session adopts them.
	if sess.Placeholder {
		c.logger.Debug().Str("user_id", sess.UserID).Msg("sync skipped: no authenticated session yet")
		return false
	}

	c.remote.SetToken(sess.Token)
	c.runCycle(ctx, sess.UserID)
	return true
}

// Status implements SyncCoordinator.
func (c *syncCoordinator) Status() models.SyncStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// runCycle executes one Idle → Syncing → Idle pass: pull, drain, reconcile,
// publish.
func (c *syncCoordinator) runCycle(ctx context.Context, userID string) {
	c.logger.Info().Str("user_id", userID).Msg("sync cycle started")
	c.publishTransition(true)

	var cycleErr error

	// Pull is unconditional: the remote is authoritative for what exists.
	// A pull failure is a cycle-level failure, but push proceeds anyway on
	// the last-known local state. Inability to read must not block
	// outbound progress.
	remoteRecords, err := c.pull(ctx, userID)
	if err != nil {
		cycleErr = err
		c.logger.Warn().Err(err).Msg("pull failed; continuing with push")
	}

	terminalFailures := c.drain(ctx, userID)
	if terminalFailures > 0 {
		cycleErr = errors.Join(cycleErr, fmt.Errorf("%d operation(s) terminally failed", terminalFailures))
	}

	if err == nil {
		if reconcileErr := c.reconcile(ctx, remoteRecords); reconcileErr != nil {
			cycleErr = errors.Join(cycleErr, reconcileErr)
		}
	}

	completed := c.now()
	if cycleErr == nil {
		if err = c.records.SetLastSuccessfulSync(ctx, completed); err != nil {
			cycleErr = fmt.Errorf("persist last successful sync: %w", err)
		}
	}

	c.finishCycle(ctx, cycleErr, completed)
	c.logger.Info().
		Str("user_id", userID).
		Bool("success", cycleErr == nil).
		Msg("sync cycle finished")
}

func (c *syncCoordinator) pull(ctx context.Context, userID string) ([]models.SyncableRecord, error) {
	var since *time.Time
	if at, err := c.records.LastSuccessfulSync(ctx); err == nil {
		since = &at
	}

	records, err := c.remote.Pull(ctx, userID, models.EntityTypes, since)
	if err != nil {
		return nil, fmt.Errorf("pull remote state: %w", err)
	}
	return records, nil
}

// drain applies queued operations in enqueue order. A single operation's
// failure never aborts the batch: each operation is independent, and the
// aggregate is reported at cycle end. Once an operation for an entity fails,
// the entity's later operations are left untouched for this cycle so the
// per-entity FIFO guarantee holds across retries.
func (c *syncCoordinator) drain(ctx context.Context, userID string) (terminalFailures int) {
	batch, err := c.pending.PeekBatch(ctx, c.batchSize)
	if err != nil {
		c.logger.Err(err).Msg("peek pending batch")
		return 0
	}

	blocked := make(map[string]bool)

	for _, op := range batch {
		if blocked[op.EntityID] {
			continue
		}

		if err = c.pending.MarkInFlight(ctx, op.ID); err != nil {
			c.logger.Err(err).Str("operation_id", op.ID).Msg("mark in flight")
			blocked[op.EntityID] = true
			continue
		}

		pushErr := c.remote.Push(ctx, userID, op)
		switch {
		case pushErr == nil:
			if err = c.pending.MarkCompleted(ctx, op.ID); err != nil {
				// The push landed but the local log still holds the
				// operation; the next cycle replays it, and entity-keyed
				// semantics make the replay a no-op remotely.
				c.logger.Err(err).Str("operation_id", op.ID).Msg("mark completed")
				blocked[op.EntityID] = true
			}

		case adapter.IsRejected(pushErr):
			// Repeating a rejected operation verbatim can never succeed:
			// fail it on the spot without consuming retries.
			if _, err = c.pending.MarkFailed(ctx, op.ID, pushErr, true); err != nil {
				c.logger.Err(err).Str("operation_id", op.ID).Msg("mark failed")
			}
			terminalFailures++
			blocked[op.EntityID] = true

		default:
			// Crossing the retry ceiling turns a transient failure terminal,
			// and a terminal failure fails the cycle no matter how it arose.
			terminal, failErr := c.pending.MarkFailed(ctx, op.ID, pushErr, false)
			if failErr != nil {
				c.logger.Err(failErr).Str("operation_id", op.ID).Msg("mark failed")
			}
			if terminal {
				terminalFailures++
			}
			blocked[op.EntityID] = true
			c.logger.Debug().
				Str("operation_id", op.ID).
				Str("entity_id", op.EntityID).
				Err(pushErr).
				Msg("transient push failure")
		}
	}

	return terminalFailures
}

// reconcile writes the surviving copy of every record whose local and remote
// versions diverge. Records the device has never seen are adopted as-is.
func (c *syncCoordinator) reconcile(ctx context.Context, remoteRecords []models.SyncableRecord) error {
	var errs []error

	for _, remote := range remoteRecords {
		local, err := c.records.Get(ctx, remote.EntityType, remote.EntityID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			if err = c.records.Save(ctx, remote); err != nil {
				errs = append(errs, fmt.Errorf("adopt %s/%s: %w", remote.EntityType, remote.EntityID, err))
			}
			continue
		case err != nil:
			errs = append(errs, fmt.Errorf("load %s/%s: %w", remote.EntityType, remote.EntityID, err))
			continue
		}

		if local.UpdatedAt.Equal(remote.UpdatedAt) && sameVersion(local.Version, remote.Version) {
			continue
		}

		winner := c.resolver.Resolve(local, remote)
		if err = c.records.Save(ctx, winner); err != nil {
			errs = append(errs, fmt.Errorf("write winner %s/%s: %w", winner.EntityType, winner.EntityID, err))
		}
	}

	return errors.Join(errs...)
}

// finishCycle updates the aggregate status and publishes it regardless of
// outcome.
func (c *syncCoordinator) finishCycle(ctx context.Context, cycleErr error, completedAt time.Time) {
	pendingN, failedN, err := c.pending.Counts(ctx)
	if err != nil {
		c.logger.Err(err).Msg("refresh queue counts")
	}

	c.mu.Lock()
	c.status.IsSyncing = false
	c.status.PendingCount = pendingN
	c.status.FailedCount = failedN
	if cycleErr != nil {
		c.status.LastError = cycleErr.Error()
	} else {
		c.status.LastError = ""
		c.status.LastSuccessfulSync = &completedAt
	}
	snapshot := c.status
	c.mu.Unlock()

	c.publisher.Publish(snapshot)
}

func (c *syncCoordinator) publishTransition(syncing bool) {
	c.mu.Lock()
	c.status.IsSyncing = syncing
	snapshot := c.status
	c.mu.Unlock()

	c.publisher.Publish(snapshot)
}

func sameVersion(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
