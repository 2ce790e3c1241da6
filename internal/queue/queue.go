// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

// Package queue implements the durable pending-change log as a structured
// view over a reserved key range of the local store. Operation records live
// under op/<seq> with a zero-padded sequence number, so the store's ordered
// prefix scan yields them in enqueue order without a second database.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soffoalbert/buzo-sync/internal/logger"
	"github.com/soffoalbert/buzo-sync/internal/store"
	"github.com/soffoalbert/buzo-sync/models"
)

const (
	opKeyPrefix = "op/"
	seqKey      = "meta/op_seq"
)

var ErrOperationNotFound = errors.New("pending operation not found")

type durableQueue struct {
	store        store.LocalStore
	retryCeiling int
	logger       *logger.Logger

	// mu serializes enqueue and state transitions. Store operations are
	// individually atomic; the lock only protects the read-modify-write of
	// the sequence counter and of operation records.
	mu sync.Mutex

	now func() time.Time
}

// NewPendingChangeQueue returns a queue persisting through local. An
// operation becomes terminally failed after retryCeiling transient failures.
func NewPendingChangeQueue(local store.LocalStore, retryCeiling int, log *logger.Logger) PendingChangeQueue {
	return &durableQueue{
		store:        local,
		retryCeiling: retryCeiling,
		logger:       log,
		now:          time.Now,
	}
}

func (q *durableQueue) Enqueue(ctx context.Context, opType models.OpType, entityType, entityID string, payload json.RawMessage, updatedAt time.Time) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	seq, err := q.nextSeq(ctx)
	if err != nil {
		return "", fmt.Errorf("enqueue %s %s/%s: %w", opType, entityType, entityID, err)
	}

	op := models.PendingOperation{
		ID:         uuid.NewString(),
		Seq:        seq,
		EntityType: entityType,
		EntityID:   entityID,
		OpType:     opType,
		Payload:    payload,
		UpdatedAt:  updatedAt,
		CreatedAt:  q.now(),
		Status:     models.OpPending,
	}

	if err = q.writeOp(ctx, op); err != nil {
		return "", fmt.Errorf("enqueue %s %s/%s: %w", opType, entityType, entityID, err)
	}

	q.logger.Debug().
		Str("operation_id", op.ID).
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Str("op_type", string(opType)).
		Msg("operation enqueued")

	return op.ID, nil
}

func (q *durableQueue) PeekBatch(ctx context.Context, maxN int) ([]models.PendingOperation, error) {
	ops, err := q.loadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("peek batch: %w", err)
	}

	batch := make([]models.PendingOperation, 0, maxN)
	gated := make(map[string]bool)
	for _, op := range ops {
		if len(batch) == maxN {
			break
		}
		switch op.Status {
		case models.OpFailed:
			// A dead operation gates its entity: letting later operations
			// overtake it would invert enqueue order if the user retries it.
			gated[op.EntityID] = true
		case models.OpPending, models.OpInFlight:
			// in_flight here means the process died mid-push; replay is safe.
			if gated[op.EntityID] {
				continue
			}
			batch = append(batch, op)
		}
	}

	return batch, nil
}

func (q *durableQueue) MarkInFlight(ctx context.Context, operationID string) error {
	return q.transition(ctx, operationID, func(op *models.PendingOperation) {
		op.Status = models.OpInFlight
	})
}

func (q *durableQueue) MarkCompleted(ctx context.Context, operationID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, err := q.findByID(ctx, operationID)
	if err != nil {
		return fmt.Errorf("mark completed %s: %w", operationID, err)
	}

	if err = q.store.Remove(ctx, opKey(op.Seq)); err != nil {
		return fmt.Errorf("mark completed %s: %w", operationID, err)
	}

	q.logger.Debug().Str("operation_id", operationID).Msg("operation completed")
	return nil
}

func (q *durableQueue) MarkFailed(ctx context.Context, operationID string, opErr error, definitive bool) (bool, error) {
	var terminal bool
	err := q.transition(ctx, operationID, func(op *models.PendingOperation) {
		op.Attempts++
		if opErr != nil {
			op.LastError = opErr.Error()
		}

		if definitive || op.Attempts >= q.retryCeiling {
			op.Status = models.OpFailed
			terminal = true
			q.logger.Warn().
				Str("operation_id", op.ID).
				Str("entity_id", op.EntityID).
				Int("attempts", op.Attempts).
				Bool("definitive", definitive).
				Str("error", op.LastError).
				Msg("operation terminally failed")
			return
		}

		op.Status = models.OpPending
	})
	if err != nil {
		return false, err
	}
	return terminal, nil
}

func (q *durableQueue) Counts(ctx context.Context) (pending, failed int, err error) {
	ops, err := q.loadAll(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("queue counts: %w", err)
	}

	for _, op := range ops {
		switch op.Status {
		case models.OpFailed:
			failed++
		default:
			pending++
		}
	}

	return pending, failed, nil
}

func (q *durableQueue) FailedOperations(ctx context.Context) ([]models.PendingOperation, error) {
	ops, err := q.loadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed operations: %w", err)
	}

	var failed []models.PendingOperation
	for _, op := range ops {
		if op.Status == models.OpFailed {
			failed = append(failed, op)
		}
	}

	return failed, nil
}

func (q *durableQueue) Retry(ctx context.Context, operationID string) error {
	return q.transition(ctx, operationID, func(op *models.PendingOperation) {
		op.Status = models.OpPending
		op.Attempts = 0
		op.LastError = ""
	})
}

func (q *durableQueue) Discard(ctx context.Context, operationID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, err := q.findByID(ctx, operationID)
	if err != nil {
		return fmt.Errorf("discard %s: %w", operationID, err)
	}

	if err = q.store.Remove(ctx, opKey(op.Seq)); err != nil {
		return fmt.Errorf("discard %s: %w", operationID, err)
	}

	q.logger.Info().Str("operation_id", operationID).Msg("operation discarded by user")
	return nil
}

// transition applies mutate to the stored operation under the queue lock and
// persists the result. The store write is atomic, so a crash leaves either
// the old or the new state, never a torn one.
func (q *durableQueue) transition(ctx context.Context, operationID string, mutate func(*models.PendingOperation)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	op, err := q.findByID(ctx, operationID)
	if err != nil {
		return fmt.Errorf("transition %s: %w", operationID, err)
	}

	mutate(&op)

	if err = q.writeOp(ctx, op); err != nil {
		return fmt.Errorf("transition %s: %w", operationID, err)
	}
	return nil
}

func (q *durableQueue) nextSeq(ctx context.Context) (int64, error) {
	var seq int64
	raw, err := q.store.Get(ctx, seqKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		seq = 0
	case err != nil:
		return 0, fmt.Errorf("read sequence counter: %w", err)
	default:
		seq, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse sequence counter: %w", err)
		}
	}

	seq++
	if err = q.store.Set(ctx, seqKey, []byte(strconv.FormatInt(seq, 10))); err != nil {
		return 0, fmt.Errorf("advance sequence counter: %w", err)
	}

	return seq, nil
}

func (q *durableQueue) writeOp(ctx context.Context, op models.PendingOperation) error {
	raw, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("encode operation: %w", err)
	}
	return q.store.Set(ctx, opKey(op.Seq), raw)
}

func (q *durableQueue) loadAll(ctx context.Context) ([]models.PendingOperation, error) {
	keys, err := q.store.Keys(ctx, opKeyPrefix)
	if err != nil {
		return nil, err
	}

	ops := make([]models.PendingOperation, 0, len(keys))
	for _, key := range keys {
		raw, err := q.store.Get(ctx, key)
		if errors.Is(err, store.ErrNotFound) {
			// Removed between scan and read; a completed op, skip.
			continue
		}
		if err != nil {
			return nil, err
		}

		var op models.PendingOperation
		if err = json.Unmarshal(raw, &op); err != nil {
			return nil, fmt.Errorf("decode operation at %s: %w", key, err)
		}
		ops = append(ops, op)
	}

	return ops, nil
}

func (q *durableQueue) findByID(ctx context.Context, operationID string) (models.PendingOperation, error) {
	ops, err := q.loadAll(ctx)
	if err != nil {
		return models.PendingOperation{}, err
	}

	for _, op := range ops {
		if op.ID == operationID {
			return op, nil
		}
	}

	return models.PendingOperation{}, ErrOperationNotFound
}

func opKey(seq int64) string {
	return fmt.Sprintf("%s%016d", opKeyPrefix, seq)
}
