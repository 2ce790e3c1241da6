// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soffoalbert/buzo-sync/internal/logger"
	"github.com/soffoalbert/buzo-sync/internal/queue"
	"github.com/soffoalbert/buzo-sync/internal/store"
	"github.com/soffoalbert/buzo-sync/models"
)

// recordService applies every mutation to the local store first (optimistic
// local truth) and appends the matching operation to the pending-change
// queue. A record's provenance is reconstructable from the two: a record
// with a corresponding queued operation is locally committed; one without is
// remotely confirmed.
type recordService struct {
	records     store.RecordStore
	pending     queue.PendingChangeQueue
	coordinator SyncCoordinator
	publisher   SyncStatusPublisher
	logger      *logger.Logger

	now func() time.Time
}

// NewRecordService wires the optimistic-write path. coordinator is read only
// for its status snapshot, so the freshly enqueued pending count reaches
// subscribers without waiting for the next cycle.
func NewRecordService(
	records store.RecordStore,
	pending queue.PendingChangeQueue,
	coordinator SyncCoordinator,
	publisher SyncStatusPublisher,
	log *logger.Logger,
) RecordService {
	return &recordService{
		records:     records,
		pending:     pending,
		coordinator: coordinator,
		publisher:   publisher,
		logger:      log,
		now:         time.Now,
	}
}

func (s *recordService) Create(ctx context.Context, entityType string, payload any) (models.SyncableRecord, error) {
	encoded, err := models.EncodePayload(payload)
	if err != nil {
		return models.SyncableRecord{}, fmt.Errorf("create %s: %w", entityType, err)
	}

	rec := models.SyncableRecord{
		EntityType: entityType,
		EntityID:   uuid.NewString(),
		Payload:    encoded,
		UpdatedAt:  s.now(),
	}

	if err = s.records.Save(ctx, rec); err != nil {
		return models.SyncableRecord{}, fmt.Errorf("create %s: %w", entityType, err)
	}

	if _, err = s.pending.Enqueue(ctx, models.OpCreate, rec.EntityType, rec.EntityID, rec.Payload, rec.UpdatedAt); err != nil {
		return models.SyncableRecord{}, fmt.Errorf("queue create %s/%s: %w", rec.EntityType, rec.EntityID, err)
	}

	s.publishPendingCount(ctx)
	return rec, nil
}

func (s *recordService) Update(ctx context.Context, entityType, entityID string, payload any) (models.SyncableRecord, error) {
	rec, err := s.records.Get(ctx, entityType, entityID)
	if err != nil {
		return models.SyncableRecord{}, fmt.Errorf("update %s/%s: %w", entityType, entityID, err)
	}

	encoded, err := models.EncodePayload(payload)
	if err != nil {
		return models.SyncableRecord{}, fmt.Errorf("update %s/%s: %w", entityType, entityID, err)
	}

	rec.Payload = encoded
	rec.UpdatedAt = s.now()

	if err = s.records.Save(ctx, rec); err != nil {
		return models.SyncableRecord{}, fmt.Errorf("update %s/%s: %w", entityType, entityID, err)
	}

	if _, err = s.pending.Enqueue(ctx, models.OpUpdate, rec.EntityType, rec.EntityID, rec.Payload, rec.UpdatedAt); err != nil {
		return models.SyncableRecord{}, fmt.Errorf("queue update %s/%s: %w", entityType, entityID, err)
	}

	s.publishPendingCount(ctx)
	return rec, nil
}

func (s *recordService) Delete(ctx context.Context, entityType, entityID string) error {
	if _, err := s.records.Get(ctx, entityType, entityID); err != nil {
		return fmt.Errorf("delete %s/%s: %w", entityType, entityID, err)
	}

	if err := s.records.Delete(ctx, entityType, entityID); err != nil {
		return fmt.Errorf("delete %s/%s: %w", entityType, entityID, err)
	}

	if _, err := s.pending.Enqueue(ctx, models.OpDelete, entityType, entityID, nil, s.now()); err != nil {
		return fmt.Errorf("queue delete %s/%s: %w", entityType, entityID, err)
	}

	s.publishPendingCount(ctx)
	return nil
}

func (s *recordService) Get(ctx context.Context, entityType, entityID string) (models.SyncableRecord, error) {
	return s.records.Get(ctx, entityType, entityID)
}

func (s *recordService) List(ctx context.Context, entityTypes []string) ([]models.SyncableRecord, error) {
	return s.records.All(ctx, entityTypes)
}

// publishPendingCount pushes a status snapshot with the fresh queue counts.
// Count errors are logged and swallowed: the count is advisory UI state, and
// the mutation itself has already committed.
func (s *recordService) publishPendingCount(ctx context.Context) {
	pendingN, failedN, err := s.pending.Counts(ctx)
	if err != nil {
		s.logger.Err(err).Msg("refresh queue counts after mutation")
		return
	}

	status := s.coordinator.Status()
	status.PendingCount = pendingN
	status.FailedCount = failedN
	s.publisher.Publish(status)
}
