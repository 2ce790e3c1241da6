// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soffoalbert/buzo-sync/models"
)

const (
	recKeyPrefix      = "rec/"
	lastSuccessfulKey = "meta/last_successful_sync"
)

// RecordStore is the typed view over the rec/ key range: the locally
// committed copies of every syncable record, plus the one piece of sync
// state that survives restarts.
type RecordStore interface {
	Save(ctx context.Context, rec models.SyncableRecord) error
	Get(ctx context.Context, entityType, entityID string) (models.SyncableRecord, error)
	All(ctx context.Context, entityTypes []string) ([]models.SyncableRecord, error)
	Delete(ctx context.Context, entityType, entityID string) error

	// LastSuccessfulSync returns the persisted completion time of the last
	// successful cycle, or ErrNotFound before the first one.
	LastSuccessfulSync(ctx context.Context) (time.Time, error)
	SetLastSuccessfulSync(ctx context.Context, at time.Time) error
}

type recordStore struct {
	local LocalStore
}

// NewRecordStore returns a RecordStore persisting through local.
func NewRecordStore(local LocalStore) RecordStore {
	return &recordStore{local: local}
}

func (r *recordStore) Save(ctx context.Context, rec models.SyncableRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s/%s: %w", rec.EntityType, rec.EntityID, err)
	}
	return r.local.Set(ctx, recKey(rec.EntityType, rec.EntityID), raw)
}

func (r *recordStore) Get(ctx context.Context, entityType, entityID string) (models.SyncableRecord, error) {
	raw, err := r.local.Get(ctx, recKey(entityType, entityID))
	if err != nil {
		return models.SyncableRecord{}, err
	}

	var rec models.SyncableRecord
	if err = json.Unmarshal(raw, &rec); err != nil {
		return models.SyncableRecord{}, fmt.Errorf("decode record %s/%s: %w", entityType, entityID, err)
	}
	return rec, nil
}

func (r *recordStore) All(ctx context.Context, entityTypes []string) ([]models.SyncableRecord, error) {
	var records []models.SyncableRecord
	for _, entityType := range entityTypes {
		keys, err := r.local.Keys(ctx, recKeyPrefix+entityType+"/")
		if err != nil {
			return nil, fmt.Errorf("list %s records: %w", entityType, err)
		}

		for _, key := range keys {
			raw, err := r.local.Get(ctx, key)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("load record at %s: %w", key, err)
			}

			var rec models.SyncableRecord
			if err = json.Unmarshal(raw, &rec); err != nil {
				return nil, fmt.Errorf("decode record at %s: %w", key, err)
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func (r *recordStore) Delete(ctx context.Context, entityType, entityID string) error {
	return r.local.Remove(ctx, recKey(entityType, entityID))
}

func (r *recordStore) LastSuccessfulSync(ctx context.Context) (time.Time, error) {
	raw, err := r.local.Get(ctx, lastSuccessfulKey)
	if err != nil {
		return time.Time{}, err
	}

	at, err := time.Parse(time.RFC3339Nano, string(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse last successful sync: %w", err)
	}
	return at, nil
}

func (r *recordStore) SetLastSuccessfulSync(ctx context.Context, at time.Time) error {
	return r.local.Set(ctx, lastSuccessfulKey, []byte(at.UTC().Format(time.RFC3339Nano)))
}

func recKey(entityType, entityID string) string {
	return recKeyPrefix + entityType + "/" + entityID
}
