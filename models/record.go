// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entity type tags for the domain kinds the engine synchronizes.
const (
	EntityExpense      = "expense"
	EntityBudget       = "budget"
	EntitySavingsGoal  = "savings_goal"
	EntitySubscription = "subscription"
)

// EntityTypes lists every entity type pulled from the remote store during a
// sync cycle.
var EntityTypes = []string{EntityExpense, EntityBudget, EntitySavingsGoal, EntitySubscription}

// SyncableRecord wraps a domain entity for synchronization. EntityID is the
// join key between the local and remote copies and is immutable once
// assigned; records created offline carry a client-generated UUID. Payload is
// opaque to the engine; only the domain layer interprets it.
type SyncableRecord struct {
	// EntityType is the string tag of the domain kind (EntityExpense, ...).
	EntityType string `json:"entity_type"`

	// EntityID is the stable identifier of the entity.
	EntityID string `json:"entity_id"`

	// Payload is the serialized domain data.
	Payload json.RawMessage `json:"payload,omitempty"`

	// UpdatedAt is set at the moment of mutation and drives last-write-wins
	// conflict resolution.
	UpdatedAt time.Time `json:"updated_at"`

	// Version is the server-assigned counter. Nil until the record has been
	// pushed successfully at least once.
	Version *int64 `json:"version,omitempty"`
}

// EncodePayload serializes a domain value into the opaque payload form.
func EncodePayload(v any) (json.RawMessage, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return payload, nil
}

// DecodePayload deserializes the record's payload into v.
func (r SyncableRecord) DecodePayload(v any) error {
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload for %s: %w", r.EntityType, r.EntityID, err)
	}
	return nil
}
