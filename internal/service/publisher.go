// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package service

import (
	"sort"
	"sync"

	"github.com/soffoalbert/buzo-sync/internal/logger"
	"github.com/soffoalbert/buzo-sync/models"
)

// statusPublisher is an explicit observer registry. Subscribers are held in
// a map keyed by registration order, so delivery within one publish is
// deterministic and an unsubscribe handle survives the publisher's other
// subscribers coming and going.
type statusPublisher struct {
	logger *logger.Logger

	mu     sync.Mutex
	subs   map[int]func(models.SyncStatus)
	nextID int
}

// NewSyncStatusPublisher constructs an empty publisher.
func NewSyncStatusPublisher(log *logger.Logger) SyncStatusPublisher {
	return &statusPublisher{
		logger: log,
		subs:   make(map[int]func(models.SyncStatus)),
	}
}

// Subscribe implements SyncStatusPublisher.
func (p *statusPublisher) Subscribe(fn func(models.SyncStatus)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subs, id)
		})
	}
}

// Publish implements SyncStatusPublisher. The lock is held for the whole
// delivery so concurrent publishes reach every subscriber in publish order.
func (p *statusPublisher) Publish(status models.SyncStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]int, 0, len(p.subs))
	for id := range p.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		p.deliver(p.subs[id], status)
	}
}

// deliver invokes one subscriber, isolating the rest from its panics.
func (p *statusPublisher) deliver(fn func(models.SyncStatus), status models.SyncStatus) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Any("panic", r).Msg("sync status subscriber panicked")
		}
	}()
	fn(status)
}
