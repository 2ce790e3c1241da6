// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package workers

import (
	"context"
	"sync"
	"time"

	"github.com/soffoalbert/buzo-sync/internal/service"
)

// tickerWorker fires the coordinator on a fixed period. Triggers landing
// while a cycle is in progress are dropped by the coordinator itself.
type tickerWorker struct {
	coordinator service.SyncCoordinator
	interval    time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTickerWorker creates a tickerWorker that attempts a sync every
// interval, defaulting to 5 minutes if interval is zero or negative. The
// worker is idle until Start is called.
func NewTickerWorker(coordinator service.SyncCoordinator, interval time.Duration) Worker {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &tickerWorker{coordinator: coordinator, interval: interval}
}

// Start implements Worker. It stops any previously running loop, then
// launches a goroutine that triggers a sync every interval. The goroutine
// exits when ctx is cancelled or Stop is called.
func (w *tickerWorker) Start(ctx context.Context) {
	w.Stop()

	w.mu.Lock()
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()
		t := time.NewTicker(w.interval)
		defer t.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-t.C:
				w.coordinator.TriggerSync(loopCtx)
			}
		}
	}()
}

// Stop implements Worker. It cancels the loop's context and blocks until
// the goroutine has fully exited. No-op when the worker is not running.
func (w *tickerWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}
