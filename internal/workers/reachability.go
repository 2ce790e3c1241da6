package workers

import (
	"context"
	"sync"

	"github.com/soffoalbert/buzo-sync/internal/netmon"
	"github.com/soffoalbert/buzo-sync/internal/service"
)

// reachabilityWorker converts unreachable→reachable transitions into sync
// triggers. This is the primary external trigger of the engine: the moment
// connectivity returns, queued offline mutations start draining.
type reachabilityWorker struct {
	monitor     netmon.NetworkMonitor
	coordinator service.SyncCoordinator

	mu          sync.Mutex
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

func NewReachabilityWorker(monitor netmon.NetworkMonitor, coordinator service.SyncCoordinator) Worker {
	return &reachabilityWorker{monitor: monitor, coordinator: coordinator}
}

// Start implements Worker.
func (w *reachabilityWorker) Start(ctx context.Context) {
	w.Stop()

	events, unsubscribe := w.monitor.Subscribe()

	w.mu.Lock()
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.unsubscribe = unsubscribe
	w.wg.Add(1)
	w.mu.Unlock()

	go func() {
		defer w.wg.Done()

		for {
			select {
			case <-loopCtx.Done():
				return
			case reachable := <-events:
				if reachable {
					w.coordinator.TriggerSync(loopCtx)
				}
			}
		}
	}()
}

// Stop implements Worker.
func (w *reachabilityWorker) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	unsubscribe := w.unsubscribe
	w.cancel = nil
	w.unsubscribe = nil
	w.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}
