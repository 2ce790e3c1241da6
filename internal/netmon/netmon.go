// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

// Package netmon observes connectivity transitions and exposes current
// reachability. It is a pure signal source: no retry logic lives here. The
// unreachable→reachable transition is the primary external trigger for the
// sync coordinator.
package netmon

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/soffoalbert/buzo-sync/internal/logger"
)

// NetworkMonitor exposes current reachability and a stream of
// reachability-changed events.
type NetworkMonitor interface {
	// IsReachable reports the current binary connectivity state.
	IsReachable() bool

	// Subscribe registers for transition events. Each value sent on the
	// channel is the new reachability state. The returned function removes
	// the subscription and is safe to call more than once.
	Subscribe() (<-chan bool, func())
}

// Probe checks connectivity once. Implementations must be cheap; they run on
// every tick of the monitor loop.
type Probe func(ctx context.Context) bool

// Monitor is the default NetworkMonitor. Reachability changes either through
// the probe loop or through SetReachable, which mobile hosts call from their
// OS connectivity callbacks.
type Monitor struct {
	probe    Probe
	interval time.Duration
	logger   *logger.Logger

	reachable atomic.Bool

	mu     sync.Mutex
	subs   map[int]chan bool
	nextID int

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewMonitor creates a Monitor that starts out unreachable until the first
// probe or SetReachable call says otherwise. probe may be nil when the host
// drives reachability itself.
func NewMonitor(probe Probe, interval time.Duration, log *logger.Logger) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		probe:    probe,
		interval: interval,
		logger:   log,
		subs:     make(map[int]chan bool),
	}
}

// NewHTTPProbe returns a Probe that issues a HEAD request against the remote
// health endpoint. Any response at all counts as reachable; only transport
// failure counts as unreachable.
func NewHTTPProbe(baseURL string, timeout time.Duration) Probe {
	client := resty.New().SetBaseURL(baseURL).SetTimeout(timeout)
	return func(ctx context.Context) bool {
		_, err := client.R().SetContext(ctx).Head("/api/health")
		return err == nil
	}
}

// IsReachable implements NetworkMonitor.
func (m *Monitor) IsReachable() bool {
	return m.reachable.Load()
}

// SetReachable records the new connectivity state and, on a transition,
// notifies all subscribers.
func (m *Monitor) SetReachable(reachable bool) {
	old := m.reachable.Swap(reachable)
	if old == reachable {
		return
	}

	m.logger.Info().Bool("reachable", reachable).Msg("reachability changed")

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		// Non-blocking: a slow subscriber keeps only the latest transition.
		select {
		case ch <- reachable:
		default:
		}
	}
}

// Subscribe implements NetworkMonitor.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	ch := make(chan bool, 1)
	m.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
		})
	}

	return ch, unsubscribe
}

// Start launches the probe loop. It is a no-op when the monitor was built
// without a probe. Any previously running loop is stopped first.
func (m *Monitor) Start(ctx context.Context) {
	if m.probe == nil {
		return
	}

	m.Stop()

	m.mu.Lock()
	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()

		m.SetReachable(m.probe(loopCtx))

		t := time.NewTicker(m.interval)
		defer t.Stop()

		for {
			select {
			case <-loopCtx.Done():
				return
			case <-t.C:
				m.SetReachable(m.probe(loopCtx))
			}
		}
	}()
}

// Stop cancels the probe loop and blocks until it has exited. Safe to call
// when the loop is not running.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}
