// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soffoalbert/buzo-sync/internal/logger"
	"github.com/soffoalbert/buzo-sync/internal/netmon"
	"github.com/soffoalbert/buzo-sync/models"
)

// countingCoordinator records how many triggers landed.
type countingCoordinator struct {
	triggers atomic.Int32
}

func (c *countingCoordinator) TriggerSync(context.Context) bool {
	c.triggers.Add(1)
	return true
}

func (c *countingCoordinator) Status() models.SyncStatus { return models.SyncStatus{} }

func TestTickerWorker_TriggersOnInterval(t *testing.T) {
	coordinator := &countingCoordinator{}
	w := NewTickerWorker(coordinator, 10*time.Millisecond)

	w.Start(context.Background())
	defer w.Stop()

	require.Eventually(t, func() bool { return coordinator.triggers.Load() >= 2 },
		time.Second, 5*time.Millisecond)
}

func TestTickerWorker_StopHaltsTriggers(t *testing.T) {
	coordinator := &countingCoordinator{}
	w := NewTickerWorker(coordinator, 10*time.Millisecond)

	w.Start(context.Background())
	require.Eventually(t, func() bool { return coordinator.triggers.Load() >= 1 },
		time.Second, 5*time.Millisecond)
	w.Stop()

	after := coordinator.triggers.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, coordinator.triggers.Load())
}

func TestTickerWorker_StopWithoutStartIsSafe(t *testing.T) {
	w := NewTickerWorker(&countingCoordinator{}, time.Minute)
	assert.NotPanics(t, w.Stop)
}

func TestTickerWorker_RestartReplacesLoop(t *testing.T) {
	coordinator := &countingCoordinator{}
	w := NewTickerWorker(coordinator, 10*time.Millisecond)

	w.Start(context.Background())
	w.Start(context.Background()) // second Start supersedes the first loop
	defer w.Stop()

	require.Eventually(t, func() bool { return coordinator.triggers.Load() >= 1 },
		time.Second, 5*time.Millisecond)
}

func TestReachabilityWorker_TriggersWhenConnectivityReturns(t *testing.T) {
	coordinator := &countingCoordinator{}
	monitor := netmon.NewMonitor(nil, 0, logger.Nop())

	w := NewReachabilityWorker(monitor, coordinator)
	w.Start(context.Background())
	defer w.Stop()

	monitor.SetReachable(true)

	require.Eventually(t, func() bool { return coordinator.triggers.Load() == 1 },
		time.Second, 5*time.Millisecond)
}

func TestReachabilityWorker_IgnoresLossOfConnectivity(t *testing.T) {
	coordinator := &countingCoordinator{}
	monitor := netmon.NewMonitor(nil, 0, logger.Nop())
	monitor.SetReachable(true)

	w := NewReachabilityWorker(monitor, coordinator)
	w.Start(context.Background())
	defer w.Stop()

	monitor.SetReachable(false)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, coordinator.triggers.Load(), "going offline must not start a sync")
}

func TestReachabilityWorker_StopDetachesFromMonitor(t *testing.T) {
	coordinator := &countingCoordinator{}
	monitor := netmon.NewMonitor(nil, 0, logger.Nop())

	w := NewReachabilityWorker(monitor, coordinator)
	w.Start(context.Background())
	w.Stop()

	monitor.SetReachable(true)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, coordinator.triggers.Load())
}

func TestWorkers_StartsAndStopsAll(t *testing.T) {
	first := &countingCoordinator{}
	second := &countingCoordinator{}

	all := NewWorkers(
		NewTickerWorker(first, 10*time.Millisecond),
		NewTickerWorker(second, 10*time.Millisecond),
	)

	all.Start(context.Background())
	require.Eventually(t, func() bool {
		return first.triggers.Load() >= 1 && second.triggers.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	all.Stop()
	a, b := first.triggers.Load(), second.triggers.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, a, first.triggers.Load())
	assert.Equal(t, b, second.triggers.Load())
}
