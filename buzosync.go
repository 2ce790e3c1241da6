// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package buzosync

import (
	"context"
	"fmt"

	"github.com/soffoalbert/buzo-sync/internal/adapter"
	"github.com/soffoalbert/buzo-sync/internal/config"
	"github.com/soffoalbert/buzo-sync/internal/identity"
	"github.com/soffoalbert/buzo-sync/internal/logger"
	"github.com/soffoalbert/buzo-sync/internal/netmon"
	"github.com/soffoalbert/buzo-sync/internal/queue"
	"github.com/soffoalbert/buzo-sync/internal/service"
	"github.com/soffoalbert/buzo-sync/internal/store"
	"github.com/soffoalbert/buzo-sync/internal/workers"
	"github.com/soffoalbert/buzo-sync/models"
)

// Config is the host-facing alias of the engine configuration.
type Config = config.StructuredConfig

// LoadConfig assembles configuration from environment variables, flags, an
// optional JSON file, and built-in defaults.
func LoadConfig() (*Config, error) {
	return config.GetStructuredConfig()
}

// Engine is the composition root of the sync subsystem. It owns one
// instance of every collaborator and is constructed exactly once per
// process; tests construct their own with fakes instead of reaching for a
// global.
type Engine struct {
	cfg *Config
	log *logger.Logger
	db  *store.DB

	local       store.LocalStore
	recordStore store.RecordStore
	pending     queue.PendingChangeQueue
	monitor     *netmon.Monitor
	remote      adapter.RemoteClient
	sessions    *identity.Manager
	publisher   service.SyncStatusPublisher
	coordinator service.SyncCoordinator
	records     service.RecordService
	workers     *workers.Workers
}

// New wires an Engine from cfg. The local database is opened and migrated
// here; everything else is constructed but idle until Start.
func New(ctx context.Context, cfg *Config) (*Engine, error) {
	log := logger.NewFileLogger("sync", cfg.Logging.FilePath)

	db, err := store.NewConnectSQLite(ctx, cfg.Storage, log.GetChildLogger())
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}

	local := store.NewLocalStore(db, log.GetChildLogger())
	recordStore := store.NewRecordStore(local)
	pending := queue.NewPendingChangeQueue(local, cfg.Engine.RetryCeiling, log.GetChildLogger())

	probe := netmon.NewHTTPProbe(cfg.Remote.BaseURL, cfg.Remote.RequestTimeout)
	monitor := netmon.NewMonitor(probe, cfg.Engine.ProbeInterval, log.GetChildLogger())

	remote := adapter.NewHTTPRemoteClient(adapter.HTTPClientConfig{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.RequestTimeout,
	})

	sessions := identity.NewManager(local, log.GetChildLogger())
	publisher := service.NewSyncStatusPublisher(log.GetChildLogger())
	resolver := service.NewConflictResolver()

	coordinator := service.NewSyncCoordinator(
		ctx,
		recordStore,
		pending,
		monitor,
		remote,
		sessions,
		resolver,
		publisher,
		cfg.Engine.BatchSize,
		log.GetChildLogger(),
	)

	records := service.NewRecordService(recordStore, pending, coordinator, publisher, log.GetChildLogger())

	ws := workers.NewWorkers(
		workers.NewTickerWorker(coordinator, cfg.Engine.SyncInterval),
		workers.NewReachabilityWorker(monitor, coordinator),
	)

	return &Engine{
		cfg:         cfg,
		log:         log,
		db:          db,
		local:       local,
		recordStore: recordStore,
		pending:     pending,
		monitor:     monitor,
		remote:      remote,
		sessions:    sessions,
		publisher:   publisher,
		coordinator: coordinator,
		records:     records,
		workers:     ws,
	}, nil
}

// Start launches the reachability probe and the trigger workers.
func (e *Engine) Start(ctx context.Context) {
	e.monitor.Start(ctx)
	e.workers.Start(ctx)
}

// Close stops all background work and closes the local database.
func (e *Engine) Close() error {
	e.workers.Stop()
	e.monitor.Stop()
	return e.db.Close()
}

// Records returns the optimistic-write entry point for domain code.
func (e *Engine) Records() service.RecordService {
	return e.records
}

// TriggerSync attempts a sync cycle now (explicit user action or screen
// focus). It reports whether a cycle actually ran; a trigger landing while
// another cycle is in progress is dropped.
func (e *Engine) TriggerSync(ctx context.Context) bool {
	return e.coordinator.TriggerSync(ctx)
}

// Status returns the current aggregate sync state.
func (e *Engine) Status() models.SyncStatus {
	return e.coordinator.Status()
}

// Subscribe registers fn for every published sync status and returns an
// idempotent unsubscribe handle.
func (e *Engine) Subscribe(fn func(models.SyncStatus)) func() {
	return e.publisher.Subscribe(fn)
}

// SetReachable feeds the OS connectivity callback into the engine. An
// unreachable→reachable transition triggers a sync through the
// reachability worker.
func (e *Engine) SetReachable(reachable bool) {
	e.monitor.SetReachable(reachable)
}

// SetSessionToken installs a real user session. Records queued under the
// offline placeholder identity are adopted by it, and a sync is attempted
// immediately so they start draining.
func (e *Engine) SetSessionToken(ctx context.Context, token string) error {
	if _, err := e.sessions.SetSessionToken(ctx, token); err != nil {
		return err
	}
	e.coordinator.TriggerSync(ctx)
	return nil
}

// Logout clears the session. The engine keeps accepting local mutations
// under a fresh placeholder identity.
func (e *Engine) Logout(ctx context.Context) error {
	e.remote.SetToken("")
	return e.sessions.ClearSession(ctx)
}

// FailedOperations lists the terminally failed operations that need the
// user's attention. They stay visible until retried or discarded.
func (e *Engine) FailedOperations(ctx context.Context) ([]models.PendingOperation, error) {
	return e.pending.FailedOperations(ctx)
}

// RetryOperation returns a failed operation to the queue with a fresh
// attempt budget.
func (e *Engine) RetryOperation(ctx context.Context, operationID string) error {
	return e.pending.Retry(ctx, operationID)
}

// DiscardOperation permanently drops a failed operation.
func (e *Engine) DiscardOperation(ctx context.Context, operationID string) error {
	return e.pending.Discard(ctx, operationID)
}

// AddExpense records a spending event locally and queues it for sync.
func (e *Engine) AddExpense(ctx context.Context, expense models.Expense) (models.SyncableRecord, error) {
	return e.records.Create(ctx, models.EntityExpense, expense)
}

// AddBudget records a budget locally and queues it for sync.
func (e *Engine) AddBudget(ctx context.Context, budget models.Budget) (models.SyncableRecord, error) {
	return e.records.Create(ctx, models.EntityBudget, budget)
}

// AddSavingsGoal records a savings goal locally and queues it for sync.
func (e *Engine) AddSavingsGoal(ctx context.Context, goal models.SavingsGoal) (models.SyncableRecord, error) {
	return e.records.Create(ctx, models.EntitySavingsGoal, goal)
}

// AddSubscription records a subscription locally and queues it for sync.
func (e *Engine) AddSubscription(ctx context.Context, sub models.Subscription) (models.SyncableRecord, error) {
	return e.records.Create(ctx, models.EntitySubscription, sub)
}
