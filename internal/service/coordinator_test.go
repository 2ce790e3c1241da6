// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Buzo AI

package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/soffoalbert/buzo-sync/internal/adapter"
	"github.com/soffoalbert/buzo-sync/internal/identity"
	"github.com/soffoalbert/buzo-sync/internal/logger"
	"github.com/soffoalbert/buzo-sync/internal/mock"
	"github.com/soffoalbert/buzo-sync/internal/netmon"
	"github.com/soffoalbert/buzo-sync/internal/queue"
	"github.com/soffoalbert/buzo-sync/internal/store"
	"github.com/soffoalbert/buzo-sync/models"
)

// stubSessions satisfies identity.Provider without touching storage.
type stubSessions struct {
	sess identity.Session
	err  error
}

func (s *stubSessions) Current(context.Context) (identity.Session, error) {
	return s.sess, s.err
}

type coordinatorFixture struct {
	coordinator SyncCoordinator
	records     store.RecordStore
	pending     queue.PendingChangeQueue
	monitor     *netmon.Monitor
	remote      *mock.MockRemoteClient
	sessions    *stubSessions
	publisher   SyncStatusPublisher
}

func newCoordinatorFixture(t *testing.T, ctrl *gomock.Controller) *coordinatorFixture {
	t.Helper()

	local := store.NewMemLocalStore()
	records := store.NewRecordStore(local)
	pending := queue.NewPendingChangeQueue(local, 3, logger.Nop())
	monitor := netmon.NewMonitor(nil, 0, logger.Nop())
	remote := mock.NewMockRemoteClient(ctrl)
	sessions := &stubSessions{sess: identity.Session{UserID: "u1", Token: "tok"}}
	publisher := NewSyncStatusPublisher(logger.Nop())

	coordinator := NewSyncCoordinator(
		context.Background(),
		records,
		pending,
		monitor,
		remote,
		sessions,
		NewConflictResolver(),
		publisher,
		10,
		logger.Nop(),
	)

	monitor.SetReachable(true)

	return &coordinatorFixture{
		coordinator: coordinator,
		records:     records,
		pending:     pending,
		monitor:     monitor,
		remote:      remote,
		sessions:    sessions,
		publisher:   publisher,
	}
}

func (f *coordinatorFixture) enqueue(t *testing.T, opType models.OpType, entityID string, payload string, at time.Time) string {
	t.Helper()
	id, err := f.pending.Enqueue(context.Background(), opType, models.EntityExpense, entityID, []byte(payload), at)
	require.NoError(t, err)
	return id
}

// ── Triggers ─────────────────────────────────────────────────────────────────

func TestCoordinator_UnreachableIsNoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCoordinatorFixture(t, ctrl)
	f.monitor.SetReachable(false)

	before := f.coordinator.Status()
	ran := f.coordinator.TriggerSync(context.Background())

	assert.False(t, ran)
	assert.Equal(t, before, f.coordinator.Status(), "an unreachable no-op must not change state")
}

func TestCoordinator_PlaceholderSessionSkipsRemoteWork(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCoordinatorFixture(t, ctrl)
	f.sessions.sess = identity.Session{UserID: "offline-abc", Placeholder: true}
	f.enqueue(t, models.OpCreate, "e1", `{}`, time.Now())

	ran := f.coordinator.TriggerSync(context.Background())

	assert.False(t, ran)
	pending, _, err := f.pending.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, pending, "mutations stay queued until a real session adopts them")
}

func TestCoordinator_AtMostOneConcurrentCycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCoordinatorFixture(t, ctrl)
	f.enqueue(t, models.OpCreate, "e1", `{}`, time.Now())

	f.remote.EXPECT().SetToken("tok").Times(1)
	f.remote.EXPECT().Pull(gomock.Any(), "u1", models.EntityTypes, gomock.Any()).Return(nil, nil).Times(1)
	f.remote.EXPECT().Push(gomock.Any(), "u1", gomock.Any()).
		DoAndReturn(func(context.Context, string, models.PendingOperation) error {
			time.Sleep(50 * time.Millisecond) // hold the cycle open
			return nil
		}).Times(1)

	start := make(chan struct{})
	var wg sync.WaitGroup
	results := make(chan bool, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- f.coordinator.TriggerSync(context.Background())
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var ran int
	for r := range results {
		if r {
			ran++
		}
	}
	assert.Equal(t, 1, ran, "concurrent triggers must collapse into exactly one cycle")
}

// ── Push path ────────────────────────────────────────────────────────────────

func TestCoordinator_CreateOfflineThenSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCoordinatorFixture(t, ctrl)
	ctx := context.Background()
	f.enqueue(t, models.OpCreate, "e1", `{"title":"groceries"}`, time.Now())

	var statuses []models.SyncStatus
	f.publisher.Subscribe(func(st models.SyncStatus) { statuses = append(statuses, st) })

	f.remote.EXPECT().SetToken("tok")
	f.remote.EXPECT().Pull(gomock.Any(), "u1", models.EntityTypes, gomock.Any()).Return(nil, nil)
	f.remote.EXPECT().Push(gomock.Any(), "u1", gomock.Any()).Return(nil)

	require.True(t, f.coordinator.TriggerSync(ctx))

	pending, failed, err := f.pending.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Zero(t, failed)

	status := f.coordinator.Status()
	assert.False(t, status.IsSyncing)
	assert.Empty(t, status.LastError)
	require.NotNil(t, status.LastSuccessfulSync)

	// The timestamp survives restart through the record store.
	persisted, err := f.records.LastSuccessfulSync(ctx)
	require.NoError(t, err)
	assert.WithinDuration(t, *status.LastSuccessfulSync, persisted, time.Second)

	// Status was published at cycle start (syncing) and at cycle end.
	require.GreaterOrEqual(t, len(statuses), 2)
	assert.True(t, statuses[0].IsSyncing)
	assert.False(t, statuses[len(statuses)-1].IsSyncing)
}

func TestCoordinator_SameEntityOpsReplayInEnqueueOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCoordinatorFixture(t, ctrl)
	base := time.Now()
	f.enqueue(t, models.OpUpdate, "e1", `{"amount":"10"}`, base)
	f.enqueue(t, models.OpUpdate, "e1", `{"amount":"25"}`, base.Add(time.Second))

	var pushed []models.PendingOperation
	f.remote.EXPECT().SetToken("tok")
	f.remote.EXPECT().Pull(gomock.Any(), "u1", models.EntityTypes, gomock.Any()).Return(nil, nil)
	f.remote.EXPECT().Push(gomock.Any(), "u1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, op models.PendingOperation) error {
			pushed = append(pushed, op)
			return nil
		}).Times(2)

	require.True(t, f.coordinator.TriggerSync(context.Background()))

	require.Len(t, pushed, 2)
	assert.Less(t, pushed[0].Seq, pushed[1].Seq)
	assert.JSONEq(t, `{"amount":"10"}`, string(pushed[0].Payload))
	assert.JSONEq(t, `{"amount":"25"}`, string(pushed[1].Payload), "remote must end up reflecting the second update")
}

func TestCoordinator_DefinitiveRejectionFailsImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCoordinatorFixture(t, ctrl)
	ctx := context.Background()
	f.enqueue(t, models.OpCreate, "e1", `{}`, time.Now())

	f.remote.EXPECT().SetToken("tok")
	f.remote.EXPECT().Pull(gomock.Any(), "u1", models.EntityTypes, gomock.Any()).Return(nil, nil)
	f.remote.EXPECT().Push(gomock.Any(), "u1", gomock.Any()).
		Return(fmt.Errorf("%w: http 422: amount must be positive", adapter.ErrRejected))

	require.True(t, f.coordinator.TriggerSync(ctx))

	failed, err := f.pending.FailedOperations(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].Attempts, "no retries are consumed by a definitive rejection")

	status := f.coordinator.Status()
	assert.NotEmpty(t, status.LastError)
	assert.Equal(t, 1, status.FailedCount)
	assert.Nil(t, status.LastSuccessfulSync)
}

func TestCoordinator_TransientFailureLeavesOperationPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCoordinatorFixture(t, ctrl)
	ctx := context.Background()
	f.enqueue(t, models.OpUpdate, "e1", `{}`, time.Now())

	f.remote.EXPECT().SetToken("tok")
	f.remote.EXPECT().Pull(gomock.Any(), "u1", models.EntityTypes, gomock.Any()).Return(nil, nil)
	f.remote.EXPECT().Push(gomock.Any(), "u1", gomock.Any()).
		Return(fmt.Errorf("%w: request timeout", adapter.ErrTransient))

	require.True(t, f.coordinator.TriggerSync(ctx))

	pending, failed, err := f.pending.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending, "a transient failure leaves the operation for the next cycle")
	assert.Zero(t, failed)

	status := f.coordinator.Status()
	assert.Empty(t, status.LastError, "transient failures are not cycle-level failures")
}

func TestCoordinator_CeilingCrossingFailsCycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	local := store.NewMemLocalStore()
	records := store.NewRecordStore(local)
	pending := queue.NewPendingChangeQueue(local, 1, logger.Nop())
	monitor := netmon.NewMonitor(nil, 0, logger.Nop())
	remote := mock.NewMockRemoteClient(ctrl)

	coordinator := NewSyncCoordinator(
		context.Background(),
		records,
		pending,
		monitor,
		remote,
		&stubSessions{sess: identity.Session{UserID: "u1", Token: "tok"}},
		NewConflictResolver(),
		NewSyncStatusPublisher(logger.Nop()),
		10,
		logger.Nop(),
	)
	monitor.SetReachable(true)

	ctx := context.Background()
	_, err := pending.Enqueue(ctx, models.OpUpdate, models.EntityExpense, "e1", []byte(`{}`), time.Now())
	require.NoError(t, err)

	remote.EXPECT().SetToken("tok")
	remote.EXPECT().Pull(gomock.Any(), "u1", models.EntityTypes, gomock.Any()).Return(nil, nil)
	remote.EXPECT().Push(gomock.Any(), "u1", gomock.Any()).
		Return(fmt.Errorf("%w: 503", adapter.ErrTransient))

	require.True(t, coordinator.TriggerSync(ctx))

	// A transient failure that exhausts the retry budget is a terminal
	// failure, and a cycle with a terminal failure is not a successful one.
	failed, err := pending.FailedOperations(ctx)
	require.NoError(t, err)
	require.Len(t, failed, 1)

	status := coordinator.Status()
	assert.NotEmpty(t, status.LastError)
	assert.Equal(t, 1, status.FailedCount)
	assert.Nil(t, status.LastSuccessfulSync)
}

func TestCoordinator_EntityBlockedAfterFailureWithinCycle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCoordinatorFixture(t, ctrl)
	ctx := context.Background()
	base := time.Now()
	f.enqueue(t, models.OpUpdate, "e1", `{"v":1}`, base)
	f.enqueue(t, models.OpUpdate, "e1", `{"v":2}`, base.Add(time.Second))
	f.enqueue(t, models.OpUpdate, "e2", `{"v":1}`, base)

	f.remote.EXPECT().SetToken("tok")
	f.remote.EXPECT().Pull(gomock.Any(), "u1", models.EntityTypes, gomock.Any()).Return(nil, nil)

	// e1's first operation fails transiently; its second must not be
	// attempted this cycle or the per-entity order would invert on retry.
	// e2 is an independent entity and proceeds.
	gomock.InOrder(
		f.remote.EXPECT().Push(gomock.Any(), "u1", opForEntity("e1")).
			Return(fmt.Errorf("%w: 503", adapter.ErrTransient)),
		f.remote.EXPECT().Push(gomock.Any(), "u1", opForEntity("e2")).Return(nil),
	)

	require.True(t, f.coordinator.TriggerSync(ctx))

	pending, _, err := f.pending.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, pending, "both e1 operations wait for the next cycle")
}

// ── Pull / reconcile path ────────────────────────────────────────────────────

func TestCoordinator_PullFailureDoesNotBlockPush(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCoordinatorFixture(t, ctrl)
	ctx := context.Background()
	f.enqueue(t, models.OpCreate, "e1", `{}`, time.Now())

	f.remote.EXPECT().SetToken("tok")
	f.remote.EXPECT().Pull(gomock.Any(), "u1", models.EntityTypes, gomock.Any()).
		Return(nil, fmt.Errorf("%w: 502", adapter.ErrTransient))
	f.remote.EXPECT().Push(gomock.Any(), "u1", gomock.Any()).Return(nil)

	require.True(t, f.coordinator.TriggerSync(ctx))

	pending, _, err := f.pending.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending, "push progress must not be blocked by a pull failure")

	status := f.coordinator.Status()
	assert.NotEmpty(t, status.LastError)
	assert.Nil(t, status.LastSuccessfulSync, "a pull failure is a cycle-level failure")
}

func TestCoordinator_RemoteNewerOverwritesLocal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCoordinatorFixture(t, ctrl)
	ctx := context.Background()
	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	local := models.SyncableRecord{
		EntityType: models.EntityExpense, EntityID: "e1",
		Payload: []byte(`{"title":"old"}`), UpdatedAt: t1,
	}
	require.NoError(t, f.records.Save(ctx, local))

	v := int64(3)
	remote := models.SyncableRecord{
		EntityType: models.EntityExpense, EntityID: "e1",
		Payload: []byte(`{"title":"new"}`), UpdatedAt: t2, Version: &v,
	}

	f.remote.EXPECT().SetToken("tok")
	f.remote.EXPECT().Pull(gomock.Any(), "u1", models.EntityTypes, gomock.Any()).
		Return([]models.SyncableRecord{remote}, nil)

	require.True(t, f.coordinator.TriggerSync(ctx))

	got, err := f.records.Get(ctx, models.EntityExpense, "e1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"new"}`, string(got.Payload))
}

func TestCoordinator_LocalNewerSurvivesPull(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCoordinatorFixture(t, ctrl)
	ctx := context.Background()
	t1 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	local := models.SyncableRecord{
		EntityType: models.EntityExpense, EntityID: "e1",
		Payload: []byte(`{"title":"edited offline"}`), UpdatedAt: t1.Add(time.Hour),
	}
	require.NoError(t, f.records.Save(ctx, local))

	v := int64(2)
	remote := models.SyncableRecord{
		EntityType: models.EntityExpense, EntityID: "e1",
		Payload: []byte(`{"title":"stale"}`), UpdatedAt: t1, Version: &v,
	}

	f.remote.EXPECT().SetToken("tok")
	f.remote.EXPECT().Pull(gomock.Any(), "u1", models.EntityTypes, gomock.Any()).
		Return([]models.SyncableRecord{remote}, nil)

	require.True(t, f.coordinator.TriggerSync(ctx))

	got, err := f.records.Get(ctx, models.EntityExpense, "e1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"edited offline"}`, string(got.Payload))
	require.NotNil(t, got.Version)
	assert.Equal(t, int64(2), *got.Version, "the server version counter is adopted")
}

func TestCoordinator_UnknownRemoteRecordIsAdopted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newCoordinatorFixture(t, ctrl)
	ctx := context.Background()

	v := int64(1)
	remote := models.SyncableRecord{
		EntityType: models.EntityBudget, EntityID: "b9",
		Payload: []byte(`{"name":"food"}`), UpdatedAt: time.Now(), Version: &v,
	}

	f.remote.EXPECT().SetToken("tok")
	f.remote.EXPECT().Pull(gomock.Any(), "u1", models.EntityTypes, gomock.Any()).
		Return([]models.SyncableRecord{remote}, nil)

	require.True(t, f.coordinator.TriggerSync(ctx))

	got, err := f.records.Get(ctx, models.EntityBudget, "b9")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"food"}`, string(got.Payload))
}

// ── Restart ──────────────────────────────────────────────────────────────────

func TestCoordinator_RestoresLastSuccessfulSyncOnConstruction(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	local := store.NewMemLocalStore()
	records := store.NewRecordStore(local)
	at := time.Date(2026, 2, 28, 9, 30, 0, 0, time.UTC)
	require.NoError(t, records.SetLastSuccessfulSync(context.Background(), at))

	coordinator := NewSyncCoordinator(
		context.Background(),
		records,
		queue.NewPendingChangeQueue(local, 3, logger.Nop()),
		netmon.NewMonitor(nil, 0, logger.Nop()),
		mock.NewMockRemoteClient(ctrl),
		&stubSessions{sess: identity.Session{UserID: "u1", Token: "tok"}},
		NewConflictResolver(),
		NewSyncStatusPublisher(logger.Nop()),
		10,
		logger.Nop(),
	)

	status := coordinator.Status()
	require.NotNil(t, status.LastSuccessfulSync)
	assert.True(t, at.Equal(*status.LastSuccessfulSync))
}

// opForEntity matches a PendingOperation by its entity id.
func opForEntity(entityID string) gomock.Matcher {
	return gomock.Cond(func(x any) bool {
		op, ok := x.(models.PendingOperation)
		return ok && op.EntityID == entityID
	})
}
