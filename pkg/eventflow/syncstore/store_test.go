package syncstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/eventflow/pkg/eventflow/event"
	"github.com/code-payments/eventflow/pkg/eventflow/identity"
	memory_identity "github.com/code-payments/eventflow/pkg/eventflow/identity/memory"
	memory_remote "github.com/code-payments/eventflow/pkg/eventflow/remote/memory"
	"github.com/code-payments/eventflow/pkg/testutil"
)

const (
	waitFor  = 2 * time.Second
	waitTick = 5 * time.Millisecond
)

type testEnv struct {
	ctx      context.Context
	remote   *memory_remote.Store
	identity *memory_identity.Provider
	store    *Store
}

func setup(t *testing.T) *testEnv {
	env := &testEnv{
		ctx:      context.Background(),
		remote:   memory_remote.New(),
		identity: memory_identity.New("u1"),
	}
	env.store = New(env.remote, env.identity)
	t.Cleanup(env.store.Close)
	return env
}

func (e *testEnv) requireSnapshotIds(t *testing.T, eventIds ...string) Snapshot {
	var snapshot Snapshot
	require.Eventually(t, func() bool {
		snapshot = e.store.Snapshot()
		if snapshot.Len() != len(eventIds) {
			return false
		}
		for i, record := range snapshot.Records {
			if record.EventId != eventIds[i] {
				return false
			}
		}
		return true
	}, waitFor, waitTick)
	return snapshot
}

func TestActiveUser(t *testing.T) {
	env := setup(t)

	userId, err := env.store.ActiveUser(env.ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", userId)

	env.identity.SignOut()
	_, err = env.store.ActiveUser(env.ctx)
	assert.True(t, errors.Is(err, identity.ErrUnauthenticated))
}

func TestBeginSync_LastNotificationWins(t *testing.T) {
	env := setup(t)

	assert.Equal(t, StateUnauthenticated, env.store.State())
	require.NoError(t, env.store.BeginSync(env.ctx, "u1"))
	assert.Equal(t, StateSyncing, env.store.State())

	env.remote.Emit("u1", &event.Record{EventId: "e1", Title: "A"}, &event.Record{EventId: "e2", Title: "B"})
	snapshot := env.requireSnapshotIds(t, "e1", "e2")
	assert.Equal(t, "A", snapshot.Records[0].Title)
	assert.Equal(t, "B", snapshot.Records[1].Title)
	assert.Equal(t, "u1", snapshot.UserId)

	env.remote.Emit("u1", &event.Record{EventId: "e2", Title: "B"})
	snapshot = env.requireSnapshotIds(t, "e2")
	assert.Equal(t, "B", snapshot.Records[0].Title)

	env.remote.Emit("u1", &event.Record{EventId: "e3", Title: "C"}, &event.Record{EventId: "e2", Title: "B2"})
	snapshot = env.requireSnapshotIds(t, "e3", "e2")
	assert.Equal(t, "B2", snapshot.Records[1].Title)

	env.remote.Emit("u1")
	env.requireSnapshotIds(t)
}

func TestBeginSync_SameUserIsNoop(t *testing.T) {
	env := setup(t)

	require.NoError(t, env.store.BeginSync(env.ctx, "u1"))
	require.NoError(t, env.store.BeginSync(env.ctx, "u1"))

	assert.Equal(t, 1, env.remote.GetSubscribeCallCount())
	assert.Equal(t, 1, env.remote.SubscriberCount("u1"))
}

func TestBeginSync_SwitchUserReplacesSubscription(t *testing.T) {
	env := setup(t)

	env.remote.Emit("u1", &event.Record{EventId: "e1", UserId: "u1"})
	env.remote.Emit("u2", &event.Record{EventId: "e2", UserId: "u2"})

	require.NoError(t, env.store.BeginSync(env.ctx, "u1"))
	env.requireSnapshotIds(t, "e1")

	require.NoError(t, env.store.BeginSync(env.ctx, "u2"))
	snapshot := env.requireSnapshotIds(t, "e2")
	assert.Equal(t, "u2", snapshot.UserId)
	assert.Equal(t, "u2", env.store.SyncedUser())

	require.Eventually(t, func() bool {
		return env.remote.SubscriberCount("u1") == 0
	}, waitFor, waitTick)

	// Changes to the previous partition never leak into the snapshot
	env.remote.Emit("u1", &event.Record{EventId: "e3", UserId: "u1"})
	time.Sleep(50 * time.Millisecond)
	env.requireSnapshotIds(t, "e2")
}

func TestBeginSync_SubscriptionCancelledFreezesSnapshot(t *testing.T) {
	env := setup(t)

	require.NoError(t, env.store.BeginSync(env.ctx, "u1"))
	env.remote.Emit("u1", &event.Record{EventId: "e1"})
	env.requireSnapshotIds(t, "e1")

	env.remote.CancelSubscriptions("u1")
	require.Eventually(t, func() bool {
		return env.store.State() == StateFailed
	}, waitFor, waitTick)

	env.remote.Emit("u1", &event.Record{EventId: "e1"}, &event.Record{EventId: "e2"})
	time.Sleep(50 * time.Millisecond)
	env.requireSnapshotIds(t, "e1")

	// Retrying is up to the caller
	require.NoError(t, env.store.BeginSync(env.ctx, "u1"))
	assert.Equal(t, StateSyncing, env.store.State())
	env.requireSnapshotIds(t, "e1", "e2")
}

func TestBeginSync_RemoteFailure(t *testing.T) {
	env := setup(t)

	env.remote.InduceErrors()
	assert.Error(t, env.store.BeginSync(env.ctx, "u1"))
	assert.Equal(t, StateFailed, env.store.State())

	env.remote.StopInducingErrors()
	require.NoError(t, env.store.BeginSync(env.ctx, "u1"))
	assert.Equal(t, StateSyncing, env.store.State())

	assert.Error(t, env.store.BeginSync(env.ctx, ""))
}

func TestSave_AssignsIdAndOverwrites(t *testing.T) {
	env := setup(t)

	require.NoError(t, env.store.BeginSync(env.ctx, "u1"))

	record := &event.Record{
		Title:  "T",
		Date:   "2024-01-01",
		Time:   "10:00",
		UserId: "someone-else",
	}
	require.NoError(t, env.store.Save(env.ctx, "u1", record))
	require.NotEmpty(t, record.EventId)
	assert.Equal(t, "u1", record.UserId)
	assert.Equal(t, 1, env.remote.GetNewEventIdCallCount())

	snapshot := env.requireSnapshotIds(t, record.EventId)
	assert.Equal(t, "T", snapshot.Records[0].Title)
	assert.Equal(t, "u1", snapshot.Records[0].UserId)

	record.Title = "T2"
	require.NoError(t, env.store.Save(env.ctx, "u1", record))
	assert.Equal(t, 1, env.remote.GetNewEventIdCallCount())

	require.Eventually(t, func() bool {
		snapshot := env.store.Snapshot()
		return snapshot.Len() == 1 && snapshot.Records[0].Title == "T2"
	}, waitFor, waitTick)

	stored, err := env.remote.Get(env.ctx, "u1", record.EventId)
	require.NoError(t, err)
	assert.Equal(t, *record, *stored)
}

func TestSave_NotOptimistic(t *testing.T) {
	env := setup(t)

	require.NoError(t, env.store.BeginSync(env.ctx, "u1"))
	env.requireSnapshotIds(t)

	env.remote.CancelSubscriptions("u1")
	require.Eventually(t, func() bool {
		return env.store.State() == StateFailed
	}, waitFor, waitTick)

	record := &event.Record{Title: "T", Date: "2024-01-01", Time: "10:00"}
	require.NoError(t, env.store.Save(env.ctx, "u1", record))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, env.store.Snapshot().Len())

	_, err := env.remote.Get(env.ctx, "u1", record.EventId)
	require.NoError(t, err)
}

func TestSave_Failures(t *testing.T) {
	env := setup(t)

	invalid := &event.Record{Title: "T"}
	err := env.store.Save(env.ctx, "u1", invalid)
	assert.True(t, errors.Is(err, event.ErrInvalidEvent))
	assert.Equal(t, 0, env.remote.GetPutCallCount())

	assert.Error(t, env.store.Save(env.ctx, "", &event.Record{Title: "T", Date: "2024-01-01", Time: "10:00"}))

	env.remote.InduceErrors()

	record := &event.Record{Title: "T", Date: "2024-01-01", Time: "10:00"}
	assert.Error(t, env.store.Save(env.ctx, "u1", record))
	assert.Empty(t, record.EventId)

	record.EventId = "e1"
	assert.Error(t, env.store.Save(env.ctx, "u1", record))
}

func TestDelete(t *testing.T) {
	env := setup(t)

	require.NoError(t, env.store.BeginSync(env.ctx, "u1"))
	env.remote.Emit("u1", &event.Record{EventId: "e1"}, &event.Record{EventId: "e2"})
	env.requireSnapshotIds(t, "e1", "e2")

	require.NoError(t, env.store.Delete(env.ctx, "u1", "e1"))
	env.requireSnapshotIds(t, "e2")

	// Deleting something that doesn't exist still succeeds
	require.NoError(t, env.store.Delete(env.ctx, "u1", "e1"))
	require.NoError(t, env.store.Delete(env.ctx, "u1", "never-existed"))

	env.remote.InduceErrors()
	assert.Error(t, env.store.Delete(env.ctx, "u1", "e2"))

	assert.Error(t, env.store.Delete(env.ctx, "u1", ""))
}

func TestWatch(t *testing.T) {
	env := setup(t)

	ch := env.store.Watch(env.ctx)

	initial := testutil.Receive(t, ch, waitFor)
	assert.Equal(t, uint64(0), initial.Version)
	assert.Empty(t, initial.Records)

	require.NoError(t, env.store.BeginSync(env.ctx, "u1"))
	env.remote.Emit("u1", &event.Record{EventId: "e1"})

	var latest Snapshot
	require.Eventually(t, func() bool {
		select {
		case latest = <-ch:
		default:
		}
		return latest.Len() == 1
	}, waitFor, waitTick)
	assert.Equal(t, "e1", latest.Records[0].EventId)

	// Watching again restarts from the current snapshot
	ctx, cancel := context.WithCancel(env.ctx)
	restarted := env.store.Watch(ctx)
	current := testutil.Receive(t, restarted, waitFor)
	assert.Equal(t, 1, current.Len())

	cancel()
	testutil.RequireClosed(t, restarted, waitFor)

	env.store.Close()
	testutil.RequireClosed(t, ch, waitFor)
}

func TestClose(t *testing.T) {
	env := setup(t)

	require.NoError(t, env.store.BeginSync(env.ctx, "u1"))
	require.Equal(t, 1, env.remote.SubscriberCount("u1"))

	env.store.Close()
	env.store.Close()

	assert.Equal(t, StateClosed, env.store.State())
	assert.Equal(t, ErrClosed, env.store.BeginSync(env.ctx, "u1"))
	require.Eventually(t, func() bool {
		return env.remote.SubscriberCount("u1") == 0
	}, waitFor, waitTick)

	testutil.RequireClosed(t, env.store.Watch(env.ctx), waitFor)
}

func TestSnapshotCopies(t *testing.T) {
	env := setup(t)

	require.NoError(t, env.store.BeginSync(env.ctx, "u1"))
	env.remote.Emit("u1", &event.Record{EventId: "e1", Title: "A"})
	snapshot := env.requireSnapshotIds(t, "e1")

	events := snapshot.Events()
	events[0].Title = "mutated"

	found, ok := snapshot.Find("e1")
	require.True(t, ok)
	found.Title = "mutated"

	assert.Equal(t, "A", env.store.Snapshot().Records[0].Title)

	_, ok = snapshot.Find("e2")
	assert.False(t, ok)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "unauthenticated", StateUnauthenticated.String())
	assert.Equal(t, "syncing", StateSyncing.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "unknown", State(42).String())
}
