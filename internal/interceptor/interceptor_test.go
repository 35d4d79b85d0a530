package interceptor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantlabs/verdant/internal/loggy"
	"github.com/verdantlabs/verdant/internal/netmon"
	"github.com/verdantlabs/verdant/internal/remote"
	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/store/storetest"
	"github.com/verdantlabs/verdant/internal/ulid"
)

func newTestInterceptor(online bool) (*Interceptor, *storetest.Memory, *netmon.Monitor) {
	mem := storetest.NewMemory()
	monitor := netmon.New(nil, time.Second, 0, loggy.NewNoopLogger())
	monitor.SetOnline(online)

	return New(mem, monitor, loggy.NewNoopLogger()), mem, monitor
}

func record(id, naturalKey string) *store.Record {
	return &store.Record{
		ID:         id,
		NaturalKey: naturalKey,
		Payload:    json.RawMessage(`{"name":"Water"}`),
	}
}

func TestGetLocalHitWins(t *testing.T) {
	ic, mem, _ := newTestInterceptor(true)
	ctx := context.Background()

	local := record("cat_1", "tpl/Water")
	local.SyncStatus = store.SyncStatusSynced
	require.NoError(t, mem.Put(ctx, store.TableCategories, local))

	fetchCalled := false
	got, err := ic.Get(ctx, store.TableCategories, "cat_1", func(context.Context) (*store.Record, error) {
		fetchCalled = true
		return record("cat_1", "tpl/Water"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cat_1", got.ID)
	assert.False(t, fetchCalled, "a local hit must not reach the network")
}

func TestGetMissOnlineFillsCache(t *testing.T) {
	ic, mem, _ := newTestInterceptor(true)
	ctx := context.Background()

	fetched := record("cat_2", "tpl/Energy")
	fetched.SyncStatus = store.SyncStatusSynced

	got, err := ic.Get(ctx, store.TableCategories, "cat_2", func(context.Context) (*store.Record, error) {
		return fetched, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cat_2", got.ID)

	// Write-through fill: the next read hits locally
	cached, err := mem.Get(ctx, store.TableCategories, "cat_2")
	require.NoError(t, err)
	assert.Equal(t, "cat_2", cached.ID)
}

func TestGetMissOffline(t *testing.T) {
	ic, _, _ := newTestInterceptor(false)

	_, err := ic.Get(context.Background(), store.TableCategories, "cat_3", nil)
	assert.ErrorIs(t, err, ErrOfflineNoData)
}

func TestGetStorageErrorPropagates(t *testing.T) {
	ic, mem, _ := newTestInterceptor(true)
	mem.FailWith = store.ErrStoreUnavailable

	_, err := ic.Get(context.Background(), store.TableCategories, "cat_1", nil)
	assert.ErrorIs(t, err, store.ErrStoreUnavailable)
}

func TestListEmptyOffline(t *testing.T) {
	ic, _, _ := newTestInterceptor(false)

	_, err := ic.List(context.Background(), store.TableCategories, nil)
	assert.ErrorIs(t, err, ErrOfflineNoData)
}

func TestListEmptyOnlineFillsCache(t *testing.T) {
	ic, mem, _ := newTestInterceptor(true)
	ctx := context.Background()

	got, err := ic.List(ctx, store.TableCategories, func(context.Context) ([]*store.Record, error) {
		return []*store.Record{record("cat_1", "tpl/Water"), record("cat_2", "tpl/Energy")}, nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 2, mem.MustCount(store.TableCategories))
}

func TestMutateReadYourWrites(t *testing.T) {
	ic, mem, _ := newTestInterceptor(false)
	ctx := context.Background()

	optimistic := record(ulid.TempID(), "tpl/Water")

	res, err := ic.Mutate(ctx, OpCreate, store.TableCategories, optimistic, nil)
	require.NoError(t, err)
	assert.Equal(t, OutcomeQueued, res.Outcome)

	// The optimistic write is visible immediately after Mutate returns
	got, err := mem.Get(ctx, store.TableCategories, optimistic.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusPending, got.SyncStatus)
	assert.True(t, got.LocalChanges)
}

func TestMutateOnlineConfirmSwapsTempID(t *testing.T) {
	ic, mem, _ := newTestInterceptor(true)
	ctx := context.Background()

	tempID := ulid.TempID()
	optimistic := record(tempID, "tpl/Water")

	res, err := ic.Mutate(ctx, OpCreate, store.TableCategories, optimistic, func(context.Context) (*store.Record, error) {
		return record("cat_real", "tpl/Water"), nil
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Equal(t, "cat_real", res.Record.ID)
	assert.Equal(t, store.SyncStatusSynced, res.Record.SyncStatus)

	// Temp-to-real swap: exactly one record remains
	_, err = mem.Get(ctx, store.TableCategories, tempID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 1, mem.MustCount(store.TableCategories), mem.Dump(store.TableCategories))
}

func TestMutateTransientFailureQueues(t *testing.T) {
	ic, mem, _ := newTestInterceptor(true)
	ctx := context.Background()

	optimistic := record(ulid.TempID(), "tpl/Water")

	res, err := ic.Mutate(ctx, OpCreate, store.TableCategories, optimistic, func(context.Context) (*store.Record, error) {
		return nil, remote.ErrUnreachable
	})
	require.NoError(t, err, "transient failures are swallowed into the queued path")
	assert.Equal(t, OutcomeQueued, res.Outcome)

	got, err := mem.Get(ctx, store.TableCategories, optimistic.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusPending, got.SyncStatus)
}

func TestMutatePermanentRejectionMarksFailed(t *testing.T) {
	ic, mem, _ := newTestInterceptor(true)
	ctx := context.Background()

	optimistic := record(ulid.TempID(), "tpl/Water")
	rejection := remote.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "name is required"}

	res, err := ic.Mutate(ctx, OpCreate, store.TableCategories, optimistic, func(context.Context) (*store.Record, error) {
		return nil, rejection
	})
	require.Error(t, err)
	assert.Equal(t, OutcomeRejected, res.Outcome)

	got, err := mem.Get(ctx, store.TableCategories, optimistic.ID)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusFailed, got.SyncStatus)
}

func TestMutateDelete(t *testing.T) {
	t.Run("synced record online", func(t *testing.T) {
		ic, mem, _ := newTestInterceptor(true)
		ctx := context.Background()

		rec := record("cat_1", "tpl/Water")
		rec.SyncStatus = store.SyncStatusSynced
		require.NoError(t, mem.Put(ctx, store.TableCategories, rec))

		remoteCalled := false
		res, err := ic.Mutate(ctx, OpDelete, store.TableCategories, rec, func(context.Context) (*store.Record, error) {
			remoteCalled = true
			return nil, nil
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeConfirmed, res.Outcome)
		assert.True(t, remoteCalled)
		assert.Zero(t, mem.MustCount(store.TableCategories))
	})

	t.Run("temp record skips remote", func(t *testing.T) {
		ic, mem, _ := newTestInterceptor(true)
		ctx := context.Background()

		rec := record(ulid.TempID(), "tpl/Water")
		rec.SyncStatus = store.SyncStatusPending
		require.NoError(t, mem.Put(ctx, store.TableCategories, rec))

		res, err := ic.Mutate(ctx, OpDelete, store.TableCategories, rec, func(context.Context) (*store.Record, error) {
			t.Fatal("a temporary record must never reach the remote service")
			return nil, nil
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeConfirmed, res.Outcome)
		assert.Zero(t, mem.MustCount(store.TableCategories))
	})

	t.Run("synced record offline leaves a pending tombstone", func(t *testing.T) {
		ic, mem, _ := newTestInterceptor(false)
		ctx := context.Background()

		rec := record("cat_1", "tpl/Water")
		rec.SyncStatus = store.SyncStatusSynced
		require.NoError(t, mem.Put(ctx, store.TableCategories, rec))

		res, err := ic.Mutate(ctx, OpDelete, store.TableCategories, rec, func(context.Context) (*store.Record, error) {
			t.Fatal("offline mutations must not reach the remote service")
			return nil, nil
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeQueued, res.Outcome)

		// The queued delete is real work for the sweep, not a dropped row
		pending, err := mem.ListPending(ctx, store.TableCategories)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.True(t, pending[0].Deleted)
		assert.Equal(t, store.SyncStatusPending, pending[0].SyncStatus)
	})

	t.Run("transient failure leaves a pending tombstone", func(t *testing.T) {
		ic, mem, _ := newTestInterceptor(true)
		ctx := context.Background()

		rec := record("cat_1", "tpl/Water")
		rec.SyncStatus = store.SyncStatusSynced
		require.NoError(t, mem.Put(ctx, store.TableCategories, rec))

		res, err := ic.Mutate(ctx, OpDelete, store.TableCategories, rec, func(context.Context) (*store.Record, error) {
			return nil, remote.ErrUnreachable
		})
		require.NoError(t, err)
		assert.Equal(t, OutcomeQueued, res.Outcome)

		pending, err := mem.ListPending(ctx, store.TableCategories)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.True(t, pending[0].Deleted)
	})

	t.Run("permanent rejection marks the tombstone failed", func(t *testing.T) {
		ic, mem, _ := newTestInterceptor(true)
		ctx := context.Background()

		rec := record("cat_1", "tpl/Water")
		rec.SyncStatus = store.SyncStatusSynced
		require.NoError(t, mem.Put(ctx, store.TableCategories, rec))

		rejection := remote.APIError{StatusCode: http.StatusForbidden, Message: "not yours"}
		res, err := ic.Mutate(ctx, OpDelete, store.TableCategories, rec, func(context.Context) (*store.Record, error) {
			return nil, rejection
		})
		require.Error(t, err)
		assert.Equal(t, OutcomeRejected, res.Outcome)

		got, err := mem.Get(ctx, store.TableCategories, "cat_1")
		require.NoError(t, err)
		assert.True(t, got.Deleted)
		assert.Equal(t, store.SyncStatusFailed, got.SyncStatus)
	})
}

func TestGetHidesQueuedDelete(t *testing.T) {
	ic, mem, _ := newTestInterceptor(true)
	ctx := context.Background()

	rec := record("cat_1", "tpl/Water")
	rec.SyncStatus = store.SyncStatusPending
	rec.Deleted = true
	require.NoError(t, mem.Put(ctx, store.TableCategories, rec))

	// The tombstone must not trigger a refetch that revives the record
	_, err := ic.Get(ctx, store.TableCategories, "cat_1", func(context.Context) (*store.Record, error) {
		t.Fatal("a tombstoned id must not be refetched")
		return nil, nil
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListHidesQueuedDeleteAndSkipsRefill(t *testing.T) {
	ic, mem, _ := newTestInterceptor(true)
	ctx := context.Background()

	dead := record("cat_1", "tpl/Water")
	dead.SyncStatus = store.SyncStatusPending
	dead.Deleted = true
	require.NoError(t, mem.Put(ctx, store.TableCategories, dead))

	// Only a tombstone exists locally, so the list falls through to the
	// remote, which still returns the not-yet-deleted record
	got, err := ic.List(ctx, store.TableCategories, func(context.Context) ([]*store.Record, error) {
		return []*store.Record{record("cat_1", "tpl/Water"), record("cat_2", "tpl/Energy")}, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cat_2", got[0].ID)

	// The fill must not overwrite the tombstone
	cached, err := mem.Get(ctx, store.TableCategories, "cat_1")
	require.NoError(t, err)
	assert.True(t, cached.Deleted)
}

func TestListByParent(t *testing.T) {
	ic, mem, _ := newTestInterceptor(true)
	ctx := context.Background()

	child := record("rsp_1", "asm_1/qr_1")
	child.ParentID = "asm_1"
	child.SyncStatus = store.SyncStatusSynced
	require.NoError(t, mem.Put(ctx, store.TableResponses, child))

	other := record("rsp_2", "asm_2/qr_1")
	other.ParentID = "asm_2"
	other.SyncStatus = store.SyncStatusSynced
	require.NoError(t, mem.Put(ctx, store.TableResponses, other))

	got, err := ic.ListByParent(ctx, store.TableResponses, "asm_1", func(context.Context) ([]*store.Record, error) {
		t.Fatal("a local hit must not reach the network")
		return nil, nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "rsp_1", got[0].ID)
}

func TestMutateConfirmReparentsChildren(t *testing.T) {
	ic, mem, _ := newTestInterceptor(true)
	ctx := context.Background()

	tempID := ulid.TempID()
	child := &store.Record{
		ID:           ulid.TempID(),
		NaturalKey:   tempID + "/qr_1",
		ParentID:     tempID,
		SyncStatus:   store.SyncStatusPending,
		LocalChanges: true,
		Payload:      json.RawMessage(`{"id":"","assessment_id":"` + tempID + `","question_revision_id":"qr_1","answer":{"v":1},"version":1}`),
	}
	require.NoError(t, mem.Put(ctx, store.TableResponses, child))

	optimistic := record(tempID, "")
	res, err := ic.Mutate(ctx, OpCreate, store.TableAssessments, optimistic, func(context.Context) (*store.Record, error) {
		return record("asm_real", ""), nil
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeConfirmed, res.Outcome)

	// The child follows the server-assigned parent id
	reparented, err := mem.ListByParent(ctx, store.TableResponses, "asm_real")
	require.NoError(t, err)
	require.Len(t, reparented, 1)
	assert.Equal(t, "asm_real/qr_1", reparented[0].NaturalKey)
	assert.Contains(t, string(reparented[0].Payload), `"assessment_id":"asm_real"`)

	orphans, err := mem.ListByParent(ctx, store.TableResponses, tempID)
	require.NoError(t, err)
	assert.Empty(t, orphans, "no child may keep pointing at the retired id")
}

func TestInFlightTrackedDuringMutation(t *testing.T) {
	ic, _, _ := newTestInterceptor(true)
	ctx := context.Background()

	optimistic := record(ulid.TempID(), "tpl/Water")
	var seenInFlight bool

	_, err := ic.Mutate(ctx, OpCreate, store.TableCategories, optimistic, func(context.Context) (*store.Record, error) {
		seenInFlight = ic.InFlight(optimistic.ID)
		return record("cat_real", "tpl/Water"), nil
	})
	require.NoError(t, err)
	assert.True(t, seenInFlight, "the record is in flight while the remote call runs")
	assert.False(t, ic.InFlight(optimistic.ID), "cleared after the mutation completes")
}

func TestMutateStorageErrorPropagates(t *testing.T) {
	ic, mem, _ := newTestInterceptor(true)
	mem.FailWith = store.ErrStoreUnavailable

	_, err := ic.Mutate(context.Background(), OpCreate, store.TableCategories, record(ulid.TempID(), ""), nil)
	assert.True(t, errors.Is(err, store.ErrStoreUnavailable))
}
