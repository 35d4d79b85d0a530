package sweep

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
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

// fakePusher assigns server ids to temporary records and records every
// push it sees
type fakePusher struct {
	mu       sync.Mutex
	pushes   []string
	keys     map[string]string // record id -> idempotency key seen
	payloads map[string]string // record id -> payload pushed
	err      error
	nextID   string
}

func newFakePusher() *fakePusher {
	return &fakePusher{
		keys:     make(map[string]string),
		payloads: make(map[string]string),
		nextID:   "srv_1",
	}
}

func (f *fakePusher) Push(_ context.Context, _ store.Table, rec *store.Record) (*store.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pushes = append(f.pushes, rec.ID)
	f.keys[rec.ID] = rec.IdempotencyKey
	f.payloads[rec.ID] = string(rec.Payload)

	if f.err != nil {
		return nil, f.err
	}

	// Remote deletes confirm with no record, mirroring the production
	// pusher contract
	if rec.Deleted {
		return nil, nil
	}

	confirmed := *rec
	confirmed.Payload = append([]byte(nil), rec.Payload...)
	if rec.IsTemp() {
		confirmed.ID = f.nextID
	}
	return &confirmed, nil
}

func (f *fakePusher) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

type fakeInFlight struct{ ids map[string]bool }

func (f *fakeInFlight) InFlight(id string) bool { return f.ids[id] }

func newTestSweeper(online bool, pusher Pusher) (*Sweeper, *storetest.Memory, *netmon.Monitor) {
	mem := storetest.NewMemory()
	monitor := netmon.New(nil, time.Second, 0, loggy.NewNoopLogger())
	monitor.SetOnline(online)

	s := New(mem, pusher, monitor, nil, nil, time.Minute, 100, 100, loggy.NewNoopLogger())
	return s, mem, monitor
}

func pendingRecord(id, naturalKey string) *store.Record {
	return &store.Record{
		ID:           id,
		NaturalKey:   naturalKey,
		SyncStatus:   store.SyncStatusPending,
		LocalChanges: true,
		Payload:      json.RawMessage(`{"name":"Water","weight":10}`),
	}
}

func TestRunOnceOffline(t *testing.T) {
	s, _, _ := newTestSweeper(false, newFakePusher())

	_, err := s.RunOnce(context.Background(), TriggerManual)
	assert.ErrorIs(t, err, ErrOffline)
}

func TestOfflineCreateThenSweep(t *testing.T) {
	// The Water category scenario: created offline, confirmed after
	// connectivity returns
	pusher := newFakePusher()
	pusher.nextID = "cat_water"
	s, mem, _ := newTestSweeper(true, pusher)
	ctx := context.Background()

	tempID := ulid.TempID()
	require.NoError(t, mem.Put(ctx, store.TableCategories, pendingRecord(tempID, "tpl_1/Water")))

	summary, err := s.RunOnce(ctx, TriggerOnline)
	require.NoError(t, err)

	pushed, failed, _ := summary.Totals()
	assert.Equal(t, 1, pushed)
	assert.Zero(t, failed)

	// Exactly one record, real id, synced, temp record gone
	require.Equal(t, 1, mem.MustCount(store.TableCategories), mem.Dump(store.TableCategories))
	got, err := mem.Get(ctx, store.TableCategories, "cat_water")
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusSynced, got.SyncStatus)
	assert.False(t, got.LocalChanges)

	_, err = mem.Get(ctx, store.TableCategories, tempID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSweepIsIdempotent(t *testing.T) {
	pusher := newFakePusher()
	s, mem, _ := newTestSweeper(true, pusher)
	ctx := context.Background()

	require.NoError(t, mem.Put(ctx, store.TableCategories, pendingRecord(ulid.TempID(), "tpl_1/Water")))

	_, err := s.RunOnce(ctx, TriggerManual)
	require.NoError(t, err)
	_, err = s.RunOnce(ctx, TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 1, pusher.pushCount(), "a confirmed record must not be pushed again")
	assert.Equal(t, 1, mem.MustCount(store.TableCategories))
}

func TestIdempotencyKeyMintedOnceAndReused(t *testing.T) {
	pusher := newFakePusher()
	pusher.err = remote.ErrUnreachable
	s, mem, _ := newTestSweeper(true, pusher)
	ctx := context.Background()

	tempID := ulid.TempID()
	require.NoError(t, mem.Put(ctx, store.TableCategories, pendingRecord(tempID, "tpl_1/Water")))

	// First attempt fails transiently; the key must be persisted
	_, err := s.RunOnce(ctx, TriggerManual)
	require.NoError(t, err)

	stored, err := mem.Get(ctx, store.TableCategories, tempID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.IdempotencyKey)
	firstKey := stored.IdempotencyKey

	// Second attempt succeeds and must send the same key
	pusher.err = nil
	_, err = s.RunOnce(ctx, TriggerManual)
	require.NoError(t, err)

	pusher.mu.Lock()
	defer pusher.mu.Unlock()
	assert.Equal(t, firstKey, pusher.keys[tempID], "retries must reuse the persisted idempotency key")
}

func TestNaturalKeyDedup(t *testing.T) {
	pusher := newFakePusher()
	pusher.nextID = "cat_water"
	s, mem, _ := newTestSweeper(true, pusher)
	ctx := context.Background()

	// Two temporary copies of the same logical category accumulated
	first := ulid.TempID()
	second := ulid.TempID()
	require.NoError(t, mem.Put(ctx, store.TableCategories, pendingRecord(first, "tpl_1/Water")))
	require.NoError(t, mem.Put(ctx, store.TableCategories, pendingRecord(second, "tpl_1/Water")))

	_, err := s.RunOnce(ctx, TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, 1, mem.MustCount(store.TableCategories), mem.Dump(store.TableCategories))
	got, err := mem.Get(ctx, store.TableCategories, "cat_water")
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusSynced, got.SyncStatus)
}

func TestInFlightRecordsSkipped(t *testing.T) {
	pusher := newFakePusher()
	mem := storetest.NewMemory()
	monitor := netmon.New(nil, time.Second, 0, loggy.NewNoopLogger())
	monitor.SetOnline(true)

	tempID := ulid.TempID()
	require.NoError(t, mem.Put(context.Background(), store.TableCategories, pendingRecord(tempID, "tpl_1/Water")))

	checker := &fakeInFlight{ids: map[string]bool{tempID: true}}
	s := New(mem, pusher, monitor, checker, nil, time.Minute, 100, 100, loggy.NewNoopLogger())

	summary, err := s.RunOnce(context.Background(), TriggerManual)
	require.NoError(t, err)

	_, _, skipped := summary.Totals()
	assert.Equal(t, 1, skipped)
	assert.Zero(t, pusher.pushCount())
}

func TestBatchLimitCapsOnePass(t *testing.T) {
	pusher := newFakePusher()
	s, mem, _ := newTestSweeper(true, pusher)
	ctx := context.Background()

	for _, id := range []string{"cat_1", "cat_2", "cat_3", "cat_4", "cat_5"} {
		require.NoError(t, mem.Put(ctx, store.TableCategories, pendingRecord(id, "tpl_1/"+id)))
	}

	s.SetBatchLimit(2)

	summary, err := s.RunOnce(ctx, TriggerManual)
	require.NoError(t, err)

	pushed, _, _ := summary.Totals()
	assert.Equal(t, 2, pushed)
	assert.Equal(t, 2, pusher.pushCount())

	remaining, err := mem.ListPending(ctx, store.TableCategories)
	require.NoError(t, err)
	assert.Len(t, remaining, 3)
}

func TestPermanentRejectionStopsRetries(t *testing.T) {
	pusher := newFakePusher()
	pusher.err = remote.APIError{StatusCode: http.StatusUnprocessableEntity, Message: "invalid"}
	s, mem, _ := newTestSweeper(true, pusher)
	ctx := context.Background()

	tempID := ulid.TempID()
	require.NoError(t, mem.Put(ctx, store.TableCategories, pendingRecord(tempID, "tpl_1/Water")))

	_, err := s.RunOnce(ctx, TriggerManual)
	require.NoError(t, err)

	got, err := mem.Get(ctx, store.TableCategories, tempID)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusFailed, got.SyncStatus)

	// The failed record is out of the pending set; the next pass must
	// not push it again
	_, err = s.RunOnce(ctx, TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, pusher.pushCount())
}

func TestTransientFailureLeavesPending(t *testing.T) {
	pusher := newFakePusher()
	pusher.err = remote.ErrUnreachable
	s, mem, _ := newTestSweeper(true, pusher)
	ctx := context.Background()

	tempID := ulid.TempID()
	require.NoError(t, mem.Put(ctx, store.TableCategories, pendingRecord(tempID, "tpl_1/Water")))

	_, err := s.RunOnce(ctx, TriggerManual)
	require.NoError(t, err)

	got, err := mem.Get(ctx, store.TableCategories, tempID)
	require.NoError(t, err)
	assert.Equal(t, store.SyncStatusPending, got.SyncStatus, "transient failures stay pending for the next pass")
}

func TestOnlineTransitionTriggersSweep(t *testing.T) {
	pusher := newFakePusher()
	mem := storetest.NewMemory()
	monitor := netmon.New(nil, time.Second, 0, loggy.NewNoopLogger())

	require.NoError(t, mem.Put(context.Background(), store.TableCategories, pendingRecord(ulid.TempID(), "tpl_1/Water")))

	s := New(mem, pusher, monitor, nil, nil, time.Hour, 100, 100, loggy.NewNoopLogger())
	s.Start(context.Background())
	defer s.Stop()

	monitor.SetOnline(true)

	assert.Eventually(t, func() bool { return pusher.pushCount() == 1 },
		time.Second, 10*time.Millisecond, "reconnecting must trigger an immediate pass")
}

func TestOfflineDeleteThenSweep(t *testing.T) {
	// A delete queued while offline completes on the next pass: the
	// remote delete runs and the tombstone is dropped
	pusher := newFakePusher()
	s, mem, _ := newTestSweeper(true, pusher)
	ctx := context.Background()

	dead := pendingRecord("cat_1", "tpl_1/Water")
	dead.Deleted = true
	require.NoError(t, mem.Put(ctx, store.TableCategories, dead))

	summary, err := s.RunOnce(ctx, TriggerOnline)
	require.NoError(t, err)

	pushed, failed, _ := summary.Totals()
	assert.Equal(t, 1, pushed)
	assert.Zero(t, failed)
	assert.Equal(t, 1, pusher.pushCount())

	_, err = mem.Get(ctx, store.TableCategories, "cat_1")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Zero(t, mem.MustCount(store.TableCategories), mem.Dump(store.TableCategories))
}

func TestSweepReparentsChildrenAfterSwap(t *testing.T) {
	// An assessment and its response both created offline: confirming
	// the assessment must rewrite the response's parent reference before
	// the response itself is pushed
	pusher := newFakePusher()
	pusher.nextID = "asm_real"
	s, mem, _ := newTestSweeper(true, pusher)
	ctx := context.Background()

	parentID := ulid.TempID()
	require.NoError(t, mem.Put(ctx, store.TableAssessments, &store.Record{
		ID:           parentID,
		SyncStatus:   store.SyncStatusPending,
		LocalChanges: true,
		Payload:      json.RawMessage(`{"id":"","template_id":"tpl_1","language":"en","status":"draft"}`),
	}))

	childID := ulid.TempID()
	require.NoError(t, mem.Put(ctx, store.TableResponses, &store.Record{
		ID:           childID,
		NaturalKey:   parentID + "/qr_1",
		ParentID:     parentID,
		SyncStatus:   store.SyncStatusPending,
		LocalChanges: true,
		Payload:      json.RawMessage(`{"id":"","assessment_id":"` + parentID + `","question_revision_id":"qr_1","answer":{"v":1},"version":1}`),
	}))

	_, err := s.RunOnce(ctx, TriggerOnline)
	require.NoError(t, err)

	// Assessments sweep before responses, so the response followed the
	// server-assigned parent id within the same pass
	recs, err := mem.ListByParent(ctx, store.TableResponses, "asm_real")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "asm_real/qr_1", recs[0].NaturalKey)
	assert.Contains(t, string(recs[0].Payload), `"assessment_id":"asm_real"`)

	orphans, err := mem.ListByParent(ctx, store.TableResponses, parentID)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	// The pushed response payload carried the real parent, never the
	// temporary one
	pusher.mu.Lock()
	defer pusher.mu.Unlock()
	for id, payload := range pusher.payloads {
		assert.NotContains(t, payload, parentID, "push %s leaked a temporary parent id", id)
	}
}

func TestTempParentHoldsChildBack(t *testing.T) {
	// A child whose parent never confirms this pass must not be pushed
	// with its temporary parent reference
	pusher := newFakePusher()
	pusher.err = remote.ErrUnreachable
	s, mem, _ := newTestSweeper(true, pusher)
	ctx := context.Background()

	parentID := ulid.TempID()
	require.NoError(t, mem.Put(ctx, store.TableAssessments, &store.Record{
		ID:           parentID,
		SyncStatus:   store.SyncStatusPending,
		LocalChanges: true,
		Payload:      json.RawMessage(`{"id":"","template_id":"tpl_1","language":"en","status":"draft"}`),
	}))

	child := pendingRecord(ulid.TempID(), parentID+"/qr_1")
	child.ParentID = parentID
	require.NoError(t, mem.Put(ctx, store.TableResponses, child))

	summary, err := s.RunOnce(ctx, TriggerManual)
	require.NoError(t, err)

	_, _, skipped := summary.Totals()
	assert.Equal(t, 1, skipped, "the orphan waits instead of pushing")

	// Only the parent reached the pusher
	pusher.mu.Lock()
	defer pusher.mu.Unlock()
	assert.Equal(t, []string{parentID}, pusher.pushes)
}
