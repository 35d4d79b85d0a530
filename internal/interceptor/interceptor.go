// Package interceptor coordinates every domain read and write between
// the local store and the remote service. Reads are local-first with a
// write-through fill; writes are optimistic-local-first with remote
// reconciliation. This package is the only one permitted to set a
// record's sync attributes.
package interceptor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/verdantlabs/verdant/internal/loggy"
	"github.com/verdantlabs/verdant/internal/netmon"
	"github.com/verdantlabs/verdant/internal/remote"
	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/transform"
)

// ErrOfflineNoData is returned when a read misses the local store while
// the network is offline
var ErrOfflineNoData = errors.New("no local data available offline")

// Op tags the kind of mutation
type Op string

// Mutation operations
const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Outcome tags how a mutation concluded
type Outcome string

// Mutation outcomes
const (
	// OutcomeConfirmed means the server acknowledged the write; the local
	// record carries the server-assigned state
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeQueued means the write is applied locally and awaits the
	// reconciliation sweep
	OutcomeQueued Outcome = "queued"
	// OutcomeRejected means the server permanently rejected the write
	OutcomeRejected Outcome = "rejected"
)

// Result is the tagged outcome of a mutation. Callers branch on Outcome
// instead of sniffing the returned value's shape.
type Result struct {
	Outcome Outcome
	// Record is the local state after the mutation: the confirmed record,
	// the queued optimistic record, or nil for deletes.
	Record *store.Record
}

// RemoteFetch retrieves one entity from the server, already transformed
// to the locally persisted shape
type RemoteFetch func(ctx context.Context) (*store.Record, error)

// RemoteList retrieves a collection from the server, already transformed
type RemoteList func(ctx context.Context) ([]*store.Record, error)

// RemoteMutation performs the server-side half of a mutation and returns
// the confirmed record, or nil for deletes
type RemoteMutation func(ctx context.Context) (*store.Record, error)

// Interceptor wraps the local store and network monitor. Constructed
// explicitly and injected; no package-level instance exists.
type Interceptor struct {
	store   store.Store
	monitor *netmon.Monitor
	logger  *loggy.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates an interceptor
func New(s store.Store, monitor *netmon.Monitor, logger *loggy.Logger) *Interceptor {
	return &Interceptor{
		store:    s,
		monitor:  monitor,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

// Get reads an entity local-first. A local hit wins unconditionally,
// except a tombstone, which reads as not found; a miss while online
// triggers a remote fetch whose result is stored before being returned
// (write-through fill); a miss while offline fails with
// ErrOfflineNoData.
func (i *Interceptor) Get(ctx context.Context, table store.Table, id string, fetch RemoteFetch) (*store.Record, error) {
	rec, err := i.store.Get(ctx, table, id)
	if err == nil {
		if rec.Deleted {
			// A tombstone hides the record; refetching it here would
			// resurrect a delete the sweep has not completed yet
			return nil, store.ErrNotFound
		}
		return rec, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if !i.monitor.Online() {
		return nil, fmt.Errorf("%w: %s/%s", ErrOfflineNoData, table, id)
	}
	if fetch == nil {
		return nil, store.ErrNotFound
	}

	fetched, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s/%s: %w", table, id, err)
	}

	if err := i.store.Put(ctx, table, fetched); err != nil {
		// The fetch succeeded; a failed cache fill should not fail the read
		i.logger.Warn("Cache fill failed", "table", table, "id", fetched.ID, "error", err)
	}

	return fetched, nil
}

// List reads a collection local-first. A non-empty local table wins; an
// empty one counts as a miss and follows the same fill-or-fail policy
// as Get.
func (i *Interceptor) List(ctx context.Context, table store.Table, fetch RemoteList) ([]*store.Record, error) {
	recs, err := i.store.List(ctx, table)
	if err != nil {
		return nil, err
	}
	return i.resolveList(ctx, table, recs, fetch)
}

// ListByParent reads the children of one parent local-first, with the
// same fill-or-fail policy as List.
func (i *Interceptor) ListByParent(ctx context.Context, table store.Table, parentID string, fetch RemoteList) ([]*store.Record, error) {
	recs, err := i.store.ListByParent(ctx, table, parentID)
	if err != nil {
		return nil, err
	}
	return i.resolveList(ctx, table, recs, fetch)
}

// resolveList applies the shared local-first policy to a local scan.
// Tombstones are hidden from the caller but still suppress the cache
// fill for their ids, so a pending delete cannot be resurrected by a
// remote listing that still contains the record.
func (i *Interceptor) resolveList(ctx context.Context, table store.Table, recs []*store.Record, fetch RemoteList) ([]*store.Record, error) {
	live := make([]*store.Record, 0, len(recs))
	tombstoned := make(map[string]struct{})
	for _, rec := range recs {
		if rec.Deleted {
			tombstoned[rec.ID] = struct{}{}
			continue
		}
		live = append(live, rec)
	}
	if len(live) > 0 {
		return live, nil
	}

	if !i.monitor.Online() {
		return nil, fmt.Errorf("%w: %s", ErrOfflineNoData, table)
	}
	if fetch == nil {
		return live, nil
	}

	fetched, err := fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", table, err)
	}

	visible := make([]*store.Record, 0, len(fetched))
	for _, rec := range fetched {
		if _, dead := tombstoned[rec.ID]; dead {
			continue
		}
		visible = append(visible, rec)
		if err := i.store.Put(ctx, table, rec); err != nil {
			i.logger.Warn("Cache fill failed", "table", table, "id", rec.ID, "error", err)
			break
		}
	}

	return visible, nil
}

// Mutate applies a mutation optimistically to the local store, then
// attempts the remote half when online. The local write completes
// before Mutate returns, so a caller re-reading the store immediately
// afterwards sees its own write.
//
// Remote success replaces the optimistic record with the server's
// authoritative copy (for creates, swapping out the temporary id in one
// transaction). A transient remote failure or being offline leaves the
// record pending and returns OutcomeQueued without an error; the
// reconciliation sweep owns completion from there. A permanent remote
// rejection marks the record failed and returns OutcomeRejected with
// the error.
func (i *Interceptor) Mutate(ctx context.Context, op Op, table store.Table, optimistic *store.Record, mutation RemoteMutation) (*Result, error) {
	if op == OpDelete {
		return i.mutateDelete(ctx, table, optimistic, mutation)
	}

	optimistic.SyncStatus = store.SyncStatusPending
	optimistic.LocalChanges = true

	if err := i.store.Put(ctx, table, optimistic); err != nil {
		return nil, fmt.Errorf("applying optimistic write: %w", err)
	}

	i.markInFlight(optimistic.ID)
	defer i.clearInFlight(optimistic.ID)

	if !i.monitor.Online() {
		i.logger.Debug("Mutation queued offline", "table", table, "id", optimistic.ID, "op", op)
		return &Result{Outcome: OutcomeQueued, Record: optimistic}, nil
	}

	confirmed, err := mutation(ctx)
	if err != nil {
		return i.reconcileFailure(ctx, table, optimistic, err)
	}

	confirmed.SyncStatus = store.SyncStatusSynced
	confirmed.LocalChanges = false

	if confirmed.ID != optimistic.ID {
		if err := i.store.Swap(ctx, table, optimistic.ID, confirmed); err != nil {
			return nil, fmt.Errorf("swapping confirmed record: %w", err)
		}
		i.reparentChildren(ctx, table, optimistic.ID, confirmed.ID)
	} else {
		if err := i.store.Put(ctx, table, confirmed); err != nil {
			return nil, fmt.Errorf("storing confirmed record: %w", err)
		}
	}

	return &Result{Outcome: OutcomeConfirmed, Record: confirmed}, nil
}

// mutateDelete hides the record immediately, then attempts the remote
// delete. A temporary record never reached the server, so its local
// copy is simply removed. A synced record becomes a pending tombstone
// first; only a confirmed remote delete removes the row, so an offline
// or transiently failed delete stays queued for the sweep.
func (i *Interceptor) mutateDelete(ctx context.Context, table store.Table, target *store.Record, mutation RemoteMutation) (*Result, error) {
	if target.IsTemp() || mutation == nil {
		if err := i.store.Delete(ctx, table, target.ID); err != nil {
			return nil, fmt.Errorf("applying local delete: %w", err)
		}
		return &Result{Outcome: OutcomeConfirmed}, nil
	}

	target.Deleted = true
	target.SyncStatus = store.SyncStatusPending
	target.LocalChanges = true
	if err := i.store.Put(ctx, table, target); err != nil {
		return nil, fmt.Errorf("applying local delete: %w", err)
	}

	i.markInFlight(target.ID)
	defer i.clearInFlight(target.ID)

	if !i.monitor.Online() {
		i.logger.Debug("Delete queued offline", "table", table, "id", target.ID)
		return &Result{Outcome: OutcomeQueued}, nil
	}

	if _, err := mutation(ctx); err != nil {
		if remote.IsPermanent(err) {
			target.SyncStatus = store.SyncStatusFailed
			if perr := i.store.Put(ctx, table, target); perr != nil {
				i.logger.Error("Failed to mark delete as rejected", "table", table, "id", target.ID, "error", perr)
			}
			i.logger.Warn("Delete rejected by server", "table", table, "id", target.ID, "error", err)
			return &Result{Outcome: OutcomeRejected}, err
		}
		i.logger.Debug("Delete queued after transient failure", "table", table, "id", target.ID, "error", err)
		return &Result{Outcome: OutcomeQueued}, nil
	}

	if err := i.store.Delete(ctx, table, target.ID); err != nil {
		return nil, fmt.Errorf("dropping confirmed delete: %w", err)
	}

	return &Result{Outcome: OutcomeConfirmed}, nil
}

// reconcileFailure classifies a failed remote mutation with the shared
// error taxonomy. Transient failures stay queued for the sweep;
// permanent rejections are marked failed so nothing retries them.
func (i *Interceptor) reconcileFailure(ctx context.Context, table store.Table, optimistic *store.Record, cause error) (*Result, error) {
	if remote.IsPermanent(cause) {
		optimistic.SyncStatus = store.SyncStatusFailed
		if err := i.store.Put(ctx, table, optimistic); err != nil {
			i.logger.Error("Failed to mark record as rejected", "table", table, "id", optimistic.ID, "error", err)
		}
		i.logger.Warn("Mutation rejected by server", "table", table, "id", optimistic.ID, "error", cause)
		return &Result{Outcome: OutcomeRejected, Record: optimistic}, cause
	}

	i.logger.Debug("Mutation queued after transient failure", "table", table, "id", optimistic.ID, "error", cause)
	return &Result{Outcome: OutcomeQueued, Record: optimistic}, nil
}

// reparentChildren rewrites child records that still reference a
// swapped-out temporary parent id. Children written while the parent
// was unconfirmed point at the old id; after the swap they must follow
// the server-assigned one or their own push would leak a temporary id.
func (i *Interceptor) reparentChildren(ctx context.Context, parent store.Table, oldID, newID string) {
	for _, child := range transform.ChildTables(parent) {
		recs, err := i.store.ListByParent(ctx, child, oldID)
		if err != nil {
			i.logger.Error("Reparent scan failed", "table", child, "parent", oldID, "error", err)
			continue
		}
		for _, rec := range recs {
			updated, err := transform.Reparent(child, rec, newID)
			if err != nil {
				i.logger.Error("Reparent failed", "table", child, "id", rec.ID, "error", err)
				continue
			}
			if err := i.store.Put(ctx, child, updated); err != nil {
				i.logger.Error("Reparent write failed", "table", child, "id", rec.ID, "error", err)
			}
		}
	}
}

// InFlight reports whether a mutation for the record id is currently in
// progress. The reconciliation sweep consults this to avoid racing a
// foreground mutation; it is best-effort, not a lock.
func (i *Interceptor) InFlight(id string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.inflight[id]
	return ok
}

func (i *Interceptor) markInFlight(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.inflight[id] = struct{}{}
}

func (i *Interceptor) clearInFlight(id string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.inflight, id)
}
