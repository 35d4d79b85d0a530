// Package storetest provides an in-memory Store for tests that exercise
// the sync engine above the persistence layer
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/verdantlabs/verdant/internal/store"
)

// Memory is a map-backed store.Store. An injectable failure error lets
// tests simulate storage unavailability.
type Memory struct {
	mu     sync.Mutex
	tables map[store.Table]map[string]*store.Record

	// FailWith, when set, is returned by every operation
	FailWith error
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{tables: make(map[store.Table]map[string]*store.Record)}
}

func (m *Memory) table(t store.Table) map[string]*store.Record {
	if m.tables[t] == nil {
		m.tables[t] = make(map[string]*store.Record)
	}
	return m.tables[t]
}

func clone(rec *store.Record) *store.Record {
	cp := *rec
	cp.Payload = append([]byte(nil), rec.Payload...)
	return &cp
}

// Get implements store.Store
func (m *Memory) Get(_ context.Context, table store.Table, id string) (*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	rec, ok := m.table(table)[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(rec), nil
}

// List implements store.Store
func (m *Memory) List(_ context.Context, table store.Table) ([]*store.Record, error) {
	return m.listWhere(table, func(*store.Record) bool { return true })
}

// ListByParent implements store.Store
func (m *Memory) ListByParent(_ context.Context, table store.Table, parentID string) ([]*store.Record, error) {
	return m.listWhere(table, func(r *store.Record) bool { return r.ParentID == parentID })
}

// ListPending implements store.Store
func (m *Memory) ListPending(_ context.Context, table store.Table) ([]*store.Record, error) {
	return m.listWhere(table, func(r *store.Record) bool { return r.SyncStatus == store.SyncStatusPending })
}

// FindByNaturalKey implements store.Store
func (m *Memory) FindByNaturalKey(_ context.Context, table store.Table, key string) ([]*store.Record, error) {
	if key == "" {
		return nil, nil
	}
	return m.listWhere(table, func(r *store.Record) bool { return r.NaturalKey == key })
}

func (m *Memory) listWhere(table store.Table, keep func(*store.Record) bool) ([]*store.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}

	var out []*store.Record
	for _, rec := range m.table(table) {
		if keep(rec) {
			out = append(out, clone(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// CountByStatus implements store.Store
func (m *Memory) CountByStatus(_ context.Context, table store.Table, status store.SyncStatus) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return 0, m.FailWith
	}

	count := 0
	for _, rec := range m.table(table) {
		if rec.SyncStatus == status {
			count++
		}
	}
	return count, nil
}

// Put implements store.Store
func (m *Memory) Put(_ context.Context, table store.Table, rec *store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}

	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	m.table(table)[rec.ID] = clone(rec)
	return nil
}

// Delete implements store.Store
func (m *Memory) Delete(_ context.Context, table store.Table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}

	delete(m.table(table), id)
	return nil
}

// Swap implements store.Store
func (m *Memory) Swap(_ context.Context, table store.Table, tempID string, confirmed *store.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return m.FailWith
	}

	now := time.Now()
	if confirmed.CreatedAt.IsZero() {
		confirmed.CreatedAt = now
	}
	confirmed.UpdatedAt = now

	tbl := m.table(table)
	delete(tbl, tempID)
	tbl[confirmed.ID] = clone(confirmed)
	return nil
}

// DeleteDuplicates implements store.Store
func (m *Memory) DeleteDuplicates(_ context.Context, table store.Table, naturalKey, keepID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return 0, m.FailWith
	}
	if naturalKey == "" {
		return 0, nil
	}

	tbl := m.table(table)
	removed := 0
	for id, rec := range tbl {
		if rec.NaturalKey == naturalKey && id != keepID {
			delete(tbl, id)
			removed++
		}
	}
	return removed, nil
}

// MustCount returns the number of records in a table, for assertions
func (m *Memory) MustCount(table store.Table) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.table(table))
}

// Dump returns a readable listing of a table, for failure messages
func (m *Memory) Dump(table store.Table) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := ""
	for id, rec := range m.table(table) {
		out += fmt.Sprintf("%s status=%s key=%q\n", id, rec.SyncStatus, rec.NaturalKey)
	}
	return out
}
