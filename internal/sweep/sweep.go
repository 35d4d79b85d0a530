// Package sweep implements the reconciliation sweep: the background
// pass that pushes locally pending records to the remote service,
// swaps temporary identifiers for server-assigned ones, and removes
// duplicate records sharing a natural key.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/verdantlabs/verdant/internal/loggy"
	"github.com/verdantlabs/verdant/internal/netmon"
	"github.com/verdantlabs/verdant/internal/remote"
	"github.com/verdantlabs/verdant/internal/store"
	"github.com/verdantlabs/verdant/internal/transform"
	"github.com/verdantlabs/verdant/internal/ulid"
)

// ErrOffline is returned when a sweep is requested while disconnected
var ErrOffline = errors.New("sweep requires connectivity")

// InFlightChecker reports whether a foreground mutation is currently
// handling a record. Satisfied by the API interceptor.
type InFlightChecker interface {
	InFlight(id string) bool
}

// TableResult summarizes one table's share of a sweep pass
type TableResult struct {
	Table   store.Table
	Pushed  int
	Failed  int
	Skipped int
}

// Summary is the outcome of one full sweep pass
type Summary struct {
	Trigger    Trigger
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []TableResult
}

// Totals sums the per-table counters
func (s *Summary) Totals() (pushed, failed, skipped int) {
	for _, r := range s.Results {
		pushed += r.Pushed
		failed += r.Failed
		skipped += r.Skipped
	}
	return pushed, failed, skipped
}

// Sweeper runs reconciliation passes on a fixed interval while online
// and immediately on the offline-to-online transition
type Sweeper struct {
	store    store.Store
	pusher   Pusher
	monitor  *netmon.Monitor
	inflight InFlightChecker
	logs     LogRepository
	limiter  *rate.Limiter
	interval time.Duration
	batch    int
	logger   *loggy.Logger

	runMu  sync.Mutex
	cancel context.CancelFunc
	unsub  func()
	wg     sync.WaitGroup
}

// New creates a sweeper. logs may be nil when pass records are not wanted.
func New(
	s store.Store,
	pusher Pusher,
	monitor *netmon.Monitor,
	inflight InFlightChecker,
	logs LogRepository,
	interval time.Duration,
	pushesPerSecond float64,
	pushBurst int,
	logger *loggy.Logger,
) *Sweeper {
	if pushesPerSecond <= 0 {
		pushesPerSecond = 5
	}
	if pushBurst <= 0 {
		pushBurst = 1
	}

	return &Sweeper{
		store:    s,
		pusher:   pusher,
		monitor:  monitor,
		inflight: inflight,
		logs:     logs,
		limiter:  rate.NewLimiter(rate.Limit(pushesPerSecond), pushBurst),
		interval: interval,
		logger:   logger,
	}
}

// SetBatchLimit caps how many pending records one pass pushes per
// table. Zero means no cap. Records beyond the cap stay pending and
// are picked up by the next pass.
func (s *Sweeper) SetBatchLimit(n int) {
	s.batch = n
}

// Start begins the periodic sweep loop and subscribes to connectivity
// transitions so reconnecting triggers an immediate pass
func (s *Sweeper) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.unsub = s.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if _, err := s.RunOnce(ctx, TriggerOnline); err != nil && !errors.Is(err, ErrOffline) {
				s.logger.Error("Online-triggered sweep failed", "error", err)
			}
		}()
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx, TriggerInterval); err != nil && !errors.Is(err, ErrOffline) {
					s.logger.Error("Periodic sweep failed", "error", err)
				}
			}
		}
	}()
}

// Stop halts the sweep loop and waits for an in-progress pass
func (s *Sweeper) Stop() {
	if s.unsub != nil {
		s.unsub()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// RunOnce executes a single sweep pass over every entity table. Passes
// are serialized: a tick that fires while a pass is running waits for
// it rather than overlapping.
func (s *Sweeper) RunOnce(ctx context.Context, trigger Trigger) (*Summary, error) {
	if !s.monitor.Online() {
		return nil, ErrOffline
	}

	s.runMu.Lock()
	defer s.runMu.Unlock()

	summary := &Summary{Trigger: trigger, StartedAt: time.Now()}

	var passLog *Log
	if s.logs != nil {
		var err error
		passLog, err = s.logs.StartLog(ctx, trigger)
		if err != nil {
			s.logger.Warn("Failed to start sweep log", "error", err)
		}
	}

	var firstErr error
	for _, table := range store.Tables {
		result, err := s.sweepTable(ctx, table)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			s.logger.Error("Sweeping table failed", "table", table, "error", err)
		}
		if result.Pushed+result.Failed+result.Skipped > 0 {
			summary.Results = append(summary.Results, result)
		}

		if ctx.Err() != nil {
			firstErr = ctx.Err()
			break
		}
	}

	summary.FinishedAt = time.Now()

	if passLog != nil {
		passLog.Pushed, passLog.Failed, passLog.Skipped = summary.Totals()
		if firstErr != nil {
			passLog.Error = firstErr.Error()
		}
		if err := s.logs.CompleteLog(ctx, passLog); err != nil {
			s.logger.Warn("Failed to complete sweep log", "error", err)
		}
	}

	pushed, failed, skipped := summary.Totals()
	if pushed+failed+skipped > 0 {
		s.logger.Info("Sweep pass complete",
			"trigger", trigger,
			"pushed", pushed,
			"failed", failed,
			"skipped", skipped,
		)
	}

	return summary, firstErr
}

// sweepTable pushes every pending record of one table
func (s *Sweeper) sweepTable(ctx context.Context, table store.Table) (TableResult, error) {
	result := TableResult{Table: table}

	pending, err := s.store.ListPending(ctx, table)
	if err != nil {
		return result, fmt.Errorf("listing pending records: %w", err)
	}
	if s.batch > 0 && len(pending) > s.batch {
		pending = pending[:s.batch]
	}

	for _, rec := range pending {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		// A concurrent foreground mutation already owns this record
		if s.inflight != nil && s.inflight.InFlight(rec.ID) {
			result.Skipped++
			continue
		}

		if err := s.pushRecord(ctx, table, rec, &result); err != nil {
			return result, err
		}
	}

	return result, nil
}

// pushRecord pushes one pending record and reconciles the local copy
func (s *Sweeper) pushRecord(ctx context.Context, table store.Table, rec *store.Record, result *TableResult) error {
	// The pending list can go stale within a pass: an earlier push's
	// duplicate cleanup may have removed this record already
	current, err := s.store.Get(ctx, table, rec.ID)
	if errors.Is(err, store.ErrNotFound) {
		result.Skipped++
		return nil
	}
	if err != nil {
		return fmt.Errorf("rechecking record: %w", err)
	}
	if !current.IsPending() {
		result.Skipped++
		return nil
	}
	rec = current

	// A child whose parent is still unconfirmed cannot be pushed: its
	// parent reference is a temporary id the server has never seen.
	// Confirming the parent rewrites the reference, and tables sweep
	// parents before children, so this usually resolves within a pass.
	if ulid.IsTempID(rec.ParentID) {
		result.Skipped++
		return nil
	}

	// Creates carry a stable idempotency key; mint one on the first
	// attempt and persist it so every retry reuses it
	if rec.IsTemp() && rec.IdempotencyKey == "" {
		rec.IdempotencyKey = uuid.NewString()
		if err := s.store.Put(ctx, table, rec); err != nil {
			return fmt.Errorf("persisting idempotency key: %w", err)
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	confirmed, err := s.pusher.Push(ctx, table, rec)
	if err != nil {
		return s.handlePushFailure(ctx, table, rec, err, result)
	}

	// A tombstone push returns no confirmed record; the remote delete
	// went through, so the local row can finally go
	if rec.Deleted {
		if err := s.store.Delete(ctx, table, rec.ID); err != nil {
			return fmt.Errorf("dropping confirmed delete: %w", err)
		}
		result.Pushed++
		return nil
	}

	confirmed.SyncStatus = store.SyncStatusSynced
	confirmed.LocalChanges = false
	confirmed.IdempotencyKey = ""

	if confirmed.ID != rec.ID {
		if err := s.store.Swap(ctx, table, rec.ID, confirmed); err != nil {
			return fmt.Errorf("swapping confirmed record: %w", err)
		}
		s.reparentChildren(ctx, table, rec.ID, confirmed.ID)
	} else {
		if err := s.store.Put(ctx, table, confirmed); err != nil {
			return fmt.Errorf("storing confirmed record: %w", err)
		}
	}

	// Retries can accumulate several temporary copies of one logical
	// entity; keep only the just-confirmed record for its natural key
	if confirmed.NaturalKey != "" {
		if _, err := s.store.DeleteDuplicates(ctx, table, confirmed.NaturalKey, confirmed.ID); err != nil {
			s.logger.Warn("Duplicate cleanup failed", "table", table, "natural_key", confirmed.NaturalKey, "error", err)
		}
	}

	result.Pushed++
	return nil
}

// reparentChildren rewrites child records still referencing a
// swapped-out temporary parent id so their own pushes carry the
// server-assigned one
func (s *Sweeper) reparentChildren(ctx context.Context, parent store.Table, oldID, newID string) {
	for _, child := range transform.ChildTables(parent) {
		recs, err := s.store.ListByParent(ctx, child, oldID)
		if err != nil {
			s.logger.Error("Reparent scan failed", "table", child, "parent", oldID, "error", err)
			continue
		}
		for _, rec := range recs {
			updated, err := transform.Reparent(child, rec, newID)
			if err != nil {
				s.logger.Error("Reparent failed", "table", child, "id", rec.ID, "error", err)
				continue
			}
			if err := s.store.Put(ctx, child, updated); err != nil {
				s.logger.Error("Reparent write failed", "table", child, "id", rec.ID, "error", err)
			}
		}
	}
}

// handlePushFailure applies the shared error taxonomy: permanent
// rejections are marked failed and never retried; transient failures
// stay pending for the next pass; unsupported pushes are skipped.
func (s *Sweeper) handlePushFailure(ctx context.Context, table store.Table, rec *store.Record, cause error, result *TableResult) error {
	if errors.Is(cause, ErrPushUnsupported) {
		result.Skipped++
		return nil
	}

	if remote.IsPermanent(cause) {
		rec.SyncStatus = store.SyncStatusFailed
		if err := s.store.Put(ctx, table, rec); err != nil {
			return fmt.Errorf("marking record failed: %w", err)
		}
		s.logger.Warn("Record permanently rejected", "table", table, "id", rec.ID, "error", cause)
		result.Failed++
		return nil
	}

	s.logger.Debug("Push failed, record stays pending", "table", table, "id", rec.ID, "error", cause)
	result.Failed++
	return nil
}
