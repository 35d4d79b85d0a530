// Package facade exposes the per-entity surface the UI layer consumes.
// Each facade wires the right remote operation and local table through
// the API interceptor, adds entity-specific rules, and bounds
// foreground creation retries.
package facade

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/verdantlabs/verdant/internal/interceptor"
	"github.com/verdantlabs/verdant/internal/loggy"
	"github.com/verdantlabs/verdant/internal/netmon"
	"github.com/verdantlabs/verdant/internal/remote"
	"github.com/verdantlabs/verdant/internal/store"
)

// ErrRetryExhausted is returned when a foreground creation keeps
// failing transiently while online. The local record stays pending and
// the background sweep keeps trying; the caller must surface the
// failure instead of looping.
var ErrRetryExhausted = errors.New("creation retries exhausted")

// errStillQueued drives the bounded retry loop
var errStillQueued = errors.New("mutation still queued")

// Query is the handle a read returns: the fetched data, the error if
// any, a loading flag, and a refetch function
type Query[T any] struct {
	mu      sync.Mutex
	data    T
	err     error
	loading bool
	fetch   func(ctx context.Context) (T, error)
}

func runQuery[T any](ctx context.Context, fetch func(ctx context.Context) (T, error)) *Query[T] {
	q := &Query[T]{fetch: fetch}
	q.Refetch(ctx)
	return q
}

// Data returns the last fetched value
func (q *Query[T]) Data() T {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.data
}

// Err returns the last fetch error
func (q *Query[T]) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Loading reports whether a fetch is in progress
func (q *Query[T]) Loading() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loading
}

// Refetch re-executes the read and replaces the held data
func (q *Query[T]) Refetch(ctx context.Context) {
	q.mu.Lock()
	q.loading = true
	q.mu.Unlock()

	data, err := q.fetch(ctx)

	q.mu.Lock()
	q.data = data
	q.err = err
	q.loading = false
	q.mu.Unlock()
}

// Callbacks carries the caller's success and error continuations
type Callbacks[T any] struct {
	OnSuccess func(T)
	OnError   func(error)
}

func (c Callbacks[T]) success(v T) {
	if c.OnSuccess != nil {
		c.OnSuccess(v)
	}
}

func (c Callbacks[T]) failure(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}

// Facades bundles every per-entity facade over one shared engine
type Facades struct {
	Questions       *Questions
	Categories      *Categories
	Assessments     *Assessments
	Responses       *Responses
	Submissions     *Submissions
	Organizations   *Organizations
	Members         *Members
	Reports         *Reports
	Recommendations *Recommendations
}

// deps holds what every facade needs
type deps struct {
	store   store.Store
	ic      *interceptor.Interceptor
	client  *remote.Client
	monitor *netmon.Monitor
	logger  *loggy.Logger

	maxCreateRetries uint64
	pending          atomic.Int32
}

// New wires the per-entity facades
func New(
	s store.Store,
	ic *interceptor.Interceptor,
	client *remote.Client,
	monitor *netmon.Monitor,
	maxCreateRetries int,
	logger *loggy.Logger,
) *Facades {
	if maxCreateRetries < 1 {
		maxCreateRetries = 3
	}

	d := &deps{
		store:            s,
		ic:               ic,
		client:           client,
		monitor:          monitor,
		logger:           logger,
		maxCreateRetries: uint64(maxCreateRetries),
	}

	return &Facades{
		Questions:       &Questions{d},
		Categories:      &Categories{d},
		Assessments:     &Assessments{d},
		Responses:       &Responses{d},
		Submissions:     &Submissions{d},
		Organizations:   &Organizations{d},
		Members:         &Members{d},
		Reports:         &Reports{d},
		Recommendations: &Recommendations{d},
	}
}

// Pending reports whether any facade mutation is currently in progress
func (d *deps) Pending() bool {
	return d.pending.Load() > 0
}

// mutate runs one interceptor mutation, tracking the pending flag
func (d *deps) mutate(ctx context.Context, op interceptor.Op, table store.Table, optimistic *store.Record, remoteFn interceptor.RemoteMutation) (*interceptor.Result, error) {
	d.pending.Add(1)
	defer d.pending.Add(-1)
	return d.ic.Mutate(ctx, op, table, optimistic, remoteFn)
}

// create runs a creation with a bounded foreground retry. The optimistic
// record gets a client-generated idempotency key so every attempt, and
// the background sweep after it, is deduplicated server-side.
//
// Being offline queues immediately without burning attempts; a
// transient failure while online retries up to the bound; a permanent
// rejection stops at once. Exhausting the bound returns
// ErrRetryExhausted alongside the still-queued result.
func (d *deps) create(ctx context.Context, table store.Table, optimistic *store.Record, remoteFn interceptor.RemoteMutation) (*interceptor.Result, error) {
	d.pending.Add(1)
	defer d.pending.Add(-1)

	if optimistic.IdempotencyKey == "" {
		optimistic.IdempotencyKey = uuid.NewString()
	}

	var res *interceptor.Result
	var mutErr error

	operation := func() error {
		res, mutErr = d.ic.Mutate(ctx, interceptor.OpCreate, table, optimistic, remoteFn)
		if mutErr != nil {
			// Rejected or storage failure; retrying cannot help
			return backoff.Permanent(mutErr)
		}
		if res.Outcome == interceptor.OutcomeQueued && d.monitor.Online() {
			// Reachability says online but the call failed transiently
			return errStillQueued
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(newCreateBackoff(), d.maxCreateRetries-1),
		ctx,
	)

	err := backoff.Retry(operation, policy)
	if err != nil {
		if mutErr != nil {
			return res, mutErr
		}
		d.logger.Warn("Creation retries exhausted", "table", table, "id", optimistic.ID)
		return res, ErrRetryExhausted
	}

	return res, nil
}

func newCreateBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	return b
}
