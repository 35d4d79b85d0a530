// Package netmon tracks whether the remote service is reachable and
// fans connectivity transitions out to subscribers. It is a passive
// observer: it never touches stored records.
package netmon

import (
	"context"
	"sync"
	"time"

	"github.com/verdantlabs/verdant/internal/loggy"
)

// Prober checks connectivity, typically against the server health
// endpoint. A nil error means the service is reachable.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a function to the Prober interface
type ProbeFunc func(ctx context.Context) error

// Probe implements Prober
func (f ProbeFunc) Probe(ctx context.Context) error {
	return f(ctx)
}

// Subscriber receives connectivity transitions. Called with true on the
// offline-to-online transition (after the debounce delay) and false on
// the online-to-offline transition.
type Subscriber func(online bool)

// Monitor holds the process-wide online/offline state. It is built and
// owned by the application, not ambient package state, so tests can run
// isolated instances.
type Monitor struct {
	mu      sync.RWMutex
	online  bool
	subs    map[int]Subscriber
	nextSub int

	prober        Prober
	probeInterval time.Duration
	debounce      time.Duration
	probeTimeout  time.Duration

	logger *loggy.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a monitor. The initial state is offline until the first
// probe or SetOnline call says otherwise.
func New(prober Prober, probeInterval, debounce time.Duration, logger *loggy.Logger) *Monitor {
	return &Monitor{
		subs:          make(map[int]Subscriber),
		prober:        prober,
		probeInterval: probeInterval,
		debounce:      debounce,
		probeTimeout:  5 * time.Second,
		logger:        logger,
	}
}

// Online reports the current connectivity state
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Subscribe registers a subscriber and returns an unsubscribe function
func (m *Monitor) Subscribe(fn Subscriber) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

// SetOnline records a connectivity transition. No-op when the state is
// unchanged. The offline-to-online notification is delayed by the
// debounce interval so dependent subsystems settle before the
// reconciliation sweep fires; if connectivity drops again within the
// window, the notification is suppressed.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	m.mu.Unlock()

	if online {
		m.logger.Info("Connectivity restored", "debounce", m.debounce)
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if m.debounce > 0 {
				time.Sleep(m.debounce)
			}
			if !m.Online() {
				// Went offline again during the debounce window
				return
			}
			m.notify(true)
		}()
		return
	}

	m.logger.Info("Connectivity lost")
	m.notify(false)
}

func (m *Monitor) notify(online bool) {
	m.mu.RLock()
	subs := make([]Subscriber, 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.RUnlock()

	for _, fn := range subs {
		fn(online)
	}
}

// Start begins the periodic connectivity probe. An immediate probe
// initializes the state before the first tick.
func (m *Monitor) Start(ctx context.Context) {
	if m.prober == nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	m.probe(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.probeInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	err := m.prober.Probe(probeCtx)
	if err != nil && ctx.Err() != nil {
		// Shutting down, not a connectivity signal
		return
	}
	m.SetOnline(err == nil)
}

// Stop halts the prober and waits for in-flight notifications
func (m *Monitor) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
