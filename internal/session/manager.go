// Package session tracks the live pipeline of each session and expires idle
// ones.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/bakeyeon/sentiment-translator/internal/domain"
	"github.com/bakeyeon/sentiment-translator/internal/pipeline"
)

const sweepInterval = time.Minute

// Factory builds the orchestrator for a new session. Injected so tests can
// substitute the provider and sink.
type Factory func(id uuid.UUID) *pipeline.Orchestrator

type entry struct {
	orch     *pipeline.Orchestrator
	lastSeen time.Time
}

// Manager owns the session map. Sessions are independent of one another;
// there is no cross-session state. A session that goes untouched for the
// idle TTL is stopped and dropped by a background sweep.
type Manager struct {
	factory  Factory
	clock    clockwork.Clock
	ttl      time.Duration
	onExpire func(id uuid.UUID)

	mu       sync.Mutex
	sessions map[uuid.UUID]*entry

	stopCh   chan struct{}
	stopOnce sync.Once
	sweepWg  sync.WaitGroup
}

// NewManager starts the sweep loop. onExpire, if non-nil, runs after an idle
// session is removed so downstream state keyed by session ID can be released.
func NewManager(factory Factory, clock clockwork.Clock, ttl time.Duration, onExpire func(id uuid.UUID)) *Manager {
	m := &Manager{
		factory:  factory,
		clock:    clock,
		ttl:      ttl,
		onExpire: onExpire,
		sessions: make(map[uuid.UUID]*entry),
		stopCh:   make(chan struct{}),
	}

	// Create the ticker before the goroutine starts so a fake clock advanced
	// immediately after NewManager returns still delivers the tick.
	ticker := m.clock.NewTicker(sweepInterval)
	m.sweepWg.Add(1)
	go m.sweepLoop(ticker)
	return m
}

// Create registers a new session and starts its orchestrator.
func (m *Manager) Create() (uuid.UUID, *pipeline.Orchestrator) {
	id := uuid.New()
	orch := m.factory(id)
	orch.Start()

	m.mu.Lock()
	m.sessions[id] = &entry{orch: orch, lastSeen: m.clock.Now()}
	count := len(m.sessions)
	m.mu.Unlock()

	slog.Info("Session created", "session_id", id.String(), "active_sessions", count)
	return id, orch
}

// Get returns the session's orchestrator and refreshes its idle timer.
func (m *Manager) Get(id uuid.UUID) (*pipeline.Orchestrator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	e.lastSeen = m.clock.Now()
	return e.orch, nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Stop halts the sweep loop and every live orchestrator.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
		m.sweepWg.Wait()

		m.mu.Lock()
		orphans := make([]*entry, 0, len(m.sessions))
		for id, e := range m.sessions {
			orphans = append(orphans, e)
			delete(m.sessions, id)
		}
		m.mu.Unlock()

		for _, e := range orphans {
			e.orch.Stop()
		}
	})
}

func (m *Manager) sweepLoop(ticker clockwork.Ticker) {
	defer m.sweepWg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			m.sweep()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) sweep() {
	now := m.clock.Now()

	type expiredEntry struct {
		id   uuid.UUID
		orch *pipeline.Orchestrator
	}

	m.mu.Lock()
	var expired []expiredEntry
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) >= m.ttl {
			expired = append(expired, expiredEntry{id: id, orch: e.orch})
			delete(m.sessions, id)
			slog.Info("Idle session expired", "session_id", id.String())
		}
	}
	m.mu.Unlock()

	// Stop outside the lock; orchestrator shutdown waits on its actor.
	for _, e := range expired {
		e.orch.Stop()
		if m.onExpire != nil {
			m.onExpire(e.id)
		}
	}
}
