package agent

import (
	"sync"

	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/events"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// Manager is the explicit, reader-writer-protected table of sessions the
// spec calls for in place of process-level global state (§9 "Global
// mutable state", §4.6 "Shared-resource policy"): session lookups take
// the read lock, create/close take the write lock, and every session's
// own metrics remain lock-free atomics.
type Manager struct {
	limits GlobalLimits
	events *events.Sink
	bucket *leakyBucket

	mu       sync.RWMutex
	sessions map[ids.SessionId]*Session
	contextBlockTotal int
}

// NewManager builds a Manager enforcing limits, emitting events to sink.
func NewManager(limits GlobalLimits, sink *events.Sink) *Manager {
	if sink == nil {
		sink = events.Null()
	}
	return &Manager{
		limits:   limits,
		events:   sink,
		bucket:   newLeakyBucket(limits.MaxOpsPerSecond),
		sessions: map[ids.SessionId]*Session{},
	}
}

// CreateSession opens a new Active session over doc, enforcing the
// global concurrent-session ceiling (§4.6.1 "create_session").
func (m *Manager) CreateSession(doc *document.Document, cfg Config) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limits.MaxConcurrentSessions > 0 && len(m.sessions) >= m.limits.MaxConcurrentSessions {
		return nil, ucerr.New(ucerr.KindResource, ucerr.CodeResourceExceeded, "max concurrent sessions reached")
	}
	s := newSession(doc, cfg, m.events, m)
	m.sessions[s.ID] = s
	return s, nil
}

// Get returns the session for id, if still tracked (closed sessions are
// removed from the table, not merely flagged).
func (m *Manager) Get(id ids.SessionId) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Close transitions a session to Closed and removes it from the table.
func (m *Manager) Close(id ids.SessionId) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ucerr.NotFound(string(id))
	}
	s.mu.Lock()
	s.status = StatusClosed
	s.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// Count returns the number of sessions currently tracked.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// allowGlobalOp enforces the leaky-bucket max-ops-per-second ceiling
// shared across every session this Manager tracks.
func (m *Manager) allowGlobalOp() error {
	if !m.bucket.allow() {
		return ucerr.New(ucerr.KindResource, ucerr.CodeResourceExceeded, "global operation rate limit exceeded")
	}
	return nil
}

// reserveContextBlocks enforces the global max-total-context-blocks
// ceiling before a context_add/context_add_results event is emitted.
func (m *Manager) reserveContextBlocks(n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.limits.MaxTotalContextBlocks > 0 && m.contextBlockTotal+n > m.limits.MaxTotalContextBlocks {
		return ucerr.New(ucerr.KindResource, ucerr.CodeResourceExceeded, "global context block ceiling exceeded")
	}
	m.contextBlockTotal += n
	return nil
}

// releaseContextBlocks gives back n blocks reserved against the global
// ceiling (context_remove; context_clear releases nothing).
func (m *Manager) releaseContextBlocks(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contextBlockTotal -= n
	if m.contextBlockTotal < 0 {
		m.contextBlockTotal = 0
	}
}
