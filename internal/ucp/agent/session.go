// Package agent implements the agent traversal core (§4.6): sessions,
// cursor/neighborhood tracking, the ten traversal and context
// operations, and the safety substrate that bounds them. A Session is a
// stateful view over one *document.Document; the Manager is the
// explicit, reader-writer-protected table of sessions the spec requires
// in place of process-wide state (§9 "Global mutable state"), built on
// the same sync.RWMutex discipline the teacher's lockManager centralizes
// (nanostore/lock_manager.go).
package agent

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/arthur-debert/ucp/internal/ucp/agent/search"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/events"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// Capability is a bit-flag granting a session permission to perform a
// class of operation (§4.6.1).
type Capability uint32

const (
	CapTraverse Capability = 1 << iota
	CapSearch
	CapModifyContext
	CapCoordinate
)

// Has reports whether c includes every flag in want.
func (c Capability) Has(want Capability) bool { return c&want == want }

// Capabilities bundles a session's permission bits with the structured
// constraints the spec calls out separately: the edge types FOLLOW may
// traverse, and the ceiling EXPAND may not pass.
type Capabilities struct {
	Bits             Capability
	PermittedEdges   map[document.EdgeType]struct{}
	MaxExpandDepth   int
}

// DefaultCapabilities grants every bit, no edge-type restriction, and a
// conservative expansion ceiling.
func DefaultCapabilities() Capabilities {
	return Capabilities{
		Bits:           CapTraverse | CapSearch | CapModifyContext | CapCoordinate,
		PermittedEdges: nil, // nil means "all edge types permitted"
		MaxExpandDepth: 8,
	}
}

func (c Capabilities) edgePermitted(t document.EdgeType) bool {
	if c.PermittedEdges == nil {
		return true
	}
	_, ok := c.PermittedEdges[t]
	return ok
}

// Limits are the per-session ceilings a caller may tighten on creation
// (§4.6.1).
type Limits struct {
	MaxTokensHint        int
	MaxContextBlocksHint int
	MaxExpandDepth       int
	MaxResultsPerOp      int
	InactivityTimeout    time.Duration
}

// DefaultLimits mirrors the conservative ceilings used when a caller
// does not supply its own; internal/config overrides these from the
// resolved configuration.
var DefaultLimits = Limits{
	MaxTokensHint:        8_000,
	MaxContextBlocksHint: 200,
	MaxExpandDepth:       8,
	MaxResultsPerOp:      100,
	InactivityTimeout:    30 * time.Minute,
}

// Status is a session's lifecycle state (§4.6.1).
type Status int32

const (
	StatusActive Status = iota
	StatusExpired
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusExpired:
		return "expired"
	case StatusClosed:
		return "closed"
	}
	return "unknown"
}

// Metrics are the atomic per-session counters the spec requires need no
// lock (§4.6 "Shared-resource policy").
type Metrics struct {
	TraversalOps   int64
	SearchOps      int64
	BlocksRead     int64
	ContextAdds    int64
	ContextRemoves int64
}

func (m *Metrics) incr(field *int64) { atomic.AddInt64(field, 1) }

// Budget holds per-session operation allowances that decrement and
// never refill within a session's lifetime (§4.6.4 "Operation Budget").
type Budget struct {
	traversalOps int64
	searchOps    int64
	blocksRead   int64
}

// NewBudget seeds a Budget from limits; a zero MaxResultsPerOp means
// unlimited in each counter (treated as a very large allowance).
func NewBudget(limits Limits) *Budget {
	n := int64(limits.MaxResultsPerOp)
	if n <= 0 {
		n = 1 << 30
	}
	return &Budget{traversalOps: n * 100, searchOps: n * 10, blocksRead: n * 1000}
}

func (b *Budget) spend(counter *int64) error {
	if atomic.AddInt64(counter, -1) < 0 {
		atomic.AddInt64(counter, 1)
		return ucerr.New(ucerr.KindResource, ucerr.CodeBudgetExhausted, "session operation budget exhausted")
	}
	return nil
}

func (b *Budget) spendTraversal() error { return b.spend(&b.traversalOps) }
func (b *Budget) spendSearch() error    { return b.spend(&b.searchOps) }
func (b *Budget) spendRead() error      { return b.spend(&b.blocksRead) }

// history is a fixed-capacity ring buffer of cursor positions, strict
// LIFO for go_back (§4.6.1 "bounded navigation history").
type history struct {
	buf []ids.BlockId
}

func newHistory(capacity int) *history {
	if capacity <= 0 {
		capacity = 64
	}
	return &history{buf: make([]ids.BlockId, 0, capacity)}
}

func (h *history) push(id ids.BlockId) {
	if len(h.buf) == cap(h.buf) {
		copy(h.buf, h.buf[1:])
		h.buf = h.buf[:len(h.buf)-1]
	}
	h.buf = append(h.buf, id)
}

func (h *history) pop(steps int) (ids.BlockId, error) {
	if steps < 1 {
		steps = 1
	}
	if len(h.buf) < steps {
		return "", ucerr.New(ucerr.KindResource, ucerr.CodeEmptyHistory, "navigation history exhausted")
	}
	idx := len(h.buf) - steps
	id := h.buf[idx]
	h.buf = h.buf[:idx]
	return id, nil
}

// Session is a single agent's stateful traversal context over one
// document (§4.6.1). Cursor, neighborhood, and history are protected by
// mu; Metrics and Budget use atomics and need no lock, per the spec's
// shared-resource policy.
type Session struct {
	ID          ids.SessionId
	DisplayName string
	Doc         *document.Document
	Caps        Capabilities
	Limits      Limits
	Metrics     Metrics
	budget      *Budget
	events      *events.Sink
	provider    search.Provider
	mgr         *Manager

	mu           sync.RWMutex
	status       Status
	cursor       ids.BlockId
	neighborhood *Neighborhood
	history      *history
	breakers     map[string]*CircuitBreaker
	depthGuard   *DepthGuard
	lastSearch   []ids.BlockId
	hasSearch    bool
	createdAt    time.Time
	lastActive   time.Time
}

// Config bundles the arguments create_session accepts (§4.6.1).
type Config struct {
	DisplayName  string
	Caps         Capabilities
	Limits       Limits
	HistoryDepth int
}

func newSession(doc *document.Document, cfg Config, sink *events.Sink, mgr *Manager) *Session {
	now := time.Now()
	if cfg.Caps.Bits == 0 {
		cfg.Caps = DefaultCapabilities()
	}
	if cfg.Limits == (Limits{}) {
		cfg.Limits = DefaultLimits
	}
	return &Session{
		ID:          ids.NewSessionID(),
		DisplayName: cfg.DisplayName,
		Doc:         doc,
		Caps:        cfg.Caps,
		Limits:      cfg.Limits,
		budget:      NewBudget(cfg.Limits),
		events:      sink,
		mgr:         mgr,
		status:      StatusActive,
		cursor:      doc.Root,
		history:     newHistory(cfg.HistoryDepth),
		breakers:    map[string]*CircuitBreaker{},
		depthGuard:  NewDepthGuard(cfg.Limits.MaxExpandDepth),
		createdAt:   now,
		lastActive:  now,
	}
}

// checkGlobalRate enforces the manager-wide leaky-bucket ceiling (§4.6.4
// "Global Limits") before a traversal or search operation proceeds. A
// session created without a Manager (e.g. in isolated tests) skips the
// check rather than panicking on a nil receiver.
func (s *Session) checkGlobalRate() error {
	if s.mgr == nil {
		return nil
	}
	return s.mgr.allowGlobalOp()
}

// Status returns the session's current lifecycle state, applying
// inactivity-timeout expiry lazily on read.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusActive && s.Limits.InactivityTimeout > 0 && time.Since(s.lastActive) > s.Limits.InactivityTimeout {
		s.status = StatusExpired
	}
	return s.status
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// requireActive fails fast with SessionNotActive when the session isn't
// usable, per §4.6.1 "Operations on a non-Active session fail...".
func (s *Session) requireActive() error {
	if st := s.Status(); st != StatusActive {
		return ucerr.New(ucerr.KindPermission, ucerr.CodeSessionNotActive, "session is "+st.String())
	}
	return nil
}

func (s *Session) breaker(operationClass string) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[operationClass]
	if !ok {
		b = NewCircuitBreaker(DefaultBreakerConfig)
		s.breakers[operationClass] = b
	}
	return b
}
