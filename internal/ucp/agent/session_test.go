package agent

import (
	"context"
	"testing"
	"time"

	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/events"
)

func newTestDoc(t *testing.T) *document.Document {
	t.Helper()
	return document.New("test")
}

// newTestSession builds a session directly via newSession, bypassing a
// Manager, so tests can exercise Session in isolation (checkGlobalRate
// is a no-op without one).
func newTestSession(t *testing.T, cfg Config) *Session {
	t.Helper()
	doc := newTestDoc(t)
	return newSession(doc, cfg, events.Null(), nil)
}

func TestSessionStatusExpiresOnInactivityTimeout(t *testing.T) {
	s := newTestSession(t, Config{Limits: Limits{InactivityTimeout: time.Millisecond}})
	time.Sleep(5 * time.Millisecond)
	if got := s.Status(); got != StatusExpired {
		t.Fatalf("expected session to expire, got %s", got)
	}
	if err := s.requireActive(); err == nil {
		t.Fatal("expected requireActive to fail on an expired session")
	}
}

func TestManagerCloseTransitionsSessionAndRemovesFromTable(t *testing.T) {
	mgr := NewManager(DefaultGlobalLimits, events.Null())
	doc := newTestDoc(t)
	s, err := mgr.CreateSession(doc, Config{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if mgr.Count() != 1 {
		t.Fatalf("expected 1 tracked session, got %d", mgr.Count())
	}
	if err := mgr.Close(s.ID); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Status() != StatusClosed {
		t.Fatalf("expected session to be closed, got %s", s.Status())
	}
	if mgr.Count() != 0 {
		t.Fatalf("expected 0 tracked sessions after close, got %d", mgr.Count())
	}
	if _, ok := mgr.Get(s.ID); ok {
		t.Fatal("expected a closed session to be removed from the table")
	}
}

func TestNavigateToPushesHistoryAndGoBackPops(t *testing.T) {
	s := newTestSession(t, Config{})
	ctx := context.Background()
	child, err := s.Doc.AddBlock(s.Doc.Root, content.Text{Text: "child", Format: content.TextPlain}, nil, document.NewMetadata())
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	res, err := s.NavigateTo(ctx, child)
	if err != nil {
		t.Fatalf("NavigateTo: %v", err)
	}
	if res.Position != child || !res.Refresh {
		t.Fatalf("unexpected navigate result %+v", res)
	}
	if s.Cursor() != child {
		t.Fatalf("expected cursor at %q, got %q", child, s.Cursor())
	}

	back, err := s.GoBack(ctx, 1)
	if err != nil {
		t.Fatalf("GoBack: %v", err)
	}
	if back.Position != s.Doc.Root {
		t.Fatalf("expected go_back to land on root, got %q", back.Position)
	}
	if s.Cursor() != s.Doc.Root {
		t.Fatalf("expected cursor back at root, got %q", s.Cursor())
	}
}

func TestGoBackFailsOnEmptyHistory(t *testing.T) {
	s := newTestSession(t, Config{})
	if _, err := s.GoBack(context.Background(), 1); err == nil {
		t.Fatal("expected go_back on a fresh session to fail with empty history")
	}
}

func TestNavigateToUnknownBlockFails(t *testing.T) {
	s := newTestSession(t, Config{})
	if _, err := s.NavigateTo(context.Background(), "blk_ffffffffffffffffffffffff"); err == nil {
		t.Fatal("expected navigate_to an unknown block to fail")
	}
}

func TestBudgetExhaustsAfterAllowance(t *testing.T) {
	b := NewBudget(Limits{MaxResultsPerOp: 1})
	for i := 0; i < 10; i++ {
		if err := b.spendRead(); err != nil {
			t.Fatalf("unexpected exhaustion at iteration %d", i)
		}
	}
	// blocksRead allowance is MaxResultsPerOp*1000; push it past zero directly
	// via repeated spends on a tighter counter instead of spinning 1000 times.
	tight := NewBudget(Limits{})
	tight.traversalOps = 1
	if err := tight.spendTraversal(); err != nil {
		t.Fatalf("expected first spend to succeed: %v", err)
	}
	if err := tight.spendTraversal(); err == nil {
		t.Fatal("expected budget to be exhausted on the second spend")
	}
}
