package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/arthur-debert/ucp/internal/ucp/agent/search"
	"github.com/arthur-debert/ucp/internal/ucp/content"
	"github.com/arthur-debert/ucp/internal/ucp/document"
	"github.com/arthur-debert/ucp/internal/ucp/ucl"
)

func parseOne(t *testing.T, src string) ucl.Command {
	t.Helper()
	cmds, err := ucl.Parse(src)
	if err != nil {
		t.Fatalf("ucl.Parse(%q): %v", src, err)
	}
	if len(cmds) != 1 {
		t.Fatalf("expected exactly one parsed statement, got %d", len(cmds))
	}
	return cmds[0]
}

func TestDispatchGoto(t *testing.T) {
	s := newTestSession(t, Config{})
	ctx := context.Background()
	child, err := s.Doc.AddBlock(s.Doc.Root, content.Text{Text: "child", Format: content.TextPlain}, nil, document.NewMetadata())
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}

	cmd := parseOne(t, fmt.Sprintf("GOTO %s", child))
	res, ok, err := s.Dispatch(ctx, nil, cmd)
	if !ok {
		t.Fatal("expected Dispatch to recognize GotoCommand")
	}
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Kind != "navigate" || res.Navigate == nil || res.Navigate.Position != child {
		t.Fatalf("unexpected dispatch result %+v", res)
	}
}

func TestDispatchSearchDelegatesToProvider(t *testing.T) {
	s := newTestSession(t, Config{})
	ctx := context.Background()
	id, err := s.Doc.AddBlock(s.Doc.Root, content.Text{Text: "intro overview", Format: content.TextPlain}, nil, document.NewMetadata())
	if err != nil {
		t.Fatalf("AddBlock: %v", err)
	}
	s.SetProvider(search.NewMock([]search.MockEntry{
		{Block: id, Keywords: []string{"intro"}, Similarity: 0.9},
	}))

	cmd := parseOne(t, `SEARCH "intro"`)
	res, ok, err := s.Dispatch(ctx, nil, cmd)
	if !ok {
		t.Fatal("expected Dispatch to recognize SearchCommand")
	}
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(res.SearchResults) != 1 || res.SearchResults[0].Block != id {
		t.Fatalf("expected the mock provider's hit to be returned, got %+v", res.SearchResults)
	}
}

func TestDispatchSearchWithoutProviderFails(t *testing.T) {
	s := newTestSession(t, Config{})
	cmd := parseOne(t, `SEARCH "anything"`)
	_, ok, err := s.Dispatch(context.Background(), nil, cmd)
	if !ok {
		t.Fatal("expected Dispatch to recognize SearchCommand even without a provider")
	}
	if err == nil {
		t.Fatal("expected search with no provider configured to fail")
	}
}

func TestDispatchCtxResultsReturnsLastFindOutput(t *testing.T) {
	mgr := NewManager(DefaultGlobalLimits, nil)
	doc := newTestDoc(t)
	s, err := mgr.CreateSession(doc, Config{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	ctx := context.Background()

	found, err := s.FindByPattern(ctx, FindQuery{})
	if err != nil {
		t.Fatalf("FindByPattern: %v", err)
	}
	if len(found) == 0 {
		t.Fatal("expected at least the root block to match an unfiltered find")
	}

	cmd := parseOne(t, `CTX RESULTS`)
	res, ok, err := s.Dispatch(ctx, mgr, cmd)
	if !ok {
		t.Fatal("expected Dispatch to recognize CtxCommand")
	}
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res.Kind != "context_add_results" || len(res.ContextIDs) != len(found) {
		t.Fatalf("unexpected dispatch result %+v", res)
	}
}

func TestDispatchUnknownCommandReturnsNotOk(t *testing.T) {
	s := newTestSession(t, Config{})
	_, ok, err := s.Dispatch(context.Background(), nil, ucl.AppendCommand{})
	if ok || err != nil {
		t.Fatalf("expected Dispatch to report ok=false for a non-session command, got ok=%v err=%v", ok, err)
	}
}
