package agent

import (
	"context"

	"github.com/arthur-debert/ucp/internal/ucp/agent/search"
	"github.com/arthur-debert/ucp/internal/ucp/events"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
	"github.com/sourcegraph/conc"
)

// SetProvider wires the semantic-search backend this session delegates
// to; nil (the default) makes Search fail with ProviderNotConfigured.
func (s *Session) SetProvider(p search.Provider) { s.provider = p }

// Search delegates to the configured semantic-search provider (§4.6.3,
// §4.6.5). It is the traversal core's only suspension point: the
// provider call runs on its own goroutine via conc.WaitGroup (which
// recovers and re-panics provider bugs at Wait() rather than crashing
// the session) so the session holds no lock while the call is in
// flight, per §5 "Suspension points".
func (s *Session) Search(ctx context.Context, query string, opts search.Options) ([]search.Result, error) {
	if err := s.requireActive(); err != nil {
		return nil, err
	}
	if !s.Caps.Bits.Has(CapSearch) {
		return nil, ucerr.New(ucerr.KindPermission, codeCapabilityMissing, "session lacks the search capability")
	}
	if err := s.checkGlobalRate(); err != nil {
		return nil, err
	}
	if s.provider == nil {
		return nil, ucerr.New(ucerr.KindProvider, ucerr.CodeProviderNotConfig, "no semantic-search provider configured")
	}
	breaker := s.breaker("search")
	if err := breaker.Allow(); err != nil {
		return nil, err
	}
	if err := s.budget.spendSearch(); err != nil {
		return nil, err
	}

	var (
		results []search.Result
		callErr error
	)
	wg := conc.NewWaitGroup()
	wg.Go(func() {
		results, callErr = s.provider.Search(ctx, query, opts)
	})
	wg.Wait()

	if callErr != nil {
		breaker.RecordFailure()
		return nil, &search.ProviderError{Provider: s.provider.Name(), Message: "search failed", Cause: callErr}
	}
	breaker.RecordSuccess()

	s.recordSearchResults(results)

	s.touch()
	s.Metrics.incr(&s.Metrics.SearchOps)
	s.events.Emit(ctx, events.KindSessionNav, "search", "session", string(s.ID), "query", query, "count", len(results))
	return results, nil
}

func (s *Session) recordSearchResults(results []search.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := make([]ids.BlockId, 0, len(results))
	for _, r := range results {
		last = append(last, r.Block)
	}
	s.lastSearch = last
	s.hasSearch = true
}
