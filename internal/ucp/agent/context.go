package agent

import (
	"context"

	"github.com/arthur-debert/ucp/internal/ucp/events"
	"github.com/arthur-debert/ucp/internal/ucp/ids"
	"github.com/arthur-debert/ucp/internal/ucp/ucerr"
)

// ContextAdd validates block and emits an intent event describing an
// addition to an external context store; the core holds no buffer of
// its own (§4.6.3, §9 "'Context window' is an external concern").
func (s *Session) ContextAdd(ctx context.Context, mgr *Manager, block ids.BlockId, reason string, relevance float64, hasRelevance bool) error {
	if err := s.requireCtxCapable(); err != nil {
		return err
	}
	s.Doc.RLock()
	_, ok := s.Doc.GetBlock(block)
	s.Doc.RUnlock()
	if !ok {
		return ucerr.NotFound(string(block))
	}
	if mgr != nil {
		if err := mgr.allowGlobalOp(); err != nil {
			return err
		}
		if err := mgr.reserveContextBlocks(1); err != nil {
			return err
		}
	}
	s.touch()
	s.Metrics.incr(&s.Metrics.ContextAdds)
	attrs := []any{"session", string(s.ID), "block", string(block), "reason", reason}
	if hasRelevance {
		attrs = append(attrs, "relevance", relevance)
	}
	s.events.Emit(ctx, events.KindContextIntent, "context_add", attrs...)
	return nil
}

// ContextRemove validates block and emits a removal intent.
func (s *Session) ContextRemove(ctx context.Context, mgr *Manager, block ids.BlockId) error {
	if err := s.requireCtxCapable(); err != nil {
		return err
	}
	s.Doc.RLock()
	_, ok := s.Doc.GetBlock(block)
	s.Doc.RUnlock()
	if !ok {
		return ucerr.NotFound(string(block))
	}
	if mgr != nil {
		if err := mgr.allowGlobalOp(); err != nil {
			return err
		}
		mgr.releaseContextBlocks(1)
	}
	s.touch()
	s.Metrics.incr(&s.Metrics.ContextRemoves)
	s.events.Emit(ctx, events.KindContextIntent, "context_remove", "session", string(s.ID), "block", string(block))
	return nil
}

// ContextClear emits an intent to clear the entire external context.
func (s *Session) ContextClear(ctx context.Context, mgr *Manager) error {
	if err := s.requireCtxCapable(); err != nil {
		return err
	}
	if mgr != nil {
		if err := mgr.allowGlobalOp(); err != nil {
			return err
		}
	}
	s.touch()
	s.events.Emit(ctx, events.KindContextIntent, "context_clear", "session", string(s.ID))
	return nil
}

// ContextFocus emits an intent to change which block the external
// context should treat as focal; block is optional (nil clears focus).
func (s *Session) ContextFocus(ctx context.Context, block *ids.BlockId) error {
	if err := s.requireCtxCapable(); err != nil {
		return err
	}
	attrs := []any{"session", string(s.ID)}
	if block != nil {
		s.Doc.RLock()
		_, ok := s.Doc.GetBlock(*block)
		s.Doc.RUnlock()
		if !ok {
			return ucerr.NotFound(string(*block))
		}
		attrs = append(attrs, "block", string(*block))
	}
	s.touch()
	s.events.Emit(ctx, events.KindContextIntent, "context_focus", attrs...)
	return nil
}

// ContextAddResults returns the block ids of the session's last
// search/find_by_pattern call, or fails with NoResultsAvailable.
func (s *Session) ContextAddResults(ctx context.Context, mgr *Manager) ([]ids.BlockId, error) {
	if err := s.requireCtxCapable(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	has := s.hasSearch
	results := append([]ids.BlockId(nil), s.lastSearch...)
	s.mu.RUnlock()
	if !has {
		return nil, ucerr.New(ucerr.KindResource, ucerr.CodeNoResultsAvailable, "no search or find_by_pattern results available on this session")
	}
	if mgr != nil {
		if err := mgr.allowGlobalOp(); err != nil {
			return nil, err
		}
		if len(results) > 0 {
			if err := mgr.reserveContextBlocks(len(results)); err != nil {
				return nil, err
			}
		}
	}
	s.touch()
	s.Metrics.incr(&s.Metrics.ContextAdds)
	s.events.Emit(ctx, events.KindContextIntent, "context_add_results", "session", string(s.ID), "count", len(results))
	return results, nil
}

func (s *Session) requireCtxCapable() error {
	if err := s.requireActive(); err != nil {
		return err
	}
	if !s.Caps.Bits.Has(CapModifyContext) {
		return ucerr.New(ucerr.KindPermission, codeCapabilityMissing, "session lacks the modify_context capability")
	}
	return nil
}
