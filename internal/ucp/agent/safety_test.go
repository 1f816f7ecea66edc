package agent

import (
	"testing"
	"time"
)

func TestDepthGuardBlocksAtLimit(t *testing.T) {
	g := NewDepthGuard(2)
	release1, err := g.Acquire()
	if err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}
	release2, err := g.Acquire()
	if err != nil {
		t.Fatalf("Acquire 2: %v", err)
	}
	if _, err := g.Acquire(); err == nil {
		t.Fatal("expected a third Acquire to fail at the limit")
	}
	release1()
	if _, err := g.Acquire(); err != nil {
		t.Fatalf("expected Acquire to succeed after a release: %v", err)
	}
	release2()
}

func TestCircuitBreakerTripsOpensAndRecovers(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, Window: time.Minute, OpenTimeout: time.Millisecond}
	b := NewCircuitBreaker(cfg)

	b.RecordFailure()
	if b.State() != BreakerClosed {
		t.Fatalf("expected breaker to stay closed after one failure, got %v", b.State())
	}
	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("expected breaker to trip open after %d failures, got %v", cfg.FailureThreshold, b.State())
	}
	if err := b.Allow(); err == nil {
		t.Fatal("expected Allow to reject calls while open")
	}

	time.Sleep(5 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("expected Allow to transition to half-open after the timeout: %v", err)
	}
	if b.State() != BreakerHalfOpen {
		t.Fatalf("expected half-open state, got %v", b.State())
	}
	b.RecordSuccess()
	if b.State() != BreakerClosed {
		t.Fatalf("expected breaker to close after %d successes, got %v", cfg.SuccessThreshold, b.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cfg := BreakerConfig{FailureThreshold: 1, SuccessThreshold: 1, Window: time.Minute, OpenTimeout: time.Millisecond}
	b := NewCircuitBreaker(cfg)
	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("expected breaker open, got %v", b.State())
	}
	time.Sleep(5 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	b.RecordFailure()
	if b.State() != BreakerOpen {
		t.Fatalf("expected a half-open failure to reopen the breaker, got %v", b.State())
	}
}

func TestLeakyBucketAllowsUpToCapacityThenBlocks(t *testing.T) {
	lb := newLeakyBucket(2)
	if !lb.allow() {
		t.Fatal("expected first token to be allowed")
	}
	if !lb.allow() {
		t.Fatal("expected second token to be allowed")
	}
	if lb.allow() {
		t.Fatal("expected a third immediate call to be rate-limited")
	}
}
