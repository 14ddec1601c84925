package resilience

import (
	"errors"
	"testing"
	"time"
)

var errTest = errors.New("service unavailable")

func TestClosedStateAllowsCalls(t *testing.T) {
	b := NewBreaker("openai", 3, 1, time.Second)
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	b := NewBreaker("openai", 3, 1, time.Second)

	for i := 0; i < 3; i++ {
		_ = b.Execute(func() error { return errTest }, nil)
	}

	err := b.Execute(func() error { return nil }, nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if got := err.Error(); got != "breaker openai: circuit breaker is open" {
		t.Fatalf("open error = %q, want endpoint identity in message", got)
	}
}

func TestFailureErrorsReturnedUnmodified(t *testing.T) {
	b := NewBreaker("openai", 3, 1, time.Second)

	err := b.Execute(func() error { return errTest }, nil)
	if !errors.Is(err, errTest) {
		t.Fatalf("expected errTest back, got %v", err)
	}
}

func TestFallbackUsedWhileOpen(t *testing.T) {
	b := NewBreaker("openai", 1, 1, time.Second)
	_ = b.Execute(func() error { return errTest }, nil)

	primaryCalled := false
	err := b.Execute(func() error {
		primaryCalled = true
		return nil
	}, func() error { return nil })
	if err != nil {
		t.Fatalf("expected fallback result, got %v", err)
	}
	if primaryCalled {
		t.Fatal("primary fn must not run while open")
	}
}

func TestTransitionsToHalfOpenAfterTimeout(t *testing.T) {
	now := time.Now()
	b := NewBreaker("openai", 2, 1, time.Second)
	b.now = func() time.Time { return now }

	// Trip the breaker
	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errTest }, nil)
	}

	// Still open
	err := b.Execute(func() error { return nil }, nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	// Advance past timeout
	now = now.Add(2 * time.Second)

	// Should be half-open — allows one call
	called := false
	err = b.Execute(func() error {
		called = true
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("expected no error in half-open, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called in half-open")
	}

	// Success should close the circuit
	if got := b.Stats().State; got != "closed" {
		t.Fatalf("expected closed after half-open success, got %s", got)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := NewBreaker("openai", 2, 1, time.Second)
	b.now = func() time.Time { return now }

	// Trip the breaker
	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errTest }, nil)
	}

	// Advance past timeout to reach half-open
	now = now.Add(2 * time.Second)

	// Fail in half-open → should reopen
	_ = b.Execute(func() error { return errTest }, nil)

	if got := b.Stats().State; got != "open" {
		t.Fatalf("expected open after half-open failure, got %s", got)
	}

	// Calls should be rejected
	err := b.Execute(func() error { return nil }, nil)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen after reopen, got %v", err)
	}
}

func TestHalfOpenFailureClearsSuccessCount(t *testing.T) {
	now := time.Now()
	b := NewBreaker("openai", 1, 2, time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errTest }, nil)
	now = now.Add(2 * time.Second)

	// One half-open success, then a failure reopens the circuit.
	if !b.Allow() {
		t.Fatal("expected half-open to allow probes")
	}
	b.RecordSuccess()
	b.RecordFailure()

	stats := b.Stats()
	if stats.State != "open" {
		t.Fatalf("expected open after half-open failure, got %s", stats.State)
	}
	if stats.Successes != 0 {
		t.Fatalf("expected success count 0 after reopen, got %d", stats.Successes)
	}

	// The next half-open cycle must start from scratch: one success is
	// again not enough to close with threshold 2.
	now = now.Add(2 * time.Second)
	if !b.Allow() {
		t.Fatal("expected half-open after second cooldown")
	}
	b.RecordSuccess()
	if got := b.Stats().State; got != "half_open" {
		t.Fatalf("expected half_open after single success, got %s", got)
	}
}

func TestSuccessThresholdClosesHalfOpen(t *testing.T) {
	now := time.Now()
	b := NewBreaker("openai", 1, 2, time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errTest }, nil)
	now = now.Add(2 * time.Second)

	// First half-open success is not enough to close with threshold 2.
	if !b.Allow() {
		t.Fatal("expected half-open to allow probes")
	}
	b.RecordSuccess()
	if got := b.Stats().State; got != "half_open" {
		t.Fatalf("expected half_open after one success, got %s", got)
	}

	b.RecordSuccess()
	if got := b.Stats().State; got != "closed" {
		t.Fatalf("expected closed after two successes, got %s", got)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker("openai", 3, 1, time.Second)

	// Two failures
	_ = b.Execute(func() error { return errTest }, nil)
	_ = b.Execute(func() error { return errTest }, nil)

	// One success resets
	_ = b.Execute(func() error { return nil }, nil)

	// Two more failures should not trip (only 2, need 3)
	_ = b.Execute(func() error { return errTest }, nil)
	_ = b.Execute(func() error { return errTest }, nil)

	// Still closed
	called := false
	err := b.Execute(func() error {
		called = true
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}

func TestStatsSnapshot(t *testing.T) {
	now := time.Now()
	b := NewBreaker("anthropic", 2, 1, time.Second)
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errTest }, nil)
	_ = b.Execute(func() error { return errTest }, nil)

	s := b.Stats()
	if s.Name != "anthropic" {
		t.Errorf("Name = %q", s.Name)
	}
	if s.State != "open" {
		t.Errorf("State = %q, want open", s.State)
	}
	// Entering open keeps the failure count that tripped the breaker.
	if s.Failures != 2 {
		t.Errorf("Failures = %d, want 2", s.Failures)
	}
	if !s.LastFailure.Equal(now) {
		t.Errorf("LastFailure = %v, want %v", s.LastFailure, now)
	}
	if !s.LastStateChange.Equal(now) {
		t.Errorf("LastStateChange = %v, want %v", s.LastStateChange, now)
	}
}

func TestDefaultsApplied(t *testing.T) {
	b := NewBreaker("any", 0, 0, 0)
	if b.failureThreshold != DefaultFailureThreshold {
		t.Errorf("failureThreshold = %d, want %d", b.failureThreshold, DefaultFailureThreshold)
	}
	if b.successThreshold != DefaultSuccessThreshold {
		t.Errorf("successThreshold = %d, want %d", b.successThreshold, DefaultSuccessThreshold)
	}
	if b.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", b.timeout, DefaultTimeout)
	}
}

func TestGroupReusesBreakersPerEndpoint(t *testing.T) {
	g := NewGroup(3, 1, time.Second)

	a := g.For("openai/gpt-4o")
	b := g.For("openai/gpt-4o")
	c := g.For("anthropic/claude-opus-4.5")
	if a != b {
		t.Fatal("expected the same breaker for the same endpoint")
	}
	if a == c {
		t.Fatal("expected distinct breakers per endpoint")
	}

	stats := g.Stats()
	if len(stats) != 2 {
		t.Fatalf("Stats() returned %d entries, want 2", len(stats))
	}
	if stats[0].Name != "anthropic/claude-opus-4.5" || stats[1].Name != "openai/gpt-4o" {
		t.Fatalf("Stats() not sorted by name: %v, %v", stats[0].Name, stats[1].Name)
	}
}

func TestTransitionHookSeesFullCycle(t *testing.T) {
	now := time.Now()
	g := NewGroup(1, 1, time.Second)

	type transition struct {
		name     string
		from, to State
	}
	var seen []transition
	g.OnTransition(func(name string, from, to State) {
		seen = append(seen, transition{name, from, to})
	})

	b := g.For("openai/gpt-4o")
	b.now = func() time.Time { return now }

	_ = b.Execute(func() error { return errTest }, nil)
	now = now.Add(2 * time.Second)
	_ = b.Execute(func() error { return nil }, nil)

	want := []transition{
		{"openai/gpt-4o", StateClosed, StateOpen},
		{"openai/gpt-4o", StateOpen, StateHalfOpen},
		{"openai/gpt-4o", StateHalfOpen, StateClosed},
	}
	if len(seen) != len(want) {
		t.Fatalf("hook fired %d times, want %d: %v", len(seen), len(want), seen)
	}
	for i, tr := range want {
		if seen[i] != tr {
			t.Fatalf("transition %d = %v, want %v", i, seen[i], tr)
		}
	}
}
