// Package resilience provides reliability patterns for upstream model calls.
package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the circuit breaker state machine position.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Defaults applied when a threshold or timeout is left at zero.
const (
	DefaultFailureThreshold = 5
	DefaultSuccessThreshold = 1
	DefaultTimeout          = 60 * time.Second
)

// Breaker implements a circuit breaker for one upstream endpoint. It opens
// after a run of consecutive failures, rejects calls while open, and probes
// the endpoint again after a cooldown. Half-open allows any number of
// concurrent probes; a single failure there reopens the circuit.
type Breaker struct {
	name string

	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
	timeout          time.Duration
	lastFailure      time.Time
	lastChange       time.Time
	now              func() time.Time // for testing

	onTransition func(name string, from, to State)
}

// Stats is a point-in-time snapshot of a breaker.
type Stats struct {
	Name            string    `json:"name"`
	State           string    `json:"state"`
	Failures        int       `json:"failures"`
	Successes       int       `json:"successes"`
	LastFailure     time.Time `json:"last_failure"`
	LastStateChange time.Time `json:"last_state_change"`
}

// NewBreaker creates a circuit breaker for the named endpoint. It opens after
// failureThreshold consecutive failures, stays open for timeout after the
// last failure, and closes again after successThreshold consecutive
// successes in half-open. Zero values select the package defaults.
func NewBreaker(name string, failureThreshold, successThreshold int, timeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = DefaultFailureThreshold
	}
	if successThreshold <= 0 {
		successThreshold = DefaultSuccessThreshold
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		now:              time.Now,
	}
}

// Name returns the endpoint identity this breaker guards.
func (b *Breaker) Name() string { return b.name }

// OnTransition registers fn to be called on every state change. It runs
// with the breaker's lock held, so fn must not call back into the breaker.
func (b *Breaker) OnTransition(fn func(name string, from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTransition = fn
}

// Allow reports whether a call may proceed. An open breaker whose cooldown
// has elapsed transitions to half-open here as a side effect.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailure) >= b.timeout {
			b.reset(StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		return true
	}
	return false
}

// RecordSuccess registers a successful call.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.successThreshold {
			b.reset(StateClosed)
		}
	case StateClosed:
		b.failures = 0
	}
}

// RecordFailure registers a failed call.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()
	switch b.state {
	case StateHalfOpen:
		b.trip()
	case StateClosed:
		b.failures++
		if b.failures >= b.failureThreshold {
			b.trip()
		}
	}
}

// Execute runs fn through the breaker. While the circuit is open, fallback
// is invoked instead when provided; otherwise a circuit-open error naming
// the endpoint is returned. Errors from fn are recorded and returned
// unmodified.
func (b *Breaker) Execute(fn func() error, fallback func() error) error {
	if !b.Allow() {
		if fallback != nil {
			return fallback()
		}
		return fmt.Errorf("breaker %s: %w", b.name, ErrCircuitOpen)
	}

	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// Stats returns a snapshot of the breaker's current state and counters.
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Stats{
		Name:            b.name,
		State:           b.state.String(),
		Failures:        b.failures,
		Successes:       b.successes,
		LastFailure:     b.lastFailure,
		LastStateChange: b.lastChange,
	}
}

// reset must be called with b.mu held. Entering closed or half-open clears
// both counters.
func (b *Breaker) reset(s State) {
	from := b.state
	b.state = s
	b.failures = 0
	b.successes = 0
	b.lastChange = b.now()
	b.notify(from, s)
}

// trip must be called with b.mu held. Entering open keeps the failure count
// that caused the trip but clears half-open progress.
func (b *Breaker) trip() {
	from := b.state
	b.state = StateOpen
	b.successes = 0
	b.lastChange = b.now()
	b.notify(from, StateOpen)
}

func (b *Breaker) notify(from, to State) {
	if b.onTransition != nil && from != to {
		b.onTransition(b.name, from, to)
	}
}
