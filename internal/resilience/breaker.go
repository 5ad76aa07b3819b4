// Package resilience provides reliability patterns for external service calls.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the circuit breaker is open and rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	}
	return "closed"
}

// Breaker implements a circuit breaker for calls to the prompt backend. It
// counts consecutive failures that tripOn classifies as outages and opens
// after maxFailures of them, rejecting calls until timeout elapses. A
// half-open breaker lets a single probe through; its outcome closes or
// reopens the circuit. Errors tripOn rejects (for example a validation
// response) prove the backend is up and count as successes.
type Breaker struct {
	mu          sync.Mutex
	state       state
	failures    int
	maxFailures int
	timeout     time.Duration
	openedAt    time.Time
	probing     bool
	tripOn      func(error) bool
	now         func() time.Time // for testing
}

// NewBreaker creates a circuit breaker. A nil tripOn counts every error.
func NewBreaker(maxFailures int, timeout time.Duration, tripOn func(error) bool) *Breaker {
	if tripOn == nil {
		tripOn = func(err error) bool { return err != nil }
	}
	return &Breaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		tripOn:      tripOn,
		now:         time.Now,
	}
}

// Execute runs fn unless the circuit is open. A nil Breaker always runs fn.
func (b *Breaker) Execute(fn func() error) error {
	if b == nil {
		return fn()
	}
	probe, ok := b.allowRequest()
	if !ok {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if probe {
		b.probing = false
	}
	if err != nil && b.tripOn(err) {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return err
}

// State returns "closed", "open" or "half-open".
func (b *Breaker) State() string {
	if b == nil {
		return stateClosed.String()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == stateOpen && b.now().Sub(b.openedAt) >= b.timeout {
		return stateHalfOpen.String()
	}
	return b.state.String()
}

// allowRequest reports whether a call may proceed and whether it is the
// half-open probe.
func (b *Breaker) allowRequest() (probe, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return false, true
	case stateOpen:
		if b.now().Sub(b.openedAt) < b.timeout {
			return false, false
		}
		b.state = stateHalfOpen
	}
	// Half-open: one probe at a time.
	if b.probing {
		return false, false
	}
	b.probing = true
	return true, true
}

// onFailure must be called with b.mu held.
func (b *Breaker) onFailure() {
	b.failures++
	if b.state == stateHalfOpen || b.failures >= b.maxFailures {
		b.state = stateOpen
		b.openedAt = b.now()
	}
}

// onSuccess must be called with b.mu held.
func (b *Breaker) onSuccess() {
	b.failures = 0
	b.state = stateClosed
}
