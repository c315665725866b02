package orchestrator

import (
	"sync"
	"time"
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState int

const (
	// CircuitClosed lets every request through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects requests until the recovery timeout has elapsed.
	CircuitOpen
	// CircuitHalfOpen has admitted a single trial request and is waiting
	// for its outcome.
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker counts consecutive failures and opens once they reach the
// threshold. After the recovery timeout exactly one trial request passes;
// its success closes the circuit and its failure reopens it.
type CircuitBreaker struct {
	mu sync.Mutex

	threshold       int
	recoveryTimeout time.Duration

	state       CircuitState
	failures    int
	lastFailure time.Time

	onStateChange func(from, to CircuitState)
}

// NewCircuitBreaker creates a closed breaker. onStateChange may be nil and is
// called with the breaker lock held, so it must not call back into the breaker.
func NewCircuitBreaker(threshold int, recoveryTimeout time.Duration, onStateChange func(from, to CircuitState)) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 1
	}
	return &CircuitBreaker{
		threshold:       threshold,
		recoveryTimeout: recoveryTimeout,
		onStateChange:   onStateChange,
	}
}

// Allow reports whether a request may proceed at now. When it returns true
// the caller must report the outcome with RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow(now time.Time) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if now.Sub(cb.lastFailure) > cb.recoveryTimeout {
			cb.transitionTo(CircuitHalfOpen)
			return true
		}
		return false
	default:
		// a trial is already in flight
		return false
	}
}

// RecordSuccess resets the failure count and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state != CircuitClosed {
		cb.transitionTo(CircuitClosed)
	}
}

// RecordFailure counts a failure at now. A failed trial reopens the circuit
// immediately.
func (cb *CircuitBreaker) RecordFailure(now time.Time) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = now

	switch cb.state {
	case CircuitClosed:
		if cb.failures >= cb.threshold {
			cb.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

func (cb *CircuitBreaker) transitionTo(to CircuitState) {
	from := cb.state
	cb.state = to
	if cb.onStateChange != nil && from != to {
		cb.onStateChange(from, to)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// RetryAt is the earliest time an open circuit admits a trial request.
func (cb *CircuitBreaker) RetryAt() time.Time {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.lastFailure.Add(cb.recoveryTimeout)
}
