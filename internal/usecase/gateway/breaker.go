package gateway

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker's position.
type BreakerState string

const (
	// BreakerClosed passes calls through and counts failures.
	BreakerClosed BreakerState = "CLOSED"
	// BreakerOpen short-circuits calls for the cool-down period.
	BreakerOpen BreakerState = "OPEN"
	// BreakerHalfOpen lets a single trial call through; its outcome
	// decides between closing and re-opening.
	BreakerHalfOpen BreakerState = "HALF_OPEN"
)

// CircuitBreaker trips after a run of consecutive failures and
// short-circuits venue calls until a cool-down expires. One trial call is
// admitted after the cool-down; success closes the breaker, failure re-opens
// it for another cool-down.
type CircuitBreaker struct {
	mu        sync.Mutex
	threshold int
	cooldown  time.Duration
	clock     clock

	state    BreakerState
	failures int
	openedAt time.Time
	trialOut bool
}

// NewCircuitBreaker creates a closed breaker tripping after threshold
// consecutive failures and cooling down for the given duration.
func NewCircuitBreaker(threshold int, cooldown time.Duration) *CircuitBreaker {
	return newCircuitBreaker(threshold, cooldown, systemClock{})
}

func newCircuitBreaker(threshold int, cooldown time.Duration, clk clock) *CircuitBreaker {
	if threshold < 1 {
		threshold = 1
	}
	return &CircuitBreaker{
		threshold: threshold,
		cooldown:  cooldown,
		clock:     clk,
		state:     BreakerClosed,
	}
}

// Allow reports whether a call may go out. In OPEN it starts admitting again
// once the cool-down expired, moving to HALF_OPEN with a single trial slot.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if cb.clock.Now().Sub(cb.openedAt) < cb.cooldown {
			return false
		}
		cb.state = BreakerHalfOpen
		cb.trialOut = true
		return true
	default: // HALF_OPEN
		if cb.trialOut {
			return false
		}
		cb.trialOut = true
		return true
	}
}

// Success records a healthy venue answer. It closes a half-open breaker and
// resets the failure run.
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	cb.trialOut = false
	cb.state = BreakerClosed
}

// Failure records a failed call. The trial call failing, or the run of
// consecutive failures reaching the threshold, opens the breaker.
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == BreakerHalfOpen {
		cb.open()
		return
	}
	cb.failures++
	if cb.failures >= cb.threshold {
		cb.open()
	}
}

// open flips to OPEN and starts the cool-down. Callers hold mu.
func (cb *CircuitBreaker) open() {
	cb.state = BreakerOpen
	cb.openedAt = cb.clock.Now()
	cb.failures = 0
	cb.trialOut = false
}

// State returns the breaker's current position.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
