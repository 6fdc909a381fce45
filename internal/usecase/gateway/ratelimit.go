package gateway

import (
	"sync"
	"time"
)

// clock abstracts wall time so the limiter and breaker are deterministic
// under test.
type clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// TokenBucket is a non-blocking token bucket sized to a venue's documented
// request budget: capacity tokens per refill interval. Acquisition fails
// fast, it never waits for a token.
type TokenBucket struct {
	mu          sync.Mutex
	capacity    int64
	tokens      int64
	interval    time.Duration
	windowStart time.Time
	clock       clock
}

// NewTokenBucket creates a full bucket of capacity tokens refilled every
// interval.
func NewTokenBucket(capacity int, interval time.Duration) *TokenBucket {
	return newTokenBucket(capacity, interval, systemClock{})
}

func newTokenBucket(capacity int, interval time.Duration, clk clock) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &TokenBucket{
		capacity:    int64(capacity),
		tokens:      int64(capacity),
		interval:    interval,
		windowStart: clk.Now(),
		clock:       clk,
	}
}

// TryAcquire takes one token if available and reports whether it succeeded.
func (b *TokenBucket) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Available returns the tokens currently left in the window.
func (b *TokenBucket) Available() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refill()
	return int(b.tokens)
}

// refill resets the bucket when one or more whole windows have elapsed,
// keeping window boundaries aligned to the first one. Callers hold mu.
func (b *TokenBucket) refill() {
	elapsed := b.clock.Now().Sub(b.windowStart)
	if elapsed < b.interval {
		return
	}
	windows := elapsed / b.interval
	b.windowStart = b.windowStart.Add(windows * b.interval)
	b.tokens = b.capacity
}
