package gateway

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestTokenBucketFailsFastWhenExhausted(t *testing.T) {
	clk := newFakeClock()
	bucket := newTokenBucket(2, time.Second, clk)

	granted := 0
	for i := 0; i < 5; i++ {
		if bucket.TryAcquire() {
			granted++
		}
	}

	assert.Equal(t, 2, granted)
	assert.Equal(t, 0, bucket.Available())
}

func TestTokenBucketRefillsPerWindow(t *testing.T) {
	clk := newFakeClock()
	bucket := newTokenBucket(2, time.Second, clk)

	assert.True(t, bucket.TryAcquire())
	assert.True(t, bucket.TryAcquire())
	assert.False(t, bucket.TryAcquire())

	clk.Advance(999 * time.Millisecond)
	assert.False(t, bucket.TryAcquire(), "window has not rolled yet")

	clk.Advance(time.Millisecond)
	assert.True(t, bucket.TryAcquire())
	assert.Equal(t, 1, bucket.Available())
}

func TestTokenBucketSkipsIdleWindows(t *testing.T) {
	clk := newFakeClock()
	bucket := newTokenBucket(3, time.Second, clk)

	for i := 0; i < 3; i++ {
		assert.True(t, bucket.TryAcquire())
	}

	// Several idle windows pass; the bucket refills to capacity, not more.
	clk.Advance(5500 * time.Millisecond)
	assert.Equal(t, 3, bucket.Available())

	// Window boundaries stay aligned: 500ms into the current window no
	// further refill happens.
	assert.True(t, bucket.TryAcquire())
	clk.Advance(400 * time.Millisecond)
	assert.Equal(t, 2, bucket.Available())
}

func TestTokenBucketClampsInvalidBudget(t *testing.T) {
	bucket := newTokenBucket(0, 0, newFakeClock())

	assert.True(t, bucket.TryAcquire())
	assert.False(t, bucket.TryAcquire())
}
