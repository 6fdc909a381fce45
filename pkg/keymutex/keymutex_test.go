package keymutex

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyMutex_SerializesSameKey(t *testing.T) {
	km := New()

	const workers = 50
	counter := 0

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			km.Lock("order-1")
			defer km.Unlock("order-1")
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestKeyMutex_IndependentKeys(t *testing.T) {
	km := New()

	km.Lock("a")

	done := make(chan struct{})
	go func() {
		km.Lock("b")
		km.Unlock("b")
		close(done)
	}()

	// A held lock on "a" must not block "b".
	<-done
	km.Unlock("a")
}

func TestKeyMutex_EntriesAreReleased(t *testing.T) {
	km := New()

	km.Lock("a")
	km.Unlock("a")

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.entries)
}

func TestKeyMutex_UnlockUnknownKeyPanics(t *testing.T) {
	km := New()

	assert.Panics(t, func() {
		km.Unlock("never-locked")
	})
}
