package locker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyed(t *testing.T) {
	t.Run("SerializesSameKey", func(t *testing.T) {
		k := New()
		const workers = 20
		counter := 0

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := k.Acquire("group-1")
				defer unlock()
				counter++
			}()
		}
		wg.Wait()
		assert.Equal(t, workers, counter)
	})

	t.Run("DifferentKeysDoNotBlock", func(t *testing.T) {
		k := New()
		unlockA := k.Acquire("a")
		defer unlockA()

		done := make(chan struct{})
		go func() {
			unlockB := k.Acquire("b")
			unlockB()
			close(done)
		}()
		<-done
	})

	t.Run("DoubleUnlockIsNoop", func(t *testing.T) {
		k := New()
		unlock := k.Acquire("a")
		unlock()
		unlock()

		// The key must be acquirable again.
		unlock2 := k.Acquire("a")
		unlock2()
	})

	t.Run("EntriesAreReclaimed", func(t *testing.T) {
		k := New()
		for i := 0; i < 5; i++ {
			unlock := k.Acquire("a")
			unlock()
		}
		k.mu.Lock()
		defer k.mu.Unlock()
		assert.Empty(t, k.locks)
	})
}
