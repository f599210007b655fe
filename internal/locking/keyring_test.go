package locking

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyringSerializesSameKey(t *testing.T) {
	k := NewKeyring()

	const goroutines = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("class-1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, counter)
}

func TestKeyringIndependentKeysDoNotBlock(t *testing.T) {
	k := NewKeyring()

	unlockA := k.Lock("class-a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := k.Lock("class-b")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestKeyringReleasesIdleEntries(t *testing.T) {
	k := NewKeyring()

	unlock := k.Lock("class-1")
	unlock()

	k.mu.Lock()
	defer k.mu.Unlock()
	require.Empty(t, k.locks)
}
