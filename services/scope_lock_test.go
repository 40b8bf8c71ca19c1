package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeLockSerializesSameKey(t *testing.T) {
	locks := NewScopeLock()

	const workers = 8
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			release := locks.Acquire("site:1")
			defer release()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestScopeLockIndependentKeys(t *testing.T) {
	locks := NewScopeLock()

	release := locks.Acquire("site:1")
	defer release()

	done := make(chan struct{})
	go func() {
		other := locks.Acquire("project:1")
		other()
		close(done)
	}()

	// a different scope must not block behind the held lock
	<-done
}
