package services

import "sync"

// ScopeLock is an in-process advisory lock registry keyed by an arbitrary
// string. The synchronizer uses it to serialize sync passes per site/project
// scope: two concurrent passes over the same scope would otherwise both
// decide an activity is missing and create it twice.
type ScopeLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewScopeLock() *ScopeLock {
	return &ScopeLock{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the lock for key is held and returns the release
// function. Locks are never evicted; the key space (one entry per synced
// scope) stays small.
func (l *ScopeLock) Acquire(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
