package locking

import "sync"

// Keyring provides independent mutexes keyed by an arbitrary string,
// typically a class session id. Operations on different keys never contend;
// operations on the same key are serialized.
//
// Locks are reference counted so idle entries do not accumulate for every
// class ever touched.
type Keyring struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyring constructs an empty keyring.
func NewKeyring() *Keyring {
	return &Keyring{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key and returns the corresponding unlock
// function. Callers must invoke the returned function exactly once.
func (k *Keyring) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
