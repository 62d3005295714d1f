package locker

import "sync"

// Keyed provides mutual exclusion scoped to a string key. Operations that
// read a group's configuration and then write derived rows acquire the lock
// for the group id, so writers for the same group are linearized while
// different groups proceed concurrently.
//
// The zero value is not usable; call New.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New creates an empty keyed lock set.
func New() *Keyed {
	return &Keyed{locks: make(map[string]*entry)}
}

// Acquire blocks until the lock for key is held and returns an unlock
// function. The unlock function is safe to call more than once; extra calls
// are no-ops. Entries are removed once the last holder releases, so the map
// does not grow with the number of keys ever seen.
func (k *Keyed) Acquire(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	released := false
	return func() {
		if released {
			return
		}
		released = true
		e.mu.Unlock()

		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
