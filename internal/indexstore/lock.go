package indexstore

import "sync"

// keyedLocks hands out one RWMutex per document id and forgets it once no
// goroutine holds or waits for it.
type keyedLocks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	rw   sync.RWMutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{m: make(map[string]*lockEntry)}
}

func (k *keyedLocks) acquire(key string) *lockEntry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.m[key]
	if !ok {
		e = &lockEntry{}
		k.m[key] = e
	}
	e.refs++
	return e
}

func (k *keyedLocks) release(key string, e *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.m, key)
	}
}

func (k *keyedLocks) Lock(key string) func() {
	e := k.acquire(key)
	e.rw.Lock()
	return func() {
		e.rw.Unlock()
		k.release(key, e)
	}
}

func (k *keyedLocks) RLock(key string) func() {
	e := k.acquire(key)
	e.rw.RLock()
	return func() {
		e.rw.RUnlock()
		k.release(key, e)
	}
}

func (k *keyedLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.m)
}
