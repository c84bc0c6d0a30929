package pipeline

import "sync"

// keyedMutex serializes work per transaction id so concurrent classify calls
// for the same transaction cannot interleave their read-compute-write cycles.
type keyedMutex struct {
	locks map[int64]*lockEntry
	mu    sync.Mutex
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*lockEntry)}
}

// lock acquires the mutex for key, creating it on first use.
func (km *keyedMutex) lock(key int64) {
	km.mu.Lock()
	entry, ok := km.locks[key]
	if !ok {
		entry = &lockEntry{}
		km.locks[key] = entry
	}
	entry.refs++
	km.mu.Unlock()

	entry.mu.Lock()
}

// unlock releases the mutex for key and drops it once no one is waiting.
func (km *keyedMutex) unlock(key int64) {
	km.mu.Lock()
	entry := km.locks[key]
	entry.refs--
	if entry.refs == 0 {
		delete(km.locks, key)
	}
	km.mu.Unlock()

	entry.mu.Unlock()
}
