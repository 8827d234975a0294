package lock

import "sync"

// Keyed serializes work per string key. The orchestrator and the timeout
// sweep both lock a contact's key before touching its records, which is what
// guarantees a late reply and a sweep expiry cannot both win.
//
// Mutexes are never evicted; the map is bounded by the number of contacts
// ever seen, which is fine for this workload.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyed creates an empty keyed lock set.
func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use.
// The returned func releases it.
func (k *Keyed) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
