package projection

import "sync"

// Tracker implements last-request-wins for interactive recomputation. Each
// request for a key takes a sequence number; a result is applied only if no
// newer request for the same key was started meanwhile.
type Tracker struct {
	mu     sync.Mutex
	next   uint64
	latest map[string]uint64
}

func NewTracker() *Tracker {
	return &Tracker{latest: make(map[string]uint64)}
}

// Begin registers a new request for key and returns its sequence number.
func (t *Tracker) Begin(key string) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.latest[key] = t.next
	return t.next
}

// Commit runs apply only when seq is still current, under the tracker lock
// so no newer request can slip in between the check and the apply.
func (t *Tracker) Commit(key string, seq uint64, apply func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.latest[key] != seq {
		return false
	}
	apply()
	return true
}
