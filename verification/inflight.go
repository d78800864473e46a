package verification

import "sync"

// inflightRegistry tracks which reports currently have a verification
// attempt running. Acquisition is fail-fast: a second request for the same
// seq is rejected immediately rather than queued.
type inflightRegistry struct {
	mu  sync.Mutex
	ids map[int]struct{}
}

func newInflightRegistry() *inflightRegistry {
	return &inflightRegistry{ids: make(map[int]struct{})}
}

// tryAcquire marks seq as in flight. Returns false if it already is.
func (r *inflightRegistry) tryAcquire(seq int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, held := r.ids[seq]; held {
		return false
	}
	r.ids[seq] = struct{}{}
	return true
}

// release clears the in-flight mark for seq.
func (r *inflightRegistry) release(seq int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ids, seq)
}
