package diag

import "sync"

// ring is a fixed-capacity, insertion-ordered store that evicts the
// oldest entries on overflow. It is safe for concurrent use; snapshot
// copies do not block ongoing capture for longer than the copy itself.
type ring[T any] struct {
	mu      sync.Mutex
	max     int
	entries []T
}

// newRing creates a ring holding at most max entries. A non-positive
// capacity is treated as 1 so the buffer always retains the most
// recent entry.
func newRing[T any](max int) *ring[T] {
	if max < 1 {
		max = 1
	}
	return &ring[T]{max: max, entries: make([]T, 0, max)}
}

// push appends an entry, evicting the oldest entries when the
// capacity is exceeded.
func (r *ring[T]) push(entry T) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, entry)
	if len(r.entries) > r.max {
		overflow := len(r.entries) - r.max
		r.entries = append(r.entries[:0], r.entries[overflow:]...)
	}
}

// snapshot returns an immutable copy of the current contents in
// insertion order.
func (r *ring[T]) snapshot() []T {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]T, len(r.entries))
	copy(out, r.entries)
	return out
}

// clear empties the buffer.
func (r *ring[T]) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = r.entries[:0]
}

// len reports the current number of entries.
func (r *ring[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
