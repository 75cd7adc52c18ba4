package slab

import "sync"

// Locked wraps a Pool with a mutex for callers that do share a single pool
// across goroutines, e.g. a DataFrame index adapter's allocation session
// feeding more than one Builder concurrently (spec §5: the slab allocator
// "is not itself thread-safe in the original... a correct implementation
// may use a thread-local arena or add an internal mutex").
type Locked[T any] struct {
	mu   sync.Mutex
	pool Pool[T]
}

// AllocatedCount returns the number of live slots.
func (l *Locked[T]) AllocatedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.pool.AllocatedCount()
}

// Prefetch reserves slots ahead of time.
func (l *Locked[T]) Prefetch(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pool.Prefetch(n)
}

// Alloc returns a fresh, zero-valued slot.
func (l *Locked[T]) Alloc() Ref[T] {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.pool.Alloc()
}

// Free recycles a previously allocated slot.
func (l *Locked[T]) Free(h Handle) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pool.Free(h)
}

// Reset discards all blocks; see Pool.Reset.
func (l *Locked[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pool.Reset()
}
