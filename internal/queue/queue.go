package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO. Any number of goroutines may push;
// the consumer takes everything queued at once with Drain.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	seq   uint64
}

// New creates a new empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
	}
}

// Push appends items to the queue.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	q.items = append(q.items, items...)
	q.mu.Unlock()
}

// PushSeq assigns the next sequence number and appends the item built from
// it in one critical section, so sequence order always matches queue order
// across producers. Sequence numbers start at 1.
func (q *Queue[T]) PushSeq(build func(seq uint64) T) uint64 {
	q.mu.Lock()
	q.seq++
	seq := q.seq
	q.items = append(q.items, build(seq))
	q.mu.Unlock()
	return seq
}

// Drain returns all items in FIFO order and empties the queue. It never
// blocks on producers beyond the short critical section.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	result := q.items
	q.items = make([]T, 0, cap(q.items))
	return result
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
