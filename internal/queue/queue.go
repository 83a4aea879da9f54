package queue

import "sync"

// Inbound is an unbounded FIFO between one producer (transport delivery)
// and one consumer (the render loop). Push never blocks on the consumer.
type Inbound[T any] struct {
	mu    sync.Mutex
	items []T
}

func New[T any]() *Inbound[T] {
	return &Inbound[T]{}
}

func (q *Inbound[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// DrainAll removes and returns everything queued, oldest first. Returns
// nil when nothing is pending.
func (q *Inbound[T]) DrainAll() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *Inbound[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
