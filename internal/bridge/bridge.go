// Package bridge hands values from asynchronous producers to a single
// periodic consumer.
package bridge

import "sync"

// compactAt is the number of consumed slots after which the backing slice is
// shifted down to release memory.
const compactAt = 64

// Bridge is an unbounded FIFO. Publish never blocks on the consumer and never
// drops a value; TryConsume never blocks. Values are delivered in the order
// their Publish calls acquired the lock.
type Bridge[T any] struct {
	mu    sync.Mutex
	items []T
	head  int // index of the oldest unconsumed item
}

// New creates an empty Bridge.
func New[T any]() *Bridge[T] {
	return &Bridge[T]{}
}

// Publish enqueues v. Safe for concurrent use by any number of producers.
func (b *Bridge[T]) Publish(v T) {
	b.mu.Lock()
	b.items = append(b.items, v)
	b.mu.Unlock()
}

// TryConsume returns the oldest unconsumed value, or false if the bridge is
// empty.
func (b *Bridge[T]) TryConsume() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var zero T
	if b.head == len(b.items) {
		return zero, false
	}
	v := b.items[b.head]
	b.items[b.head] = zero
	b.head++

	switch {
	case b.head == len(b.items):
		b.items = b.items[:0]
		b.head = 0
	case b.head >= compactAt && b.head*2 >= len(b.items):
		n := copy(b.items, b.items[b.head:])
		clear(b.items[n:])
		b.items = b.items[:n]
		b.head = 0
	}
	return v, true
}

// Len returns the number of values waiting to be consumed.
func (b *Bridge[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items) - b.head
}
