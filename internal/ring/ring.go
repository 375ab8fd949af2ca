// Package ring provides a capacity-bounded FIFO buffer. When full, each
// append evicts the single oldest element, so the buffer always holds the
// most recent Cap() elements in insertion order.
package ring

// Buffer is a bounded FIFO sequence of T. The zero value is not usable;
// construct with New.
type Buffer[T any] struct {
	items []T
	head  int
	size  int
}

// New returns a Buffer holding at most capacity elements. A capacity below
// one is treated as one.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Append inserts item, evicting the oldest element when the buffer is full.
func (b *Buffer[T]) Append(item T) {
	tail := (b.head + b.size) % len(b.items)
	b.items[tail] = item
	if b.size == len(b.items) {
		b.head = (b.head + 1) % len(b.items)
		return
	}
	b.size++
}

// Items returns the retained elements, oldest first. The returned slice is
// a copy; mutating it does not affect the buffer.
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

// Reset empties the buffer without releasing its backing storage.
func (b *Buffer[T]) Reset() {
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head = 0
	b.size = 0
}

// Len reports the number of retained elements.
func (b *Buffer[T]) Len() int { return b.size }

// Cap reports the configured capacity.
func (b *Buffer[T]) Cap() int { return len(b.items) }
