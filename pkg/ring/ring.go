// Package ring provides a fixed-capacity ring buffer for bounded histories.
package ring

// Buffer is a bounded FIFO buffer. When full, pushing evicts the oldest
// element. It is not safe for concurrent use; callers synchronize access.
type Buffer[T any] struct {
	items []T
	head  int
	size  int
}

// New creates a buffer with the given capacity. Capacity must be positive.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends an item, evicting the oldest if the buffer is full.
func (b *Buffer[T]) Push(item T) {
	tail := (b.head + b.size) % len(b.items)
	b.items[tail] = item
	if b.size < len(b.items) {
		b.size++
	} else {
		b.head = (b.head + 1) % len(b.items)
	}
}

// Len returns the number of stored items.
func (b *Buffer[T]) Len() int { return b.size }

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int { return len(b.items) }

// Items returns stored items oldest first.
func (b *Buffer[T]) Items() []T {
	out := make([]T, b.size)
	for i := 0; i < b.size; i++ {
		out[i] = b.items[(b.head+i)%len(b.items)]
	}
	return out
}

// Recent returns up to limit items, newest first. A non-positive or
// oversized limit returns everything.
func (b *Buffer[T]) Recent(limit int) []T {
	if limit <= 0 || limit > b.size {
		limit = b.size
	}
	out := make([]T, limit)
	for i := 0; i < limit; i++ {
		out[i] = b.items[(b.head+b.size-1-i+len(b.items))%len(b.items)]
	}
	return out
}

// Clear drops all stored items.
func (b *Buffer[T]) Clear() {
	b.head = 0
	b.size = 0
}
