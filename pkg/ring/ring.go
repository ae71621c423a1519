package ring

// Buffer is a fixed-capacity FIFO ring buffer.
// Once full, each append evicts the oldest element. Append and eviction are
// O(1) with no element shifting.
//
// Buffer is not safe for concurrent use; callers serialize access.
type Buffer[T any] struct {
	items []T
	head  int // index of the oldest element when count > 0
	count int
}

// New creates a buffer holding at most capacity elements.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

// Push appends v, evicting the oldest element if the buffer is full.
func (b *Buffer[T]) Push(v T) {
	tail := (b.head + b.count) % len(b.items)
	b.items[tail] = v
	if b.count == len(b.items) {
		b.head = (b.head + 1) % len(b.items) // overwrite oldest
	} else {
		b.count++
	}
}

// Len returns the number of stored elements.
func (b *Buffer[T]) Len() int { return b.count }

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int { return len(b.items) }

// Tail returns a copy of the newest limit elements in insertion order
// (oldest of the selected window first). limit <= 0 or limit >= Len returns
// the entire contents.
func (b *Buffer[T]) Tail(limit int) []T {
	n := b.count
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]T, n)
	start := b.head + b.count - n
	for i := 0; i < n; i++ {
		out[i] = b.items[(start+i)%len(b.items)]
	}
	return out
}

// Snapshot returns a copy of all stored elements in insertion order.
func (b *Buffer[T]) Snapshot() []T { return b.Tail(0) }

// Reset drops all elements, keeping the capacity.
func (b *Buffer[T]) Reset() {
	b.head = 0
	b.count = 0
}
