// Package ring implements a fixed-capacity FIFO buffer that overwrites its
// oldest element once full.
package ring

// Buffer is a fixed-capacity FIFO. It is not safe for concurrent use; owners
// guard it with their own lock.
type Buffer[T any] struct {
	data []T
	head int // index of the oldest element
	size int
}

// New returns an empty buffer holding at most capacity elements. A
// non-positive capacity is treated as 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Buffer[T]{data: make([]T, capacity)}
}

// Push appends item. When the buffer is full the oldest element is
// overwritten and returned with evicted set to true.
func (b *Buffer[T]) Push(item T) (old T, evicted bool) {
	if b.size < len(b.data) {
		b.data[(b.head+b.size)%len(b.data)] = item
		b.size++
		return old, false
	}
	old = b.data[b.head]
	b.data[b.head] = item
	b.head = (b.head + 1) % len(b.data)
	return old, true
}

// Len returns the number of stored elements.
func (b *Buffer[T]) Len() int {
	return b.size
}

// Cap returns the fixed capacity.
func (b *Buffer[T]) Cap() int {
	return len(b.data)
}

// At returns the i-th element counting from the oldest.
func (b *Buffer[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= b.size {
		return zero, false
	}
	return b.data[(b.head+i)%len(b.data)], true
}

// Last returns the most recently pushed element.
func (b *Buffer[T]) Last() (T, bool) {
	return b.At(b.size - 1)
}

// Each calls fn on every element from oldest to newest until fn returns false.
func (b *Buffer[T]) Each(fn func(T) bool) {
	for i := 0; i < b.size; i++ {
		if !fn(b.data[(b.head+i)%len(b.data)]) {
			return
		}
	}
}

// Values copies the elements from oldest to newest.
func (b *Buffer[T]) Values() []T {
	out := make([]T, 0, b.size)
	b.Each(func(item T) bool {
		out = append(out, item)
		return true
	})
	return out
}

// Contains reports whether v is stored in b.
func Contains[T comparable](b *Buffer[T], v T) bool {
	found := false
	b.Each(func(item T) bool {
		found = item == v
		return !found
	})
	return found
}
