package logview

// Ring is a fixed-capacity buffer that silently drops the oldest
// entries beyond capacity. Used for the detached log buffer; loss is
// surfaced as a count, not reconstructed.
type Ring[T any] struct {
	data  []T
	head  int
	count int
	size  int
}

// NewRing creates a ring with the given capacity.
func NewRing[T any](size int) *Ring[T] {
	if size <= 0 {
		size = 1
	}
	return &Ring[T]{
		data: make([]T, size),
		size: size,
	}
}

// Push appends a value, overwriting the oldest when full.
func (r *Ring[T]) Push(v T) {
	r.data[r.head] = v
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// Items returns the stored values in arrival order (oldest first).
func (r *Ring[T]) Items() []T {
	if r.count == 0 {
		return nil
	}

	out := make([]T, r.count)
	start := (r.head - r.count + r.size) % r.size
	for i := 0; i < r.count; i++ {
		out[i] = r.data[(start+i)%r.size]
	}
	return out
}

// Len returns the number of stored values.
func (r *Ring[T]) Len() int {
	return r.count
}

// Cap returns the ring capacity.
func (r *Ring[T]) Cap() int {
	return r.size
}

// Clear discards all stored values.
func (r *Ring[T]) Clear() {
	r.head = 0
	r.count = 0
	var zero T
	for i := range r.data {
		r.data[i] = zero
	}
}
