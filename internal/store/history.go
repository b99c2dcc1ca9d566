package store

// History is a fixed-capacity FIFO ring buffer. When full, each Append
// evicts the oldest entry. It is not safe for concurrent use; the owning
// store guards it.
type History[T any] struct {
	entries  []T
	capacity int
	head     int // index of the next write once full
}

// NewHistory creates an empty history holding at most capacity entries.
func NewHistory[T any](capacity int) *History[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &History[T]{
		entries:  make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Append adds entry, evicting the oldest if at capacity.
func (h *History[T]) Append(entry T) {
	if len(h.entries) < h.capacity {
		h.entries = append(h.entries, entry)
		return
	}
	h.entries[h.head] = entry
	h.head = (h.head + 1) % h.capacity
}

// Len returns the number of retained entries.
func (h *History[T]) Len() int { return len(h.entries) }

// Cap returns the capacity.
func (h *History[T]) Cap() int { return h.capacity }

// Items returns a copy of the entries, oldest first.
func (h *History[T]) Items() []T {
	out := make([]T, 0, len(h.entries))
	out = append(out, h.entries[h.head:]...)
	out = append(out, h.entries[:h.head]...)
	return out
}

// Newest returns a copy of the entries, most recent first.
func (h *History[T]) Newest() []T {
	out := h.Items()
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Reset empties the history.
func (h *History[T]) Reset() {
	clear(h.entries)
	h.entries = h.entries[:0]
	h.head = 0
}
