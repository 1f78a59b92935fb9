package telemetry

import "sync"

// DefaultHistorySize is the default number of snapshots retained for
// rate derivation. This is a short working set, not a time series store.
const DefaultHistorySize = 50

// History is a bounded FIFO of received snapshots. Append order equals
// arrival order; no reordering by timestamp is performed. It provides
// thread-safe access for rate derivation and sparkline rendering.
type History struct {
	mu   sync.RWMutex
	size int
	data []*Snapshot
}

// NewHistory creates a history with the specified capacity.
func NewHistory(size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		size: size,
		data: make([]*Snapshot, 0, size),
	}
}

// Push appends a snapshot, evicting the oldest beyond capacity.
func (h *History) Push(s *Snapshot) {
	if s == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.data) == h.size {
		copy(h.data, h.data[1:])
		h.data = h.data[:len(h.data)-1]
	}
	h.data = append(h.data, s)
}

// Last returns the most recent snapshot, or nil if empty.
func (h *History) Last() *Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.data) == 0 {
		return nil
	}
	return h.data[len(h.data)-1]
}

// LastTwo returns the previous and most recent snapshots for two-point
// rate derivation. ok is false if fewer than two samples exist.
func (h *History) LastTwo() (prev, last *Snapshot, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.data) < 2 {
		return nil, nil, false
	}
	return h.data[len(h.data)-2], h.data[len(h.data)-1], true
}

// All returns a copy of the stored snapshots in arrival order.
func (h *History) All() []*Snapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Snapshot, len(h.data))
	copy(out, h.data)
	return out
}

// Values extracts a numeric series in arrival order using the given
// accessor, skipping snapshots where the field is absent. Used for
// sparkline rendering.
func (h *History) Values(get func(*Snapshot) (float64, bool)) []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]float64, 0, len(h.data))
	for _, s := range h.data {
		if v, ok := get(s); ok {
			out = append(out, v)
		}
	}
	return out
}

// Len returns the number of stored snapshots.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.data)
}

// Clear removes all snapshots.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.data = h.data[:0]
}
