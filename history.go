package xhab

import (
	"sync"
	"time"
)

// HistoryEntry is a retained message plus its enqueue timestamp.
type HistoryEntry struct {
	Message   Message
	Timestamp time.Time
}

// history is the bounded, togglable record of recently dispatched messages.
//
// Appends come only from the dispatch goroutine, but reads and administrative
// calls may originate anywhere, so every operation takes the mutex. Storage
// is a ring buffer: overflow evicts the oldest entry in O(1).
type history struct {
	mu      sync.Mutex
	enabled bool
	limit   int
	buf     []HistoryEntry
	head    int // index of the oldest entry
	count   int
}

// enable turns on recording with the given cap. If already enabled it
// re-applies the cap, immediately evicting oldest entries beyond it. A
// non-positive max disables recording.
func (h *history) enable(max int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if max <= 0 {
		h.enabled = false
		return
	}

	if max != h.limit {
		h.buf = h.resize(max)
		h.head = 0
		h.limit = max
	}
	h.enabled = true
}

// resize returns a fresh ring of capacity max holding the newest entries in
// insertion order. Caller holds the mutex.
func (h *history) resize(max int) []HistoryEntry {
	keep := h.count
	if keep > max {
		keep = max
	}
	out := make([]HistoryEntry, max)
	// Copy the newest `keep` entries, oldest first.
	for i := 0; i < keep; i++ {
		idx := (h.head + h.count - keep + i) % h.limitOrLen()
		out[i] = h.buf[idx]
	}
	h.count = keep
	return out
}

func (h *history) limitOrLen() int {
	if h.limit > 0 {
		return h.limit
	}
	return 1
}

// disable stops recording new entries. Existing entries are retained until
// cleared.
func (h *history) disable() {
	h.mu.Lock()
	h.enabled = false
	h.mu.Unlock()
}

// clear empties the buffer immediately, independent of enabled state.
func (h *history) clear() {
	h.mu.Lock()
	for i := range h.buf {
		h.buf[i] = HistoryEntry{}
	}
	h.head = 0
	h.count = 0
	h.mu.Unlock()
}

// append records an entry when enabled, evicting the oldest on overflow.
func (h *history) append(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.enabled || h.limit <= 0 {
		return
	}
	if h.count == h.limit {
		h.buf[h.head] = e
		h.head = (h.head + 1) % h.limit
		return
	}
	h.buf[(h.head+h.count)%h.limit] = e
	h.count++
}

// snapshot returns the retained entries in publish order, oldest first.
func (h *history) snapshot() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]HistoryEntry, h.count)
	for i := 0; i < h.count; i++ {
		out[i] = h.buf[(h.head+i)%h.limit]
	}
	return out
}
