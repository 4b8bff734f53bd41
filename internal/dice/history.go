package dice

import (
	"iter"
	"sync"
)

// DefaultHistoryCapacity is the ring buffer size used when none is configured.
const DefaultHistoryCapacity = 1000

// HistoryEntry is a recorded RollResult and its position in the log.
type HistoryEntry struct {
	Seq    uint64 // 1 for the first roll recorded, increasing by one per append
	Result RollResult
}

// Summary aggregates the totals currently held by a History.
type Summary struct {
	Count    int     `json:"count" yaml:"count"`
	Mean     float64 `json:"mean" yaml:"mean"`
	Variance float64 `json:"variance" yaml:"variance"`
	Min      int     `json:"min" yaml:"min"`
	Max      int     `json:"max" yaml:"max"`
}

// History is a fixed-capacity, FIFO-evicting log of roll results.
//
// History is safe for concurrent use.
type History struct {
	mu    sync.RWMutex
	buf   []HistoryEntry
	start int // index of the oldest entry
	size  int
	seq   uint64
}

// NewHistory creates a History holding at most capacity entries.
//
// Postcondition: capacity < 1 is replaced by DefaultHistoryCapacity.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]HistoryEntry, capacity)}
}

// Append records r, evicting the oldest entry when the buffer is full.
//
// Postcondition: returns the stored entry; Len() <= Cap().
func (h *History) Append(r RollResult) HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	entry := HistoryEntry{Seq: h.seq, Result: r}
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = entry
		h.size++
	} else {
		h.buf[h.start] = entry
		h.start = (h.start + 1) % len(h.buf)
	}
	return entry
}

// Len returns the number of entries currently held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Cap returns the maximum number of entries held.
func (h *History) Cap() int {
	return len(h.buf)
}

// Clear drops every entry. Sequence numbers keep increasing afterwards.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.buf)
	h.start, h.size = 0, 0
}

// Recent returns up to n entries, most recent first. n < 0 returns all.
func (h *History) Recent(n int) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n < 0 || n > h.size {
		n = h.size
	}
	out := make([]HistoryEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, h.at(h.size-1-i))
	}
	return out
}

// All iterates over a snapshot of the entries, most recent first.
func (h *History) All() iter.Seq[HistoryEntry] {
	snapshot := h.Recent(-1)
	return func(yield func(HistoryEntry) bool) {
		for _, e := range snapshot {
			if !yield(e) {
				return
			}
		}
	}
}

// FrequencyTable counts how often each face of a die with the given number
// of sides appears across every recorded die of that size, kept or not.
//
// Postcondition: every face in [1, sides] is a key, possibly with count 0.
func (h *History) FrequencyTable(sides int) map[int]int {
	freq := make(map[int]int, max(sides, 0))
	for face := 1; face <= sides; face++ {
		freq[face] = 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := 0; i < h.size; i++ {
		for _, d := range h.at(i).Result.Dice {
			if d.Sides == sides {
				freq[d.Value]++
			}
		}
	}
	return freq
}

// Mean returns the mean of the recorded totals, or 0 when empty.
func (h *History) Mean() float64 {
	return h.Summary().Mean
}

// Variance returns the population variance of the recorded totals, or 0
// when empty.
func (h *History) Variance() float64 {
	return h.Summary().Variance
}

// Summary computes count, mean, population variance and range of the
// recorded totals.
func (h *History) Summary() Summary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	s := Summary{Count: h.size}
	if h.size == 0 {
		return s
	}

	// Welford's online algorithm.
	var mean, m2 float64
	for i := 0; i < h.size; i++ {
		t := h.at(i).Result.Total
		if i == 0 || t < s.Min {
			s.Min = t
		}
		if i == 0 || t > s.Max {
			s.Max = t
		}
		delta := float64(t) - mean
		mean += delta / float64(i+1)
		m2 += delta * (float64(t) - mean)
	}
	s.Mean = mean
	s.Variance = m2 / float64(h.size)
	return s
}

// at returns the i-th oldest entry. Caller holds h.mu.
func (h *History) at(i int) HistoryEntry {
	return h.buf[(h.start+i)%len(h.buf)]
}
