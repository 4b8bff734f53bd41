package dice

import (
	"fmt"
	"sync"
)

// SequenceSource replays a fixed list of draws. It exists for deterministic
// tests and examples.
type SequenceSource struct {
	mu     sync.Mutex
	values []int
	pos    int
}

// NewSequenceSource returns a source that yields values in order.
func NewSequenceSource(values ...int) *SequenceSource {
	v := make([]int, len(values))
	copy(v, values)
	return &SequenceSource{values: v}
}

// NextInt returns the next value of the sequence.
//
// Panics when the sequence is exhausted or the next value lies outside
// [1, maxInclusive]; both indicate a misconfigured test.
func (s *SequenceSource) NextInt(maxInclusive int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.values) {
		panic(fmt.Sprintf("dice: SequenceSource exhausted after %d draws", s.pos))
	}
	v := s.values[s.pos]
	if v < 1 || v > maxInclusive {
		panic(fmt.Sprintf("dice: SequenceSource draw %d: %v", s.pos, errOutOfRange(v, maxInclusive)))
	}
	s.pos++
	return v, nil
}

// Quality returns Pseudorandom.
func (s *SequenceSource) Quality() Quality { return Pseudorandom }

// Remaining returns the number of unused draws.
func (s *SequenceSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values) - s.pos
}

func errOutOfRange(v, maxInclusive int) error {
	return fmt.Errorf("value %d outside [1, %d]", v, maxInclusive)
}
