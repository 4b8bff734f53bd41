package dice

import (
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FallbackSource is a seedable PCG generator (128-bit state) used when the
// cryptographic source is unavailable.
type FallbackSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewFallbackSource returns a FallbackSource seeded with seed. Equal seeds
// produce equal draw sequences.
func NewFallbackSource(seed uint64) *FallbackSource {
	return &FallbackSource{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NextInt returns a pseudorandom int in [1, maxInclusive].
//
// Precondition: maxInclusive >= 1. Panics with "dice: NextInt called with maxInclusive < 1" otherwise.
func (f *FallbackSource) NextInt(maxInclusive int) (int, error) {
	if maxInclusive < 1 {
		panic("dice: NextInt called with maxInclusive < 1")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rng.IntN(maxInclusive) + 1, nil
}

// Quality returns Pseudorandom.
func (f *FallbackSource) Quality() Quality { return Pseudorandom }

// resilientSource forwards draws to primary until it fails once, then
// switches permanently to a fallback source. The switch is logged once and
// recorded as a Diagnostic.
type resilientSource struct {
	mu          sync.Mutex
	active      RandomSource
	switched    bool
	newFallback func() RandomSource
	diagnostics []Diagnostic
	logger      *zap.Logger
	now         func() time.Time
}

func newResilientSource(primary RandomSource, logger *zap.Logger, now func() time.Time) *resilientSource {
	return &resilientSource{
		active: primary,
		newFallback: func() RandomSource {
			return NewFallbackSource(uint64(now().UnixNano()))
		},
		logger: logger,
		now:    now,
	}
}

// NextInt draws from the active source. A failed or out-of-range draw from
// the primary source is retried once on the fallback.
func (r *resilientSource) NextInt(maxInclusive int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, err := r.active.NextInt(maxInclusive)
	if err == nil && (v < 1 || v > maxInclusive) {
		err = &RandomSourceError{Err: errOutOfRange(v, maxInclusive)}
	}
	if err == nil {
		return v, nil
	}
	if r.switched {
		return 0, &RandomSourceError{Err: err}
	}

	r.switchToFallback(r.newFallback(), "random source failed; switched to pseudorandom fallback", err)
	return r.active.NextInt(maxInclusive)
}

// switchToFallback makes fallback the active source for good and records
// why. Callers must hold r.mu or own r exclusively.
func (r *resilientSource) switchToFallback(fallback RandomSource, msg string, err error) {
	r.switched = true
	r.active = fallback
	r.diagnostics = append(r.diagnostics, Diagnostic{
		At:      r.now(),
		Message: msg,
		Err:     err,
	})
	r.logger.Warn("dice: "+msg, zap.Error(err))
}

func (r *resilientSource) Quality() Quality {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active.Quality()
}

func (r *resilientSource) Diagnostics() []Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Diagnostic, len(r.diagnostics))
	copy(out, r.diagnostics)
	return out
}
