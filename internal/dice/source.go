package dice

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"go.uber.org/zap"
)

// Quality describes the strength of a RandomSource.
type Quality int

const (
	Pseudorandom Quality = iota
	Cryptographic
)

func (q Quality) String() string {
	if q == Cryptographic {
		return "cryptographic"
	}
	return "pseudorandom"
}

// RandomSource is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type RandomSource interface {
	// NextInt returns a uniformly distributed int in [1, maxInclusive].
	//
	// Precondition: maxInclusive >= 1.
	NextInt(maxInclusive int) (int, error)
	// Quality reports the strength of the source.
	Quality() Quality
}

// CryptoSource implements RandomSource on top of a CSPRNG byte stream.
//
// Invariant: values are uniform in [1, n] for any n >= 1; ranges that are not
// a power of two are handled by rejection sampling.
type CryptoSource struct {
	r io.Reader
}

// NewCryptoSource returns a CryptoSource backed by crypto/rand.
func NewCryptoSource() *CryptoSource {
	return &CryptoSource{r: rand.Reader}
}

// NewCryptoSourceFrom returns a CryptoSource reading from r.
//
// Precondition: r must be safe for concurrent reads if the source is shared.
func NewCryptoSourceFrom(r io.Reader) *CryptoSource {
	return &CryptoSource{r: r}
}

// NextInt returns a cryptographically secure random int in [1, maxInclusive].
//
// Precondition: maxInclusive >= 1. Panics with "dice: NextInt called with maxInclusive < 1" otherwise.
// Postcondition: on a read failure, returns a *RandomSourceError.
func (c *CryptoSource) NextInt(maxInclusive int) (int, error) {
	if maxInclusive < 1 {
		panic("dice: NextInt called with maxInclusive < 1")
	}
	n := uint64(maxInclusive)
	// Accept only draws below the largest multiple of n so every residue is
	// equally likely.
	limit := uint64(math.MaxUint64) - uint64(math.MaxUint64)%n
	var buf [8]byte
	for {
		if _, err := io.ReadFull(c.r, buf[:]); err != nil {
			return 0, &RandomSourceError{Err: err}
		}
		v := binary.LittleEndian.Uint64(buf[:])
		if v < limit {
			return int(v%n) + 1, nil
		}
	}
}

// Quality returns Cryptographic.
func (c *CryptoSource) Quality() Quality { return Cryptographic }

// NewDefaultSource returns a CryptoSource when the platform CSPRNG answers a
// probe draw, and otherwise a time-seeded FallbackSource.
//
// Precondition: logger must be non-nil.
func NewDefaultSource(logger *zap.Logger) RandomSource {
	src, err := probeCrypto(NewCryptoSource())
	if err != nil {
		logger.Warn("dice: cryptographic source unavailable, using pseudorandom fallback",
			zap.Error(err),
		)
	}
	return src
}

// probeCrypto returns c if it answers one draw. Otherwise it returns a
// time-seeded FallbackSource together with the draw error.
func probeCrypto(c *CryptoSource) (RandomSource, error) {
	if _, err := c.NextInt(6); err != nil {
		return NewFallbackSource(uint64(time.Now().UnixNano())), err
	}
	return c, nil
}

// Diagnostic is a non-fatal event raised by the engine, such as a switch to
// the fallback random source.
type Diagnostic struct {
	At      time.Time
	Message string
	Err     error
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %v", d.At.Format(time.RFC3339), d.Message, d.Err)
}
