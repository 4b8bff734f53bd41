package dice_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dicelang/internal/dice"
)

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }

// TestCryptoSource_NextInt_InRange verifies every value returned by
// NextInt(6) is in [1, 6].
func TestCryptoSource_NextInt_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Equal(t, dice.Cryptographic, src.Quality())
	for i := 0; i < 1000; i++ {
		v, err := src.NextInt(6)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, 1)
		assert.LessOrEqual(t, v, 6)
	}
}

func TestCryptoSource_NextInt_PanicsOnZero(t *testing.T) {
	src := dice.NewCryptoSource()
	assert.Panics(t, func() { _, _ = src.NextInt(0) })
}

func TestCryptoSource_RejectsBiasedDraws(t *testing.T) {
	var buf bytes.Buffer
	// 2^64-1 lies in the incomplete final block for n = 6 and is rejected.
	_ = binary.Write(&buf, binary.LittleEndian, ^uint64(0))
	_ = binary.Write(&buf, binary.LittleEndian, uint64(7))
	src := dice.NewCryptoSourceFrom(&buf)

	v, err := src.NextInt(6)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 0, buf.Len(), "both words consumed")
}

func TestCryptoSource_ReadFailure(t *testing.T) {
	src := dice.NewCryptoSourceFrom(errReader{})
	_, err := src.NextInt(6)
	require.Error(t, err)
	assert.ErrorIs(t, err, dice.ErrRandomSource)
}

func TestNewDefaultSource_UsesCSPRNG(t *testing.T) {
	src := dice.NewDefaultSource(zap.NewNop())
	assert.Equal(t, dice.Cryptographic, src.Quality())
}

// TestCryptoSource_ChiSquare checks a fair d6 against the uniform
// distribution with N = 12,000. The test is statistical: a fair source fails
// one attempt 5% of the time, so up to three attempts are made.
func TestCryptoSource_ChiSquare(t *testing.T) {
	const (
		sides = 6
		n     = 12_000
	)
	critical, ok := dice.ChiSquareCritical05(sides - 1)
	require.True(t, ok)

	src := dice.NewCryptoSource()
	var stat float64
	for attempt := 0; attempt < 3; attempt++ {
		freq := make(map[int]int, sides)
		for face := 1; face <= sides; face++ {
			freq[face] = 0
		}
		for i := 0; i < n; i++ {
			v, err := src.NextInt(sides)
			require.NoError(t, err)
			freq[v]++
		}
		stat = dice.ChiSquare(freq)
		if stat < critical {
			return
		}
		t.Logf("attempt %d: chi-square %.3f >= %.3f, retrying", attempt+1, stat, critical)
	}
	t.Fatalf("chi-square %.3f exceeded critical value %.3f on every attempt", stat, critical)
}

func TestFallbackSource_SeedIsReproducible(t *testing.T) {
	a := dice.NewFallbackSource(99)
	b := dice.NewFallbackSource(99)
	assert.Equal(t, dice.Pseudorandom, a.Quality())
	for i := 0; i < 100; i++ {
		va, err := a.NextInt(20)
		require.NoError(t, err)
		vb, err := b.NextInt(20)
		require.NoError(t, err)
		assert.Equal(t, va, vb)
	}
}

func TestFallbackSource_NextInt_PanicsOnZero(t *testing.T) {
	assert.Panics(t, func() { _, _ = dice.NewFallbackSource(1).NextInt(0) })
}

// TestFallbackSource_InRange_Property verifies every draw is in [1, n].
func TestFallbackSource_InRange_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		seed := rapid.Uint64().Draw(rt, "seed")
		n := rapid.IntRange(1, 1000).Draw(rt, "n")
		v, err := dice.NewFallbackSource(seed).NextInt(n)
		require.NoError(rt, err)
		assert.GreaterOrEqual(rt, v, 1)
		assert.LessOrEqual(rt, v, n)
	})
}

func TestSequenceSource(t *testing.T) {
	src := dice.NewSequenceSource(3, 5)
	v, err := src.NextInt(6)
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, 1, src.Remaining())
	assert.Panics(t, func() { _, _ = src.NextInt(4) }, "5 is outside [1, 4]")

	v, err = src.NextInt(6)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.Panics(t, func() { _, _ = src.NextInt(6) }, "exhausted")
}

func TestChiSquare(t *testing.T) {
	assert.Zero(t, dice.ChiSquare(nil))
	assert.Zero(t, dice.ChiSquare(map[int]int{1: 0, 2: 0}))
	assert.Zero(t, dice.ChiSquare(map[int]int{1: 10, 2: 10, 3: 10}))
	// expected 10 each: (20-10)^2/10 + (0-10)^2/10 = 20.
	assert.InDelta(t, 20.0, dice.ChiSquare(map[int]int{1: 20, 2: 0}), 1e-9)
}

func TestChiSquareCritical05(t *testing.T) {
	v, ok := dice.ChiSquareCritical05(5)
	assert.True(t, ok)
	assert.InDelta(t, 11.070, v, 1e-9)
	_, ok = dice.ChiSquareCritical05(0)
	assert.False(t, ok)
	_, ok = dice.ChiSquareCritical05(31)
	assert.False(t, ok)
}

func TestQuality_String(t *testing.T) {
	assert.Equal(t, "cryptographic", dice.Cryptographic.String())
	assert.Equal(t, "pseudorandom", dice.Pseudorandom.String())
}
