package dice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failReader struct{}

func (failReader) Read([]byte) (int, error) { return 0, assert.AnError }

func TestProbeCrypto_FallsBackWhenCSPRNGUnavailable(t *testing.T) {
	src, err := probeCrypto(NewCryptoSourceFrom(failReader{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, Pseudorandom, src.Quality())
	_, ok := src.(*FallbackSource)
	assert.True(t, ok)
}

func TestProbeCrypto_UsesCSPRNG(t *testing.T) {
	c := NewCryptoSource()
	src, err := probeCrypto(c)
	require.NoError(t, err)
	assert.Same(t, c, src)
}
