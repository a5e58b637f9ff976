package hopper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHopperEmptyListFails(t *testing.T) {
	h := New(nil)
	_, err := h.Next()
	assert.Error(t, err)
}

func TestHopperAdvancesInOrderAndWraps(t *testing.T) {
	h := New([]uint32{100, 200, 300})

	f1, err := h.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(200), f1)

	f2, err := h.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(300), f2)

	f3, err := h.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(100), f3)

	f4, err := h.Next()
	require.NoError(t, err)
	assert.Equal(t, uint32(200), f4)
}

func TestHopperFairnessOverManyCalls(t *testing.T) {
	freqs := []uint32{1, 2, 3, 4, 5}
	h := New(freqs)

	counts := make(map[uint32]int)
	const n = 103 // not a multiple of len(freqs)
	for i := 0; i < n; i++ {
		f, err := h.Next()
		require.NoError(t, err)
		counts[f]++
	}

	lo := n / len(freqs)
	hi := lo + 1
	if n%len(freqs) == 0 {
		hi = lo
	}
	for _, f := range freqs {
		c := counts[f]
		assert.True(t, c == lo || c == hi, "frequency %d selected %d times, want %d or %d", f, c, lo, hi)
	}
}
