package packets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeFreqRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		freq uint32
		want [3]byte
	}{
		{"868.1MHz", 868100000, [3]byte{0x84, 0x76, 0x28}},
		{"868.3MHz", 868300000, [3]byte{0x84, 0x7d, 0xf8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := encodeFreq(tt.freq)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := decodeFreq(got[:])
			require.NoError(t, err)
			assert.Equal(t, tt.freq, back)
		})
	}
}

func TestEncodeFreq24GHzSteppingAndErrors(t *testing.T) {
	_, err := encodeFreq(868100001)
	assert.Error(t, err, "must be multiple of 100")

	// 2.4GHz band steps at 200Hz, halved internally before the /100 check.
	b, err := encodeFreq(2400200000)
	require.NoError(t, err)
	back, err := decodeFreq(b[:])
	require.NoError(t, err)
	assert.Equal(t, uint32(2400200000), back)
}
