package packets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMHDRFromByte(t *testing.T) {
	tests := []struct {
		name string
		b    byte
		want MHDR
	}{
		{"uplink + hop count 3", 0xe2, MHDR{PayloadType: PayloadTypeUplink, HopCount: 3}},
		{"downlink + hop count 8", 0xef, MHDR{PayloadType: PayloadTypeDownlink, HopCount: 8}},
		{"event + hop count 1", 0xf0, MHDR{PayloadType: PayloadTypeEvent, HopCount: 1}},
		{"command + hop count 1", 0xf8, MHDR{PayloadType: PayloadTypeCommand, HopCount: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := mhdrFromByte(tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMHDRFromByteInvalidMType(t *testing.T) {
	_, err := mhdrFromByte(0x02)
	assert.Error(t, err)
}

func TestMHDRToByteRoundTrip(t *testing.T) {
	for hop := uint8(1); hop <= 8; hop++ {
		for pt := PayloadTypeUplink; pt <= PayloadTypeCommand; pt++ {
			h := MHDR{PayloadType: pt, HopCount: hop}
			b, err := h.toByte()
			require.NoError(t, err)

			back, err := mhdrFromByte(b)
			require.NoError(t, err)
			assert.Equal(t, h, back)
		}
	}
}

func TestMHDRToByteHopCountBounds(t *testing.T) {
	_, err := MHDR{HopCount: 0}.toByte()
	assert.Error(t, err)

	_, err = MHDR{HopCount: 9}.toByte()
	assert.Error(t, err)
}
