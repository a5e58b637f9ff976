package packets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUplinkMetadataToBytes(t *testing.T) {
	md := UplinkMetadata{UplinkID: 1024, DR: 3, RSSI: -120, SNR: -12, Channel: 64}

	b, err := md.toBytes()
	require.NoError(t, err)
	assert.Equal(t, [5]byte{0x40, 0x03, 0x78, 0x34, 0x40}, b)

	back := uplinkMetadataFromBytes(b)
	assert.Equal(t, md, back)
}

func TestUplinkMetadataFromBytes(t *testing.T) {
	got := uplinkMetadataFromBytes([5]byte{0x40, 0x03, 0x78, 0x34, 0x40})
	assert.Equal(t, UplinkMetadata{UplinkID: 1024, DR: 3, RSSI: -120, SNR: -12, Channel: 64}, got)
}

func TestUplinkMetadataRangeErrors(t *testing.T) {
	tests := []struct {
		name string
		md   UplinkMetadata
	}{
		{"rssi too high", UplinkMetadata{RSSI: 1}},
		{"rssi too low", UplinkMetadata{RSSI: -256}},
		{"snr too high", UplinkMetadata{SNR: 32}},
		{"snr too low", UplinkMetadata{SNR: -33}},
		{"uplink_id too high", UplinkMetadata{UplinkID: 4096}},
		{"dr too high", UplinkMetadata{DR: 16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.md.toBytes()
			assert.Error(t, err)
		})
	}
}

func TestDownlinkMetadataToBytes(t *testing.T) {
	md := DownlinkMetadata{UplinkID: 1024, DR: 3, Frequency: 868100000, TxPower: 15, Delay: 16}

	b, err := md.toBytes()
	require.NoError(t, err)
	assert.Equal(t, [6]byte{0x40, 0x03, 0x84, 0x76, 0x28, 0xff}, b)

	back, err := downlinkMetadataFromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, md, back)
}

func TestDownlinkMetadataRangeErrors(t *testing.T) {
	tests := []struct {
		name string
		md   DownlinkMetadata
	}{
		{"uplink_id too high", DownlinkMetadata{UplinkID: 4096, Delay: 1}},
		{"dr too high", DownlinkMetadata{DR: 16, Delay: 1}},
		{"delay zero", DownlinkMetadata{Delay: 0}},
		{"delay too high", DownlinkMetadata{Delay: 17}},
		{"tx_power too high", DownlinkMetadata{TxPower: 16, Delay: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.md.toBytes()
			assert.Error(t, err)
		})
	}
}

func TestUplinkPayloadRoundTrip(t *testing.T) {
	p := UplinkPayload{
		Metadata:   UplinkMetadata{UplinkID: 1, DR: 0, RSSI: -60, SNR: 12, Channel: 1},
		RelayID:    [4]byte{0x02, 0x02, 0x02, 0x02},
		PHYPayload: []byte{1, 2, 3, 4, 5, 6, 7, 8},
	}

	b, err := p.toBytes()
	require.NoError(t, err)

	back, err := uplinkPayloadFromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestUplinkPayloadFromBytesTooShort(t *testing.T) {
	_, err := uplinkPayloadFromBytes(make([]byte, 8))
	assert.Error(t, err)
}

func TestDownlinkPayloadRoundTrip(t *testing.T) {
	p := DownlinkPayload{
		Metadata:   DownlinkMetadata{UplinkID: 1, DR: 0, Frequency: 867100000, TxPower: 1, Delay: 5},
		RelayID:    [4]byte{0x02, 0x02, 0x02, 0x02},
		PHYPayload: []byte{9, 8, 7, 6, 5},
	}

	b, err := p.toBytes()
	require.NoError(t, err)

	back, err := downlinkPayloadFromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestDownlinkPayloadFromBytesTooShort(t *testing.T) {
	_, err := downlinkPayloadFromBytes(make([]byte, 9))
	assert.Error(t, err)
}
