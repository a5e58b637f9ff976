package packets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEventsRoundTrip(t *testing.T) {
	events := []Event{
		NewHeartbeatEvent([]RelayPath{
			{RelayID: [4]byte{1, 2, 3, 4}, RSSI: -60, SNR: 6},
			{RelayID: [4]byte{5, 6, 7, 8}, RSSI: -70, SNR: -3},
		}),
	}
	prop, err := NewProprietaryEvent(130, []byte("hello"))
	require.NoError(t, err)
	events = append(events, prop)

	b, err := encodeEvents(events)
	require.NoError(t, err)

	back, err := decodeEvents(b)
	require.NoError(t, err)
	assert.Equal(t, events, back)
}

func TestNewProprietaryEventRejectsReservedType(t *testing.T) {
	_, err := NewProprietaryEvent(eventTypeHeartbeat, []byte("x"))
	assert.Error(t, err)
}

func TestDecodeEventsTruncated(t *testing.T) {
	_, err := decodeEvents([]byte{0x00, 0x06, 0x01, 0x02})
	assert.Error(t, err)
}

func TestDecodeHeartbeatEventInvalidLength(t *testing.T) {
	_, err := decodeEvents([]byte{0x00, 0x04, 1, 2, 3, 4})
	assert.Error(t, err)
}

func TestEventPayloadToBytesRequiresCipher(t *testing.T) {
	p := EventPayload{Timestamp: 1, RelayID: [4]byte{1, 2, 3, 4}}
	_, err := p.toBytes()
	assert.Error(t, err)
}

func TestEventPayloadFromBytesRoundTrip(t *testing.T) {
	p := EventPayload{
		Timestamp: 1690000000,
		RelayID:   [4]byte{0x02, 0x02, 0x02, 0x02},
		Cipher:    []byte{0xaa, 0xbb, 0xcc},
	}

	b, err := p.toBytes()
	require.NoError(t, err)

	back, err := eventPayloadFromBytes(b)
	require.NoError(t, err)
	assert.Equal(t, p, back)
}
