package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agsys/gateway-mesh/internal/packets"
)

func TestCacheAddIdempotence(t *testing.T) {
	c := New(5)

	assert.True(t, c.Add(Entry{UplinkID: 1}))
	assert.False(t, c.Add(Entry{UplinkID: 1}))
	assert.True(t, c.Add(Entry{UplinkID: 2}))
	assert.Equal(t, 2, c.Len())
}

func TestCacheEvictsOldestBeforeInsert(t *testing.T) {
	c := New(5)

	for i := uint16(1); i <= 5; i++ {
		assert.True(t, c.Add(Entry{UplinkID: i}))
	}
	assert.Equal(t, 5, c.Len())

	assert.True(t, c.Add(Entry{UplinkID: 6}))
	assert.Equal(t, 5, c.Len())

	// The oldest entry (uplink_id 1) was evicted, so it is seen as new again.
	assert.True(t, c.Add(Entry{UplinkID: 1}))
}

func TestEntryForUplinkAndDownlinkIgnoreTimestamp(t *testing.T) {
	u := &packets.MeshPacket{
		MHDR:   packets.MHDR{PayloadType: packets.PayloadTypeUplink},
		Uplink: &packets.UplinkPayload{Metadata: packets.UplinkMetadata{UplinkID: 7}, RelayID: [4]byte{1, 2, 3, 4}},
	}
	e := EntryFor(u)
	assert.Equal(t, Entry{PayloadType: packets.PayloadTypeUplink, UplinkID: 7, RelayID: [4]byte{1, 2, 3, 4}}, e)
}

func TestEntryForEventIncludesTimestamp(t *testing.T) {
	ev := &packets.MeshPacket{
		MHDR:  packets.MHDR{PayloadType: packets.PayloadTypeEvent},
		Event: &packets.EventPayload{RelayID: [4]byte{1, 2, 3, 4}, Timestamp: 42},
	}
	e := EntryFor(ev)
	assert.Equal(t, Entry{PayloadType: packets.PayloadTypeEvent, RelayID: [4]byte{1, 2, 3, 4}, Timestamp: 42}, e)

	// A retransmit with a different timestamp is a distinct dedup identity.
	c := New(64)
	assert.True(t, c.Add(e))
	ev.Event.Timestamp = 43
	assert.True(t, c.Add(EntryFor(ev)))
}
