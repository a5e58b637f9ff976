// Package dedup implements the bounded FIFO cache of recently seen
// MeshPacket fingerprints used to suppress duplicate re-relays.
package dedup

import "github.com/agsys/gateway-mesh/internal/packets"

// Entry is a MeshPacket's dedup identity. Timestamp is zero for
// Uplink/Downlink (identity is payload_type+uplink_id+relay_id); for
// Event/Command the packet's own timestamp field participates so that a
// deliberate retransmission (new timestamp) is never mistaken for a
// duplicate.
type Entry struct {
	PayloadType packets.PayloadType
	UplinkID    uint16
	RelayID     [4]byte
	Timestamp   uint32
}

// EntryFor derives the dedup Entry for a decoded MeshPacket.
func EntryFor(p *packets.MeshPacket) Entry {
	switch {
	case p.Uplink != nil:
		return Entry{PayloadType: packets.PayloadTypeUplink, UplinkID: p.Uplink.Metadata.UplinkID, RelayID: p.Uplink.RelayID}
	case p.Downlink != nil:
		return Entry{PayloadType: packets.PayloadTypeDownlink, UplinkID: p.Downlink.Metadata.UplinkID, RelayID: p.Downlink.RelayID}
	case p.Event != nil:
		return Entry{PayloadType: packets.PayloadTypeEvent, RelayID: p.Event.RelayID, Timestamp: p.Event.Timestamp}
	case p.Command != nil:
		return Entry{PayloadType: packets.PayloadTypeCommand, RelayID: p.Command.RelayID, Timestamp: p.Command.Timestamp}
	default:
		return Entry{}
	}
}

// Cache is a fixed-capacity FIFO of Entry values with linear containment
// checks. Capacity is small (64) so a linear scan is cheaper, in practice,
// than maintaining a hash index alongside eviction order.
type Cache struct {
	capacity int
	entries  []Entry
}

// New creates a Cache with the given capacity.
func New(capacity int) *Cache {
	return &Cache{
		capacity: capacity,
		entries:  make([]Entry, 0, capacity),
	}
}

// Add inserts entry if not already present, evicting the oldest entry
// first if the cache is at capacity. Returns true iff entry was not
// already present (i.e. this is the first time it's been seen).
func (c *Cache) Add(entry Entry) bool {
	for _, e := range c.entries {
		if e == entry {
			return false
		}
	}

	if len(c.entries) >= c.capacity {
		c.entries = c.entries[1:]
	}
	c.entries = append(c.entries, entry)
	return true
}

// Len returns the number of entries currently cached.
func (c *Cache) Len() int {
	return len(c.entries)
}
