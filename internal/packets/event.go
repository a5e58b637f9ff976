package packets

import (
	"encoding/binary"
	"fmt"
)

// RelayPath is one hop's reception quality, appended to a Heartbeat event
// as it is re-relayed.
type RelayPath struct {
	RelayID [4]byte
	RSSI    int16 // 0..=-255
	SNR     int8  // -32..=31
}

func relayPathFromBytes(b [6]byte) RelayPath {
	snr := b[5] & 0x3f
	var s int8
	if snr > 31 {
		s = int8(snr) - 64
	} else {
		s = int8(snr)
	}

	var relayID [4]byte
	copy(relayID[:], b[0:4])

	return RelayPath{
		RelayID: relayID,
		RSSI:    -int16(b[4]),
		SNR:     s,
	}
}

func (p RelayPath) toBytes() ([6]byte, error) {
	var out [6]byte

	if p.RSSI > 0 {
		return out, fmt.Errorf("packets: max rssi value is 0")
	}
	if p.RSSI < -255 {
		return out, fmt.Errorf("packets: min rssi value is -255")
	}
	if p.SNR < -32 {
		return out, fmt.Errorf("packets: min snr value is -32")
	}
	if p.SNR > 31 {
		return out, fmt.Errorf("packets: max snr value is 31")
	}

	copy(out[0:4], p.RelayID[:])
	out[4] = byte(-p.RSSI)
	if p.SNR < 0 {
		out[5] = byte(p.SNR + 64)
	} else {
		out[5] = byte(p.SNR)
	}
	return out, nil
}

// eventTypeHeartbeat is the one reserved TLV type; every other type byte is
// an opaque proprietary event.
const eventTypeHeartbeat = 0x00

// Event is one TLV element of an EventPayload. A Heartbeat event
// (Type == eventTypeHeartbeat) carries a RelayPath; every other type is
// opaque proprietary data in Value.
type Event struct {
	Type      byte
	RelayPath []RelayPath
	Value     []byte
}

// NewHeartbeatEvent builds a Heartbeat event with the given relay path.
func NewHeartbeatEvent(path []RelayPath) Event {
	return Event{Type: eventTypeHeartbeat, RelayPath: path}
}

// NewProprietaryEvent builds an opaque proprietary event.
func NewProprietaryEvent(typ byte, value []byte) (Event, error) {
	if typ == eventTypeHeartbeat {
		return Event{}, fmt.Errorf("packets: event type %#x is reserved for heartbeats", typ)
	}
	return Event{Type: typ, Value: value}, nil
}

// IsHeartbeat reports whether this is the reserved heartbeat event.
func (e Event) IsHeartbeat() bool {
	return e.Type == eventTypeHeartbeat
}

func (e Event) toBytes() ([]byte, error) {
	var value []byte
	if e.IsHeartbeat() {
		for _, rp := range e.RelayPath {
			b, err := rp.toBytes()
			if err != nil {
				return nil, err
			}
			value = append(value, b[:]...)
		}
	} else {
		value = e.Value
	}

	if len(value) > 255 {
		return nil, fmt.Errorf("packets: event value too long (%d bytes)", len(value))
	}

	out := make([]byte, 0, 2+len(value))
	out = append(out, e.Type, byte(len(value)))
	out = append(out, value...)
	return out, nil
}

func decodeEvents(b []byte) ([]Event, error) {
	var events []Event

	for len(b) > 0 {
		if len(b) < 2 {
			return nil, fmt.Errorf("packets: truncated event TLV header")
		}
		typ, length := b[0], int(b[1])
		b = b[2:]
		if len(b) < length {
			return nil, fmt.Errorf("packets: truncated event TLV value")
		}
		value := b[:length]
		b = b[length:]

		if typ == eventTypeHeartbeat {
			if length%6 != 0 {
				return nil, fmt.Errorf("packets: invalid amount of relay path bytes")
			}
			var path []RelayPath
			for i := 0; i < length; i += 6 {
				var chunk [6]byte
				copy(chunk[:], value[i:i+6])
				path = append(path, relayPathFromBytes(chunk))
			}
			events = append(events, Event{Type: typ, RelayPath: path})
		} else {
			cp := make([]byte, length)
			copy(cp, value)
			events = append(events, Event{Type: typ, Value: cp})
		}
	}

	return events, nil
}

func encodeEvents(events []Event) ([]byte, error) {
	var out []byte
	for _, e := range events {
		b, err := e.toBytes()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// EventPayload is the body of a MeshPacket{PayloadTypeEvent}. On the wire
// the Events list travels as a single encrypted blob; Cipher is set by
// decode and by Encrypt. Decrypt fills Events from it and leaves Cipher in
// place, so a payload whose Events change must be re-encrypted before
// serialization.
type EventPayload struct {
	Timestamp uint32 // seconds since epoch
	RelayID   [4]byte
	Events    []Event
	Cipher    []byte // opaque encrypted TLV blob
}

const eventPayloadHeaderLen = 8

func eventPayloadFromBytes(b []byte) (EventPayload, error) {
	if len(b) < eventPayloadHeaderLen {
		return EventPayload{}, fmt.Errorf("packets: at least %d bytes are expected for an event payload", eventPayloadHeaderLen)
	}

	var relayID [4]byte
	copy(relayID[:], b[4:8])

	cipher := make([]byte, len(b)-eventPayloadHeaderLen)
	copy(cipher, b[eventPayloadHeaderLen:])

	return EventPayload{
		Timestamp: binary.BigEndian.Uint32(b[0:4]),
		RelayID:   relayID,
		Cipher:    cipher,
	}, nil
}

func (p EventPayload) toBytes() ([]byte, error) {
	if p.Cipher == nil {
		return nil, fmt.Errorf("packets: event payload must be encrypted before serialization")
	}

	out := make([]byte, 0, eventPayloadHeaderLen+len(p.Cipher))
	var ts [4]byte
	binary.BigEndian.PutUint32(ts[:], p.Timestamp)
	out = append(out, ts[:]...)
	out = append(out, p.RelayID[:]...)
	out = append(out, p.Cipher...)
	return out, nil
}
