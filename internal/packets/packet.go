package packets

import (
	"fmt"

	"github.com/agsys/gateway-mesh/internal/meshcrypto"
)

// MeshPacket is the sole on-air proprietary frame. Exactly one of Uplink,
// Downlink, Event, Command is non-nil, selected by MHDR.PayloadType — the
// same nilable-pointer oneof shape used for the gw wire types.
type MeshPacket struct {
	MHDR MHDR

	Uplink   *UplinkPayload
	Downlink *DownlinkPayload
	Event    *EventPayload
	Command  *CommandPayload

	MIC *[4]byte
}

// IsMeshFrame reports whether b looks like a MeshPacket (top 3 bits of the
// first byte are the proprietary MType) as opposed to opaque LoRa PHY.
func IsMeshFrame(b []byte) bool {
	return len(b) > 0 && b[0]&0xe0 == 0xe0
}

// Decode parses a MeshPacket from its wire bytes. Callers should check
// IsMeshFrame first; Decode does not distinguish "not a mesh frame" from a
// malformed one.
func Decode(b []byte) (*MeshPacket, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("packets: input is empty")
	}
	if len(b) < 5 {
		return nil, fmt.Errorf("packets: not enough bytes to decode mhdr + mic")
	}

	mhdr, err := mhdrFromByte(b[0])
	if err != nil {
		return nil, err
	}

	body := b[1 : len(b)-4]

	var mic [4]byte
	copy(mic[:], b[len(b)-4:])

	p := &MeshPacket{MHDR: mhdr, MIC: &mic}

	switch mhdr.PayloadType {
	case PayloadTypeUplink:
		v, err := uplinkPayloadFromBytes(body)
		if err != nil {
			return nil, err
		}
		p.Uplink = &v
	case PayloadTypeDownlink:
		v, err := downlinkPayloadFromBytes(body)
		if err != nil {
			return nil, err
		}
		p.Downlink = &v
	case PayloadTypeEvent:
		v, err := eventPayloadFromBytes(body)
		if err != nil {
			return nil, err
		}
		p.Event = &v
	case PayloadTypeCommand:
		v, err := commandPayloadFromBytes(body)
		if err != nil {
			return nil, err
		}
		p.Command = &v
	default:
		return nil, fmt.Errorf("packets: unhandled payload type %s", mhdr.PayloadType)
	}

	return p, nil
}

func (p *MeshPacket) bodyBytes() ([]byte, error) {
	switch {
	case p.Uplink != nil:
		return p.Uplink.toBytes()
	case p.Downlink != nil:
		return p.Downlink.toBytes()
	case p.Event != nil:
		return p.Event.toBytes()
	case p.Command != nil:
		return p.Command.toBytes()
	default:
		return nil, fmt.Errorf("packets: no payload set")
	}
}

// micBytes returns header_byte || variant_body_bytes, i.e. everything the
// MIC is computed over (the MIC trailer itself is excluded).
func (p *MeshPacket) micBytes() ([]byte, error) {
	h, err := p.MHDR.toByte()
	if err != nil {
		return nil, err
	}

	body, err := p.bodyBytes()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 1+len(body))
	out = append(out, h)
	out = append(out, body...)
	return out, nil
}

// Encode serializes the packet. The MIC must already be set.
func (p *MeshPacket) Encode() ([]byte, error) {
	if p.MIC == nil {
		return nil, fmt.Errorf("packets: MIC is not set")
	}

	b, err := p.micBytes()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(b)+4)
	out = append(out, b...)
	out = append(out, p.MIC[:]...)
	return out, nil
}

func (p *MeshPacket) calculateMIC(key meshcrypto.Key16) ([4]byte, error) {
	b, err := p.micBytes()
	if err != nil {
		return [4]byte{}, err
	}
	return meshcrypto.CalculateMIC(key, b)
}

// SetMIC computes and stores the packet's MIC under the given signing key.
func (p *MeshPacket) SetMIC(key meshcrypto.Key16) error {
	mic, err := p.calculateMIC(key)
	if err != nil {
		return err
	}
	p.MIC = &mic
	return nil
}

// ValidateMIC reports whether the stored MIC matches the one computed
// under the given signing key.
func (p *MeshPacket) ValidateMIC(key meshcrypto.Key16) (bool, error) {
	if p.MIC == nil {
		return false, fmt.Errorf("packets: MIC is not set")
	}
	mic, err := p.calculateMIC(key)
	if err != nil {
		return false, err
	}
	return mic == *p.MIC, nil
}

// Encrypt encrypts an Event or Command payload's plaintext TLV list into
// its wire Cipher blob, under the given encryption key. A no-op for
// Uplink/Downlink packets.
func (p *MeshPacket) Encrypt(key meshcrypto.Key16) error {
	switch {
	case p.Event != nil:
		plain, err := encodeEvents(p.Event.Events)
		if err != nil {
			return err
		}
		cipher, err := meshcrypto.CounterCrypt(key, p.Event.RelayID, p.Event.Timestamp, false, plain)
		if err != nil {
			return err
		}
		p.Event.Cipher = cipher
		return nil
	case p.Command != nil:
		plain, err := encodeCommands(p.Command.Commands)
		if err != nil {
			return err
		}
		cipher, err := meshcrypto.CounterCrypt(key, p.Command.RelayID, p.Command.Timestamp, true, plain)
		if err != nil {
			return err
		}
		p.Command.Cipher = cipher
		return nil
	default:
		return nil
	}
}

// Decrypt is Encrypt's inverse: it recovers the plaintext TLV list from the
// wire Cipher blob. A no-op for Uplink/Downlink packets.
func (p *MeshPacket) Decrypt(key meshcrypto.Key16) error {
	switch {
	case p.Event != nil:
		plain, err := meshcrypto.CounterCrypt(key, p.Event.RelayID, p.Event.Timestamp, false, p.Event.Cipher)
		if err != nil {
			return err
		}
		events, err := decodeEvents(plain)
		if err != nil {
			return err
		}
		p.Event.Events = events
		return nil
	case p.Command != nil:
		plain, err := meshcrypto.CounterCrypt(key, p.Command.RelayID, p.Command.Timestamp, true, p.Command.Cipher)
		if err != nil {
			return err
		}
		commands, err := decodeCommands(plain)
		if err != nil {
			return err
		}
		p.Command.Commands = commands
		return nil
	default:
		return nil
	}
}

// IncrementHopCount bumps the hop count by one, returning an error if it
// would exceed maxHopCount. Callers MUST re-encrypt and recompute the MIC
// after calling this, before retransmission.
func (p *MeshPacket) IncrementHopCount(maxHopCount uint8) error {
	next := p.MHDR.HopCount + 1
	if next > maxHopCount {
		return fmt.Errorf("packets: hop count %d exceeds max_hop_count %d", next, maxHopCount)
	}
	p.MHDR.HopCount = next
	return nil
}

func (p *MeshPacket) String() string {
	mic := "none"
	if p.MIC != nil {
		mic = fmt.Sprintf("%x", p.MIC[:])
	}

	switch {
	case p.Uplink != nil:
		return fmt.Sprintf("[%s hop_count: %d, uplink_id: %d, relay_id: %x, mic: %s]",
			p.MHDR.PayloadType, p.MHDR.HopCount, p.Uplink.Metadata.UplinkID, p.Uplink.RelayID, mic)
	case p.Downlink != nil:
		return fmt.Sprintf("[%s hop_count: %d, uplink_id: %d, relay_id: %x, mic: %s]",
			p.MHDR.PayloadType, p.MHDR.HopCount, p.Downlink.Metadata.UplinkID, p.Downlink.RelayID, mic)
	case p.Event != nil:
		return fmt.Sprintf("[%s hop_count: %d, timestamp: %d, relay_id: %x, mic: %s]",
			p.MHDR.PayloadType, p.MHDR.HopCount, p.Event.Timestamp, p.Event.RelayID, mic)
	case p.Command != nil:
		return fmt.Sprintf("[%s hop_count: %d, timestamp: %d, relay_id: %x, mic: %s]",
			p.MHDR.PayloadType, p.MHDR.HopCount, p.Command.Timestamp, p.Command.RelayID, mic)
	default:
		return fmt.Sprintf("[%s hop_count: %d, mic: %s]", p.MHDR.PayloadType, p.MHDR.HopCount, mic)
	}
}
