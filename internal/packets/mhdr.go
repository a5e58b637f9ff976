// Package packets implements the mesh on-air binary frame format: the
// MeshPacket header, its Uplink/Downlink/Event/Command payload variants,
// the CMAC-AES-128 MIC, and the counter-mode payload encryption used for
// Event and Command frames.
package packets

import "fmt"

// PayloadType is the 2-bit discriminator packed into the MHDR.
type PayloadType uint8

const (
	PayloadTypeUplink PayloadType = iota
	PayloadTypeDownlink
	PayloadTypeEvent
	PayloadTypeCommand
)

func (t PayloadType) String() string {
	switch t {
	case PayloadTypeUplink:
		return "Uplink"
	case PayloadTypeDownlink:
		return "Downlink"
	case PayloadTypeEvent:
		return "Event"
	case PayloadTypeCommand:
		return "Command"
	default:
		return fmt.Sprintf("PayloadType(%d)", uint8(t))
	}
}

func payloadTypeFromByte(b uint8) (PayloadType, error) {
	switch b {
	case 0x00:
		return PayloadTypeUplink, nil
	case 0x01:
		return PayloadTypeDownlink, nil
	case 0x02:
		return PayloadTypeEvent, nil
	case 0x03:
		return PayloadTypeCommand, nil
	default:
		return 0, fmt.Errorf("packets: unexpected payload type %d", b)
	}
}

// MHDR is the MeshPacket's single header byte: top 3 bits are the fixed
// LoRaWAN "proprietary" MType (0b111), next 2 bits are the PayloadType, and
// the low 3 bits are hop_count-1.
type MHDR struct {
	PayloadType PayloadType
	HopCount    uint8 // 1..=8
}

const mtypeProprietary = 0x07

func mhdrFromByte(b uint8) (MHDR, error) {
	if b>>5 != mtypeProprietary {
		return MHDR{}, fmt.Errorf("packets: invalid MType")
	}

	pt, err := payloadTypeFromByte((b >> 3) & 0x03)
	if err != nil {
		return MHDR{}, err
	}

	return MHDR{
		PayloadType: pt,
		HopCount:    (b & 0x07) + 1,
	}, nil
}

func (h MHDR) toByte() (byte, error) {
	if h.HopCount == 0 {
		return 0, fmt.Errorf("packets: min hop_count is 1")
	}
	if h.HopCount > 8 {
		return 0, fmt.Errorf("packets: max hop_count is 8")
	}

	return mtypeProprietary<<5 | uint8(h.PayloadType)<<3 | (h.HopCount - 1), nil
}
