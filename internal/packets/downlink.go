package packets

import (
	"encoding/binary"
	"fmt"
)

// DownlinkMetadata is the 6-byte fixed header of a DownlinkPayload.
type DownlinkMetadata struct {
	UplinkID  uint16 // 12 bits, 0..=4095
	DR        uint8  // 4 bits, 0..=15
	Frequency uint32 // Hz
	TxPower   uint8  // 4 bits, index into the tx_power table
	Delay     uint8  // 1..=16 seconds
}

func downlinkMetadataFromBytes(b [6]byte) (DownlinkMetadata, error) {
	freq, err := decodeFreq(b[2:5])
	if err != nil {
		return DownlinkMetadata{}, err
	}

	return DownlinkMetadata{
		UplinkID:  binary.BigEndian.Uint16(b[0:2]) >> 4,
		DR:        b[1] & 0x0f,
		Frequency: freq,
		TxPower:   (b[5] & 0xf0) >> 4,
		Delay:     (b[5] & 0x0f) + 1,
	}, nil
}

func (m DownlinkMetadata) toBytes() ([6]byte, error) {
	var out [6]byte

	if m.UplinkID > 4095 {
		return out, fmt.Errorf("packets: max uplink_id value is 4095")
	}
	if m.DR > 15 {
		return out, fmt.Errorf("packets: max dr value is 15")
	}
	if m.Delay < 1 {
		return out, fmt.Errorf("packets: min delay value is 1")
	}
	if m.Delay > 16 {
		return out, fmt.Errorf("packets: max delay value is 16")
	}
	if m.TxPower > 15 {
		return out, fmt.Errorf("packets: max tx_power value is 15")
	}

	freqB, err := encodeFreq(m.Frequency)
	if err != nil {
		return out, err
	}

	var idb [2]byte
	binary.BigEndian.PutUint16(idb[:], m.UplinkID<<4)

	out[0] = idb[0]
	out[1] = idb[1] | m.DR
	out[2] = freqB[0]
	out[3] = freqB[1]
	out[4] = freqB[2]
	out[5] = m.TxPower<<4 | (m.Delay - 1)

	return out, nil
}

// DownlinkPayload is the body of a MeshPacket{PayloadTypeDownlink}.
type DownlinkPayload struct {
	Metadata   DownlinkMetadata
	RelayID    [4]byte
	PHYPayload []byte
}

func downlinkPayloadFromBytes(b []byte) (DownlinkPayload, error) {
	if len(b) < 10 {
		return DownlinkPayload{}, fmt.Errorf("packets: at least 10 bytes are expected for a downlink payload")
	}

	var md [6]byte
	copy(md[:], b[0:6])

	var relayID [4]byte
	copy(relayID[:], b[6:10])

	md2, err := downlinkMetadataFromBytes(md)
	if err != nil {
		return DownlinkPayload{}, err
	}

	phy := make([]byte, len(b)-10)
	copy(phy, b[10:])

	return DownlinkPayload{
		Metadata:   md2,
		RelayID:    relayID,
		PHYPayload: phy,
	}, nil
}

func (p DownlinkPayload) toBytes() ([]byte, error) {
	md, err := p.Metadata.toBytes()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 10+len(p.PHYPayload))
	out = append(out, md[:]...)
	out = append(out, p.RelayID[:]...)
	out = append(out, p.PHYPayload...)
	return out, nil
}
