package packets

import (
	"encoding/binary"
	"fmt"
)

// UplinkMetadata is the 5-byte fixed header of an UplinkPayload.
type UplinkMetadata struct {
	UplinkID uint16 // 12 bits, 0..=4095
	DR       uint8  // 4 bits, 0..=15
	RSSI     int16  // 0..=-255
	SNR      int8   // -32..=31
	Channel  uint8
}

func uplinkMetadataFromBytes(b [5]byte) UplinkMetadata {
	snr := b[3] & 0x3f
	var s int8
	if snr > 31 {
		s = int8(snr) - 64
	} else {
		s = int8(snr)
	}

	return UplinkMetadata{
		UplinkID: binary.BigEndian.Uint16(b[0:2]) >> 4,
		DR:       b[1] & 0x0f,
		RSSI:     -int16(b[2]),
		SNR:      s,
		Channel:  b[4],
	}
}

func (m UplinkMetadata) toBytes() ([5]byte, error) {
	var out [5]byte

	if m.UplinkID > 4095 {
		return out, fmt.Errorf("packets: max uplink_id value is 4095")
	}
	if m.DR > 15 {
		return out, fmt.Errorf("packets: max dr value is 15")
	}
	if m.RSSI > 0 {
		return out, fmt.Errorf("packets: max rssi value is 0")
	}
	if m.RSSI < -255 {
		return out, fmt.Errorf("packets: min rssi value is -255")
	}
	if m.SNR < -32 {
		return out, fmt.Errorf("packets: min snr value is -32")
	}
	if m.SNR > 31 {
		return out, fmt.Errorf("packets: max snr value is 31")
	}

	var idb [2]byte
	binary.BigEndian.PutUint16(idb[:], m.UplinkID<<4)

	out[0] = idb[0]
	out[1] = idb[1] | m.DR
	out[2] = byte(-m.RSSI)
	if m.SNR < 0 {
		out[3] = byte(m.SNR + 64)
	} else {
		out[3] = byte(m.SNR)
	}
	out[4] = m.Channel

	return out, nil
}

// UplinkPayload is the body of a MeshPacket{PayloadTypeUplink}.
type UplinkPayload struct {
	Metadata   UplinkMetadata
	RelayID    [4]byte
	PHYPayload []byte
}

func uplinkPayloadFromBytes(b []byte) (UplinkPayload, error) {
	if len(b) < 9 {
		return UplinkPayload{}, fmt.Errorf("packets: at least 9 bytes are expected for an uplink payload")
	}

	var md [5]byte
	copy(md[:], b[0:5])

	var relayID [4]byte
	copy(relayID[:], b[5:9])

	phy := make([]byte, len(b)-9)
	copy(phy, b[9:])

	return UplinkPayload{
		Metadata:   uplinkMetadataFromBytes(md),
		RelayID:    relayID,
		PHYPayload: phy,
	}, nil
}

func (p UplinkPayload) toBytes() ([]byte, error) {
	md, err := p.Metadata.toBytes()
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 9+len(p.PHYPayload))
	out = append(out, md[:]...)
	out = append(out, p.RelayID[:]...)
	out = append(out, p.PHYPayload...)
	return out, nil
}
