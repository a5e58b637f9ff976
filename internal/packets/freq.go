package packets

import "fmt"

// encodeFreq packs a frequency in Hz into the 3 big-endian bytes used by
// UplinkMetadata and DownlinkMetadata. Frequencies at or above 2.4GHz step
// by 200Hz (per the LoRaWAN 2.4GHz MAC command frequency encoding), all
// others by 100Hz.
func encodeFreq(freq uint32) ([3]byte, error) {
	var b [3]byte

	step := uint32(100)
	f := freq
	if f >= 2400000000 {
		f /= 2
		step = 200
	}

	if f/100 >= (1 << 24) {
		return b, fmt.Errorf("packets: max frequency value is 2^24 - 1 steps")
	}
	if f%100 != 0 {
		return b, fmt.Errorf("packets: frequency must be a multiple of %d", step)
	}

	v := f / 100
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
	return b, nil
}

// decodeFreq is the inverse of encodeFreq.
func decodeFreq(b []byte) (uint32, error) {
	if len(b) != 3 {
		return 0, fmt.Errorf("packets: 3 bytes expected for frequency")
	}

	freq := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	if freq >= 12000000 {
		return freq * 200, nil
	}
	return freq * 100, nil
}
