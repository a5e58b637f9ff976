package relay

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// LoRaWAN MType values, top 3 bits of MHDR (phy[0]).
const (
	mtypeJoinRequest         = 0x00
	mtypeJoinAccept          = 0x20
	mtypeUnconfirmedDataUp   = 0x40
	mtypeUnconfirmedDataDown = 0x60
	mtypeConfirmedDataUp     = 0x80
	mtypeConfirmedDataDown   = 0xA0
)

// AddrPrefix matches a leading run of bits of a little-endian-on-the-wire
// LoRaWAN address field (DevAddr or JoinEUI) against a configured prefix,
// CIDR style: "26011000/7" or "70B3D57ED0000000/32".
type AddrPrefix struct {
	bytes []byte
	bits  uint8
}

// ParseAddrPrefix parses a "<hex>/<bits>" prefix. hex is the address in its
// normal (big-endian, most-significant-byte-first) display form.
func ParseAddrPrefix(s string) (AddrPrefix, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return AddrPrefix{}, fmt.Errorf("relay: invalid address prefix %q, want <hex>/<bits>", s)
	}

	raw, err := hex.DecodeString(parts[0])
	if err != nil {
		return AddrPrefix{}, fmt.Errorf("relay: invalid address prefix %q: %w", s, err)
	}

	bits, err := strconv.ParseUint(parts[1], 10, 8)
	if err != nil || int(bits) > len(raw)*8 {
		return AddrPrefix{}, fmt.Errorf("relay: invalid prefix length in %q", s)
	}

	return AddrPrefix{bytes: raw, bits: uint8(bits)}, nil
}

// matches reports whether addr (little-endian on the wire, as found in a
// PHYPayload) falls under the prefix. The wire bytes are reversed before
// comparison since LoRaWAN transmits these fields least-significant-byte
// first, while prefixes are written in normal display order.
func (p AddrPrefix) matches(wireAddr []byte) bool {
	if len(wireAddr) < len(p.bytes) {
		return false
	}

	full := p.bits / 8
	rem := p.bits % 8
	for i := uint8(0); i < full; i++ {
		if reversedByte(wireAddr, i) != p.bytes[i] {
			return false
		}
	}
	if rem == 0 {
		return true
	}
	mask := byte(0xFF << (8 - rem))
	return reversedByte(wireAddr, full)&mask == p.bytes[full]&mask
}

// reversedByte returns byte i of wireAddr read from the end, undoing
// LoRaWAN's little-endian wire order for a display-order index.
func reversedByte(wireAddr []byte, i uint8) byte {
	return wireAddr[len(wireAddr)-1-int(i)]
}

// Filters holds the optional pre-filter applied to a device-radio LoRaWAN
// uplink before it is proxied or relayed.
type Filters struct {
	DevAddrPrefixes []AddrPrefix
	JoinEUIPrefixes []AddrPrefix
	LoRaWANOnly     bool
}

// accepts reports whether a device-radio uplink PHYPayload passes the
// configured filters. An empty Filters value accepts every non-empty
// PHYPayload; an empty PHYPayload is always rejected.
func (f Filters) accepts(phy []byte) bool {
	if len(phy) < 1 {
		return false
	}
	mtype := phy[0] & 0xE0

	if f.LoRaWANOnly {
		switch mtype {
		case mtypeJoinRequest, mtypeJoinAccept, mtypeUnconfirmedDataUp, mtypeUnconfirmedDataDown,
			mtypeConfirmedDataUp, mtypeConfirmedDataDown:
		default:
			return false
		}
	}

	switch mtype {
	case mtypeUnconfirmedDataUp, mtypeConfirmedDataUp:
		if len(f.DevAddrPrefixes) == 0 {
			return true
		}
		if len(phy) < 5 {
			return false
		}
		devAddr := phy[1:5]
		for _, prefix := range f.DevAddrPrefixes {
			if prefix.matches(devAddr) {
				return true
			}
		}
		return false
	case mtypeJoinRequest:
		if len(f.JoinEUIPrefixes) == 0 {
			return true
		}
		if len(phy) < 9 {
			return false
		}
		joinEUI := phy[1:9]
		for _, prefix := range f.JoinEUIPrefixes {
			if prefix.matches(joinEUI) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
