package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agsys/gateway-mesh/internal/gw"
)

func TestParseAddrPrefix(t *testing.T) {
	p, err := ParseAddrPrefix("04030201/32")
	require.NoError(t, err)
	assert.Equal(t, uint8(32), p.bits)
	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, p.bytes)

	_, err = ParseAddrPrefix("nothex/8")
	assert.Error(t, err)

	_, err = ParseAddrPrefix("0403")
	assert.Error(t, err)

	_, err = ParseAddrPrefix("0403/99")
	assert.Error(t, err)
}

func TestAddrPrefixMatchesOnWireOrder(t *testing.T) {
	// wire bytes 01 02 03 04 display as DevAddr 04030201.
	wire := []byte{0x01, 0x02, 0x03, 0x04}

	full, err := ParseAddrPrefix("04030201/32")
	require.NoError(t, err)
	assert.True(t, full.matches(wire))

	partial, err := ParseAddrPrefix("04030000/16")
	require.NoError(t, err)
	assert.True(t, partial.matches(wire))

	mismatch, err := ParseAddrPrefix("ff030201/32")
	require.NoError(t, err)
	assert.False(t, mismatch.matches(wire))

	unaligned, err := ParseAddrPrefix("04030200/15")
	require.NoError(t, err)
	assert.True(t, unaligned.matches(wire))
}

func TestFiltersAcceptsEmptyFilter(t *testing.T) {
	var f Filters
	assert.True(t, f.accepts([]byte{0x40, 0x01, 0x02, 0x03, 0x04}))
}

func TestFiltersDevAddrPrefixAcceptsAndRejects(t *testing.T) {
	match, err := ParseAddrPrefix("04030201/32")
	require.NoError(t, err)
	f := Filters{DevAddrPrefixes: []AddrPrefix{match}}
	assert.True(t, f.accepts([]byte{0x40, 0x01, 0x02, 0x03, 0x04}))

	other, err := ParseAddrPrefix("aabbccdd/32")
	require.NoError(t, err)
	f = Filters{DevAddrPrefixes: []AddrPrefix{other}}
	assert.False(t, f.accepts([]byte{0x40, 0x01, 0x02, 0x03, 0x04}))
}

func TestFiltersJoinEUIPrefix(t *testing.T) {
	joinReq := []byte{0x00, 1, 2, 3, 4, 5, 6, 7, 8, 9, 9, 0, 0}
	match, err := ParseAddrPrefix("0807060504030201/64")
	require.NoError(t, err)
	f := Filters{JoinEUIPrefixes: []AddrPrefix{match}}
	assert.True(t, f.accepts(joinReq))

	other, err := ParseAddrPrefix("ffffffffffffffff/64")
	require.NoError(t, err)
	f = Filters{JoinEUIPrefixes: []AddrPrefix{other}}
	assert.False(t, f.accepts(joinReq))
}

func TestFiltersLoRaWANOnlyRejectsRFUTypes(t *testing.T) {
	f := Filters{LoRaWANOnly: true}
	assert.False(t, f.accepts([]byte{0xC0, 1, 2, 3, 4}))
	assert.True(t, f.accepts([]byte{0x40, 1, 2, 3, 4}))
}

func TestHandleUplinkEventRejectedByFilters(t *testing.T) {
	e, _, _, pub := newTestEngine(t, true, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})
	other, err := ParseAddrPrefix("aabbccdd/32")
	require.NoError(t, err)
	e.cfg.Filters = Filters{DevAddrPrefixes: []AddrPrefix{other}}

	err = e.HandleConcentratorEvent(context.Background(), &gw.Event{UplinkFrame: lorawanUplinkFrame()})
	require.NoError(t, err)
	assert.Empty(t, pub.uplinks)
}

func TestHandleUplinkEventIgnoreDirectUplinksOnBorder(t *testing.T) {
	e, _, _, pub := newTestEngine(t, true, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})
	e.cfg.IgnoreDirectUplinks = true

	err := e.HandleConcentratorEvent(context.Background(), &gw.Event{UplinkFrame: lorawanUplinkFrame()})
	require.NoError(t, err)
	assert.Empty(t, pub.uplinks)
}
