package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agsys/gateway-mesh/internal/gw"
	"github.com/agsys/gateway-mesh/internal/mapping"
	"github.com/agsys/gateway-mesh/internal/meshcrypto"
	"github.com/agsys/gateway-mesh/internal/packets"
)

type mockRadio struct {
	gatewayID [8]byte
	sent      []*gw.DownlinkFrame
	ack       *gw.DownlinkTxAck
	sendErr   error
	cfgErr    error
	gotCfg    *gw.GatewayConfiguration
}

func (m *mockRadio) SendDownlink(ctx context.Context, frame *gw.DownlinkFrame) (*gw.DownlinkTxAck, error) {
	m.sent = append(m.sent, frame)
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	if m.ack != nil {
		return m.ack, nil
	}
	return &gw.DownlinkTxAck{Items: []*gw.DownlinkTxAckItem{{Status: gw.TxAckStatusOK}}}, nil
}

func (m *mockRadio) SendGatewayConfiguration(ctx context.Context, cfg *gw.GatewayConfiguration) error {
	m.gotCfg = cfg
	return m.cfgErr
}

func (m *mockRadio) GatewayID() [8]byte { return m.gatewayID }

type mockPublisher struct {
	uplinks []*gw.UplinkFrame
	stats   []*gw.GatewayStats
	events  []*gw.MeshEvent
}

func (m *mockPublisher) PublishUplink(frame *gw.UplinkFrame) error {
	m.uplinks = append(m.uplinks, frame)
	return nil
}

func (m *mockPublisher) PublishStats(stats *gw.GatewayStats) error {
	m.stats = append(m.stats, stats)
	return nil
}

func (m *mockPublisher) PublishMeshEvent(event *gw.MeshEvent) error {
	m.events = append(m.events, event)
	return nil
}

func testConfig() Config {
	cr45 := mapping.CodeRateCr45
	return Config{
		MaxHopCount:     4,
		MeshFrequencies: []uint32{868100000, 868300000},
		MeshDataRate:    mapping.DataRate{Modulation: mapping.ModulationLoRa, SpreadingFactor: 7, Bandwidth: 125000, CodeRate: &cr45},
		MeshTxPower:     14,
		Channels:        mapping.NewChannels([]uint32{868100000, 868300000, 868500000}),
		DataRates: mapping.NewDataRates([]mapping.DataRate{
			{Modulation: mapping.ModulationLoRa, SpreadingFactor: 7, Bandwidth: 125000, CodeRate: &cr45},
			{Modulation: mapping.ModulationLoRa, SpreadingFactor: 8, Bandwidth: 125000, CodeRate: &cr45},
		}),
		TxPowers: mapping.NewTxPowers([]int32{2, 6, 10, 14}),
		RootKey:  meshcrypto.Key16{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
	}
}

func newTestEngine(t *testing.T, border bool, deviceID [8]byte) (*Engine, *mockRadio, *mockRadio, *mockPublisher) {
	t.Helper()
	cfg := testConfig()
	cfg.BorderGateway = border

	device := &mockRadio{gatewayID: deviceID}
	mesh := &mockRadio{gatewayID: deviceID}
	pub := &mockPublisher{}

	var publisher EventPublisher
	if border {
		publisher = pub
	}

	e, err := New(cfg, device, mesh, publisher)
	require.NoError(t, err)
	return e, device, mesh, pub
}

func lorawanUplinkFrame() *gw.UplinkFrame {
	return &gw.UplinkFrame{
		PHYPayload: []byte{0x40, 0x01, 0x02, 0x03, 0x04},
		RxInfo: &gw.UplinkRxInfo{
			UplinkID:  1,
			RSSI:      -80,
			SNR:       5,
			CRCStatus: gw.CRCStatusCRCOK,
			Context:   []byte{0xde, 0xad, 0xbe, 0xef},
			Metadata:  map[string]string{},
		},
		TxInfo: &gw.UplinkTxInfo{
			Frequency: 868100000,
			Modulation: &gw.Modulation{Lora: &gw.LoraModulationInfo{
				Bandwidth: 125000, SpreadingFactor: 7, CodeRate: gw.CodeRateCr45,
			}},
		},
	}
}

func TestProxyUplinkLoRaPacketOnBorderGateway(t *testing.T) {
	e, _, mesh, pub := newTestEngine(t, true, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	err := e.HandleConcentratorEvent(context.Background(), &gw.Event{UplinkFrame: lorawanUplinkFrame()})
	require.NoError(t, err)

	require.Len(t, pub.uplinks, 1)
	assert.Empty(t, mesh.sent)
}

func TestRelayUplinkLoRaPacketOnRelayGateway(t *testing.T) {
	e, _, mesh, _ := newTestEngine(t, false, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	err := e.HandleConcentratorEvent(context.Background(), &gw.Event{UplinkFrame: lorawanUplinkFrame()})
	require.NoError(t, err)

	require.Len(t, mesh.sent, 1)
	packet, err := packets.Decode(mesh.sent[0].Items[0].PHYPayload)
	require.NoError(t, err)
	require.NotNil(t, packet.Uplink)
	assert.Equal(t, [4]byte{5, 6, 7, 8}, packet.Uplink.RelayID)
}

func TestDiscardsUplinkWithBadCRC(t *testing.T) {
	e, _, mesh, pub := newTestEngine(t, true, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	frame := lorawanUplinkFrame()
	frame.RxInfo.CRCStatus = gw.CRCStatusBadCRC

	err := e.HandleConcentratorEvent(context.Background(), &gw.Event{UplinkFrame: frame})
	require.NoError(t, err)
	assert.Empty(t, pub.uplinks)
	assert.Empty(t, mesh.sent)
}

func TestPublishesGatewayStatsOnBorderGateway(t *testing.T) {
	e, _, _, pub := newTestEngine(t, true, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	err := e.HandleConcentratorEvent(context.Background(), &gw.Event{GatewayStats: &gw.GatewayStats{RxPacketsReceived: 3}})
	require.NoError(t, err)
	require.Len(t, pub.stats, 1)
	assert.Equal(t, uint32(3), pub.stats[0].RxPacketsReceived)
}

func buildMeshUplinkFrame(t *testing.T, e *Engine, relayID [4]byte) *gw.UplinkFrame {
	t.Helper()

	packet := &packets.MeshPacket{
		MHDR: packets.MHDR{PayloadType: packets.PayloadTypeUplink, HopCount: 1},
		Uplink: &packets.UplinkPayload{
			Metadata:   packets.UplinkMetadata{UplinkID: 42, DR: 0, RSSI: -70, SNR: 3, Channel: 0},
			RelayID:    relayID,
			PHYPayload: []byte{0x40, 0xaa, 0xbb},
		},
	}
	require.NoError(t, packet.SetMIC(e.signingKey))

	data, err := packet.Encode()
	require.NoError(t, err)

	return &gw.UplinkFrame{
		PHYPayload: data,
		RxInfo:     &gw.UplinkRxInfo{CRCStatus: gw.CRCStatusCRCOK, Metadata: map[string]string{}},
		TxInfo:     &gw.UplinkTxInfo{Frequency: 868100000},
	}
}

func TestProxyUplinkMeshPacketOnBorderGateway(t *testing.T) {
	e, _, _, pub := newTestEngine(t, true, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	frame := buildMeshUplinkFrame(t, e, [4]byte{9, 9, 9, 9})
	err := e.HandleConcentratorEvent(context.Background(), &gw.Event{UplinkFrame: frame})
	require.NoError(t, err)

	require.Len(t, pub.uplinks, 1)
	assert.Equal(t, []byte{0x40, 0xaa, 0xbb}, pub.uplinks[0].PHYPayload)
}

func TestRelayMeshPacketDropsOwnUplink(t *testing.T) {
	ownRelayID := [4]byte{5, 6, 7, 8}
	e, _, mesh, _ := newTestEngine(t, false, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	frame := buildMeshUplinkFrame(t, e, ownRelayID)
	err := e.HandleConcentratorEvent(context.Background(), &gw.Event{UplinkFrame: frame})
	require.NoError(t, err)
	assert.Empty(t, mesh.sent)
}

func TestRelayMeshPacketReRelaysOthers(t *testing.T) {
	e, _, mesh, _ := newTestEngine(t, false, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	frame := buildMeshUplinkFrame(t, e, [4]byte{9, 9, 9, 9})
	err := e.HandleConcentratorEvent(context.Background(), &gw.Event{UplinkFrame: frame})
	require.NoError(t, err)

	require.Len(t, mesh.sent, 1)
	packet, err := packets.Decode(mesh.sent[0].Items[0].PHYPayload)
	require.NoError(t, err)
	assert.Equal(t, uint8(2), packet.MHDR.HopCount)
}

func TestHandleGetGatewayID(t *testing.T) {
	e, _, _, _ := newTestEngine(t, true, [8]byte{0xde, 0xad, 0xbe, 0xef, 1, 2, 3, 4})

	resp, err := e.HandleGetGatewayID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "deadbeef01020304", resp.GatewayID)
}

func TestHandleGatewayConfiguration(t *testing.T) {
	e, device, _, _ := newTestEngine(t, true, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	err := e.HandleGatewayConfiguration(context.Background(), &gw.GatewayConfiguration{Version: "v3"})
	require.NoError(t, err)
	require.NotNil(t, device.gotCfg)
	assert.Equal(t, "v3", device.gotCfg.Version)
}

func TestHandleMeshCommandSendsEncryptedPacket(t *testing.T) {
	e, _, mesh, _ := newTestEngine(t, true, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	err := e.HandleMeshCommand(context.Background(), &gw.MeshCommand{
		RelayID: "05060708",
		Commands: []*gw.MeshCommandItem{{
			Proprietary: &gw.MeshCommandProprietary{CommandType: 1, Payload: []byte("reboot")},
		}},
	})
	require.NoError(t, err)
	require.Len(t, mesh.sent, 1)

	packet, err := packets.Decode(mesh.sent[0].Items[0].PHYPayload)
	require.NoError(t, err)
	require.NotNil(t, packet.Command)
	assert.Equal(t, [4]byte{5, 6, 7, 8}, packet.Command.RelayID)
	assert.NotNil(t, packet.Command.Cipher)
}

func TestHandleDownlinkProxiesWithoutRelayContext(t *testing.T) {
	e, device, mesh, _ := newTestEngine(t, true, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	frame := &gw.DownlinkFrame{Items: []*gw.DownlinkFrameItem{{
		PHYPayload: []byte{0x60},
		TxInfo:     &gw.DownlinkTxInfo{Frequency: 868100000},
	}}}

	_, err := e.HandleDownlink(context.Background(), frame)
	require.NoError(t, err)
	assert.Len(t, device.sent, 1)
	assert.Empty(t, mesh.sent)
}

func TestHandleDownlinkRelaysWithRelayContext(t *testing.T) {
	e, device, mesh, _ := newTestEngine(t, true, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	ctxBytes := append(append([]byte{}, ctxPrefix[:]...), []byte{9, 9, 9, 9, 0, 1}...)
	frame := &gw.DownlinkFrame{Items: []*gw.DownlinkFrameItem{{
		PHYPayload: []byte{0x60},
		TxInfo: &gw.DownlinkTxInfo{
			Frequency: 868100000,
			Power:     14,
			Modulation: &gw.Modulation{Lora: &gw.LoraModulationInfo{
				Bandwidth: 125000, SpreadingFactor: 7, CodeRate: gw.CodeRateCr45,
			}},
			Timing:  &gw.Timing{Delay: &gw.DelayTimingInfo{Delay: 5 * time.Second}},
			Context: ctxBytes,
		},
	}}}

	_, err := e.HandleDownlink(context.Background(), frame)
	require.NoError(t, err)
	assert.Empty(t, device.sent)
	require.Len(t, mesh.sent, 1)

	packet, err := packets.Decode(mesh.sent[0].Items[0].PHYPayload)
	require.NoError(t, err)
	require.NotNil(t, packet.Downlink)
	assert.Equal(t, [4]byte{9, 9, 9, 9}, packet.Downlink.RelayID)
}
