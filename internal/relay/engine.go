// Package relay implements the mesh relay engine: the packet dispatch
// that sits between a node's own LoRa concentrator, its mesh concentrator,
// and (on a Border Gateway only) the upstream forwarder API. It is the
// single place that knows how to wrap a LoRaWAN frame into a MeshPacket,
// unwrap one back out, and decide when to do which.
package relay

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agsys/gateway-mesh/internal/dedup"
	"github.com/agsys/gateway-mesh/internal/gw"
	"github.com/agsys/gateway-mesh/internal/hopper"
	"github.com/agsys/gateway-mesh/internal/meshcrypto"
	"github.com/agsys/gateway-mesh/internal/packets"
	"github.com/agsys/gateway-mesh/internal/uplinkctx"
)

// ctxPrefix tags the DownlinkTxInfo.Context bytes this engine itself
// produced (relay_id[4] + uplink_id[2] follow it), distinguishing a
// relayed downlink's context from one the concentrator invented for a
// directly-received LoRaWAN uplink.
var ctxPrefix = [3]byte{1, 2, 3}

const dedupCacheCapacity = 64

// Radio is the subset of backend.Radio the engine needs from a
// concentrator connection.
type Radio interface {
	SendDownlink(ctx context.Context, frame *gw.DownlinkFrame) (*gw.DownlinkTxAck, error)
	SendGatewayConfiguration(ctx context.Context, cfg *gw.GatewayConfiguration) error
	GatewayID() [8]byte
}

// EventPublisher is the subset of forwarder.Forwarder the engine needs to
// publish events upstream. Only non-nil on a Border Gateway.
type EventPublisher interface {
	PublishUplink(frame *gw.UplinkFrame) error
	PublishStats(stats *gw.GatewayStats) error
	PublishMeshEvent(event *gw.MeshEvent) error
}

// Engine is the mesh relay state machine. One Engine serves both roles
// (Border Gateway or Relay Gateway); cfg.BorderGateway picks the behavior.
type Engine struct {
	cfg Config

	device    Radio
	mesh      Radio
	forwarder EventPublisher

	hop       *hopper.Hopper
	cache     *dedup.Cache
	uplinkCtx *uplinkctx.Store

	signingKey meshcrypto.Key16
	encKey     meshcrypto.Key16

	commandTimestamps commandTimestamps
}

// New builds an Engine. device is the node's own concentrator; mesh is the
// mesh-radio concentrator; forwarder may be nil on a Relay Gateway.
func New(cfg Config, device, mesh Radio, forwarder EventPublisher) (*Engine, error) {
	signingKey, err := meshcrypto.SigningKey(cfg.RootKey, cfg.SigningKeyOverride)
	if err != nil {
		return nil, fmt.Errorf("relay: derive signing key: %w", err)
	}
	encKey, err := meshcrypto.DeriveEncryptionKey(cfg.RootKey)
	if err != nil {
		return nil, fmt.Errorf("relay: derive encryption key: %w", err)
	}

	return &Engine{
		cfg:        cfg,
		device:     device,
		mesh:       mesh,
		forwarder:  forwarder,
		hop:        hopper.New(cfg.MeshFrequencies),
		cache:      dedup.New(dedupCacheCapacity),
		uplinkCtx:  uplinkctx.New(),
		signingKey: signingKey,
		encKey:     encKey,
	}, nil
}

// SetForwarder attaches the upstream event publisher after construction,
// for the Border Gateway case where the forwarder's command handler is the
// engine itself and so cannot be built before it.
func (e *Engine) SetForwarder(p EventPublisher) {
	e.forwarder = p
}

// relayID returns the effective relay id: from the device concentrator's
// gateway id low 4 bytes unless cfg.RelayID was explicitly overridden.
func (e *Engine) relayID() [4]byte {
	if e.cfg.RelayID != ([4]byte{}) {
		return e.cfg.RelayID
	}
	id := e.device.GatewayID()
	var relayID [4]byte
	copy(relayID[:], id[4:])
	return relayID
}

// HandleConcentratorEvent processes an event from the node's own device
// concentrator: CRC-valid uplinks are routed to the LoRaWAN or mesh path
// by inspecting the PHYPayload; stats are forwarded upstream on a Border
// Gateway.
func (e *Engine) HandleConcentratorEvent(ctx context.Context, event *gw.Event) error {
	switch {
	case event.UplinkFrame != nil:
		return e.handleUplinkEvent(ctx, event.UplinkFrame)
	case event.GatewayStats != nil:
		if e.cfg.BorderGateway && e.forwarder != nil {
			return e.forwarder.PublishStats(event.GatewayStats)
		}
		return nil
	default:
		return nil
	}
}

// HandleMeshConcentratorEvent processes an event from the mesh-radio
// concentrator: every frame received here must be a proprietary
// MeshPacket, since that is the only thing ever transmitted on the mesh
// channel.
func (e *Engine) HandleMeshConcentratorEvent(ctx context.Context, event *gw.Event) error {
	frame := event.UplinkFrame
	if frame == nil {
		return nil
	}
	if frame.RxInfo != nil && frame.RxInfo.CRCStatus != gw.CRCStatusCRCOK {
		return nil
	}
	if !packets.IsMeshFrame(frame.PHYPayload) {
		return nil
	}
	return e.handleMesh(ctx, frame)
}

func (e *Engine) handleUplinkEvent(ctx context.Context, frame *gw.UplinkFrame) error {
	if frame.RxInfo != nil && frame.RxInfo.CRCStatus != gw.CRCStatusCRCOK {
		logrus.WithField("uplink_id", frame.RxInfo.UplinkID).Debug("discarding uplink, CRC != OK")
		return nil
	}

	if packets.IsMeshFrame(frame.PHYPayload) {
		return e.handleMesh(ctx, frame)
	}

	if !e.cfg.Filters.accepts(frame.PHYPayload) {
		logrus.WithField("uplink_id", frame.RxInfo.UplinkID).Debug("discarding uplink, rejected by filters")
		return nil
	}

	if e.cfg.BorderGateway {
		if e.cfg.IgnoreDirectUplinks {
			return nil
		}
		return e.proxyUplinkLoRaPacket(frame)
	}
	return e.relayUplinkLoRaPacket(ctx, frame)
}

func (e *Engine) proxyUplinkLoRaPacket(frame *gw.UplinkFrame) error {
	if e.forwarder == nil {
		return nil
	}
	logrus.Debug("proxying LoRaWAN uplink")
	return e.forwarder.PublishUplink(frame)
}

func (e *Engine) relayUplinkLoRaPacket(ctx context.Context, frame *gw.UplinkFrame) error {
	if frame.RxInfo == nil {
		return fmt.Errorf("relay: rx_info is nil")
	}
	if frame.TxInfo == nil {
		return fmt.Errorf("relay: tx_info is nil")
	}

	dr, err := modulationToDataRate(frame.TxInfo.Modulation)
	if err != nil {
		return err
	}
	drIndex, err := e.cfg.DataRates.ToIndex(dr)
	if err != nil {
		return err
	}
	ch, err := e.cfg.Channels.FrequencyToChan(frame.TxInfo.Frequency)
	if err != nil {
		return err
	}

	uplinkID := e.uplinkCtx.Store(frame.RxInfo.Context)

	packet := &packets.MeshPacket{
		MHDR: packets.MHDR{PayloadType: packets.PayloadTypeUplink, HopCount: 1},
		Uplink: &packets.UplinkPayload{
			Metadata: packets.UplinkMetadata{
				UplinkID: uplinkID,
				DR:       drIndex,
				Channel:  ch,
				RSSI:     int16(frame.RxInfo.RSSI),
				SNR:      int8(frame.RxInfo.SNR),
			},
			RelayID:    e.relayID(),
			PHYPayload: frame.PHYPayload,
		},
	}
	if err := packet.SetMIC(e.signingKey); err != nil {
		return err
	}

	logrus.WithField("uplink_id", frame.RxInfo.UplinkID).Info("relaying uplink LoRa frame")
	return e.sendMesh(ctx, packet)
}

func (e *Engine) handleMesh(ctx context.Context, frame *gw.UplinkFrame) error {
	packet, err := packets.Decode(frame.PHYPayload)
	if err != nil {
		return fmt.Errorf("relay: decode mesh packet: %w", err)
	}

	valid, err := packet.ValidateMIC(e.signingKey)
	if err != nil {
		return err
	}
	if !valid {
		logrus.WithField("mesh_packet", packet.String()).Warn("dropping packet, invalid MIC")
		return nil
	}

	if !e.cache.Add(dedup.EntryFor(packet)) {
		logrus.WithField("mesh_packet", packet.String()).Trace("dropping packet, already seen")
		return nil
	}

	if err := packet.Decrypt(e.encKey); err != nil {
		return fmt.Errorf("relay: decrypt mesh packet: %w", err)
	}

	if e.cfg.BorderGateway {
		switch packet.MHDR.PayloadType {
		case packets.PayloadTypeUplink:
			return e.proxyUplinkMeshPacket(frame, packet)
		case packets.PayloadTypeEvent:
			return e.proxyEventMeshPacket(packet)
		default:
			return nil
		}
	}

	return e.relayMeshPacket(ctx, frame, packet)
}

func (e *Engine) proxyUplinkMeshPacket(frame *gw.UplinkFrame, packet *packets.MeshPacket) error {
	if packet.Uplink == nil {
		return fmt.Errorf("relay: expected uplink payload")
	}
	mp := packet.Uplink

	logrus.WithField("mesh_packet", packet.String()).Info("unwrapping relayed uplink")

	out := *frame
	if frame.RxInfo != nil {
		rx := *frame.RxInfo
		rx.GatewayID = fmt.Sprintf("%x", e.device.GatewayID())

		metadata := map[string]string{}
		for k, v := range rx.Metadata {
			metadata[k] = v
		}
		metadata["hop_count"] = fmt.Sprintf("%d", packet.MHDR.HopCount)
		metadata["relay_id"] = fmt.Sprintf("%x", mp.RelayID)
		rx.Metadata = metadata

		rx.SNR = float32(mp.Metadata.SNR)
		rx.RSSI = int32(mp.Metadata.RSSI)

		ctx := make([]byte, 0, len(ctxPrefix)+6)
		ctx = append(ctx, ctxPrefix[:]...)
		ctx = append(ctx, mp.RelayID[:]...)
		var idBuf [2]byte
		binary.BigEndian.PutUint16(idBuf[:], mp.Metadata.UplinkID)
		ctx = append(ctx, idBuf[:]...)
		rx.Context = ctx

		out.RxInfo = &rx
	}

	if frame.TxInfo != nil {
		freq, err := e.cfg.Channels.ChanToFrequency(mp.Metadata.Channel)
		if err != nil {
			return err
		}
		dr, err := e.cfg.DataRates.FromIndex(mp.Metadata.DR)
		if err != nil {
			return err
		}
		tx := *frame.TxInfo
		tx.Frequency = freq
		tx.Modulation = dataRateToModulation(dr, false)
		out.TxInfo = &tx
	}

	out.PHYPayload = mp.PHYPayload

	if e.forwarder == nil {
		return nil
	}
	return e.forwarder.PublishUplink(&out)
}

func (e *Engine) proxyEventMeshPacket(packet *packets.MeshPacket) error {
	if packet.Event == nil {
		return fmt.Errorf("relay: expected event payload")
	}
	mp := packet.Event

	logrus.WithField("mesh_packet", packet.String()).Info("unwrapping relay event packet")

	items := make([]*gw.MeshEventItem, 0, len(mp.Events))
	for _, ev := range mp.Events {
		if ev.IsHeartbeat() {
			path := make([]*gw.MeshEventHeartbeatRelayPath, 0, len(ev.RelayPath))
			for _, rp := range ev.RelayPath {
				path = append(path, &gw.MeshEventHeartbeatRelayPath{
					RelayID: fmt.Sprintf("%x", rp.RelayID),
					RSSI:    int32(rp.RSSI),
					SNR:     int32(rp.SNR),
				})
			}
			items = append(items, &gw.MeshEventItem{Heartbeat: &gw.MeshEventHeartbeat{RelayPath: path}})
		} else {
			items = append(items, &gw.MeshEventItem{Proprietary: &gw.MeshEventProprietary{
				EventType: uint32(ev.Type),
				Payload:   ev.Value,
			}})
		}
	}

	event := &gw.MeshEvent{
		GatewayID: fmt.Sprintf("%x", e.device.GatewayID()),
		RelayID:   fmt.Sprintf("%x", mp.RelayID),
		Time:      time.Unix(int64(mp.Timestamp), 0).UTC(),
		Events:    items,
	}

	if e.forwarder == nil {
		return nil
	}
	return e.forwarder.PublishMeshEvent(event)
}

func (e *Engine) relayMeshPacket(ctx context.Context, frame *gw.UplinkFrame, packet *packets.MeshPacket) error {
	relayID := e.relayID()
	if frame.RxInfo == nil {
		return fmt.Errorf("relay: rx_info is nil")
	}
	rxInfo := frame.RxInfo

	switch {
	case packet.Uplink != nil:
		if packet.Uplink.RelayID == relayID {
			logrus.Trace("dropping packet as this relay was the sender")
			return nil
		}

	case packet.Downlink != nil:
		if packet.Downlink.RelayID == relayID {
			return e.unwrapRelayedDownlink(ctx, packet)
		}

	case packet.Event != nil:
		if packet.Event.RelayID == relayID {
			logrus.Trace("dropping packet as this relay was the sender")
			return nil
		}
		for i := range packet.Event.Events {
			ev := &packet.Event.Events[i]
			if ev.IsHeartbeat() {
				ev.RelayPath = append(ev.RelayPath, packets.RelayPath{
					RelayID: relayID,
					RSSI:    int16(rxInfo.RSSI),
					SNR:     int8(rxInfo.SNR),
				})
			}
		}

	case packet.Command != nil:
		if packet.Command.RelayID == relayID {
			resp, err := e.ExecuteCommands(ctx, packet.Command)
			if err != nil {
				return err
			}
			if len(resp) > 0 {
				return e.SendEvents(ctx, resp)
			}
			return nil
		}

	default:
		return fmt.Errorf("relay: mesh packet has no payload")
	}

	return e.reRelay(ctx, packet)
}

func (e *Engine) unwrapRelayedDownlink(ctx context.Context, packet *packets.MeshPacket) error {
	mp := packet.Downlink

	txPower, err := e.cfg.TxPowers.FromIndex(mp.Metadata.TxPower)
	if err != nil {
		return err
	}
	dr, err := e.cfg.DataRates.FromIndex(mp.Metadata.DR)
	if err != nil {
		return err
	}
	rxCtx, err := e.uplinkCtx.Get(mp.Metadata.UplinkID)
	if err != nil {
		return err
	}

	frame := &gw.DownlinkFrame{
		DownlinkID: randomUint32(),
		GatewayID:  fmt.Sprintf("%x", e.device.GatewayID()),
		Items: []*gw.DownlinkFrameItem{{
			PHYPayload: mp.PHYPayload,
			TxInfo: &gw.DownlinkTxInfo{
				Frequency:  mp.Metadata.Frequency,
				Power:      txPower,
				Modulation: dataRateToModulation(dr, true),
				Timing:     &gw.Timing{Delay: &gw.DelayTimingInfo{Delay: time.Duration(mp.Metadata.Delay) * time.Second}},
				Context:    rxCtx,
			},
		}},
	}

	logrus.WithField("mesh_packet", packet.String()).Info("unwrapping relayed downlink")

	ack, err := e.device.SendDownlink(ctx, frame)
	if err != nil {
		return err
	}
	return txAckToErr(ack)
}

func uplinkCtxBytes(uplinkID uint16) []byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uplinkID)
	return b[:]
}

// reRelay increments the hop count, re-encrypts, re-signs, and
// retransmits a mesh packet that was neither this relay's own traffic nor
// addressed to it.
func (e *Engine) reRelay(ctx context.Context, packet *packets.MeshPacket) error {
	if err := packet.IncrementHopCount(e.cfg.MaxHopCount); err != nil {
		logrus.WithError(err).Warn("dropping packet, max hop count exceeded")
		return nil
	}

	if err := packet.Encrypt(e.encKey); err != nil {
		return err
	}
	if err := packet.SetMIC(e.signingKey); err != nil {
		return err
	}

	logrus.WithField("mesh_packet", packet.String()).Info("re-relaying mesh packet")
	return e.sendMesh(ctx, packet)
}

// HandleDownlink processes a DownlinkFrame received from upstream (via the
// forwarder, on a Border Gateway): a frame carrying this engine's own
// relay-context tag is wrapped into a mesh Downlink packet and sent over
// the mesh radio; any other frame is sent directly on the device radio.
func (e *Engine) HandleDownlink(ctx context.Context, frame *gw.DownlinkFrame) (*gw.DownlinkTxAck, error) {
	if len(frame.Items) > 0 {
		item := frame.Items[0]
		if item.TxInfo != nil && isRelayContext(item.TxInfo.Context) {
			return e.relayDownlinkLoRaPacket(ctx, frame)
		}
	}
	return e.proxyDownlinkLoRaPacket(ctx, frame)
}

func isRelayContext(ctx []byte) bool {
	if len(ctx) != len(ctxPrefix)+6 {
		return false
	}
	for i, b := range ctxPrefix {
		if ctx[i] != b {
			return false
		}
	}
	return true
}

func (e *Engine) proxyDownlinkLoRaPacket(ctx context.Context, frame *gw.DownlinkFrame) (*gw.DownlinkTxAck, error) {
	logrus.Debug("proxying LoRaWAN downlink")
	return e.device.SendDownlink(ctx, frame)
}

func (e *Engine) relayDownlinkLoRaPacket(ctx context.Context, frame *gw.DownlinkFrame) (*gw.DownlinkTxAck, error) {
	items := make([]*gw.DownlinkTxAckItem, len(frame.Items))
	for i := range items {
		items[i] = &gw.DownlinkTxAckItem{Status: gw.TxAckStatusIgnored}
	}

	for i, item := range frame.Items {
		status, err := e.relayOneDownlinkItem(ctx, item)
		if err != nil {
			logrus.WithError(err).Warn("relay downlink failed")
		}
		items[i].Status = status
		if status == gw.TxAckStatusOK {
			break
		}
	}

	return &gw.DownlinkTxAck{GatewayID: frame.GatewayID, DownlinkID: frame.DownlinkID, Items: items}, nil
}

func (e *Engine) relayOneDownlinkItem(ctx context.Context, item *gw.DownlinkFrameItem) (gw.TxAckStatus, error) {
	if item.TxInfo == nil {
		return gw.TxAckStatusInternalError, fmt.Errorf("relay: tx_info is nil")
	}
	if item.TxInfo.Timing == nil || item.TxInfo.Timing.Delay == nil {
		return gw.TxAckStatusInternalError, fmt.Errorf("relay: only delay timing is supported")
	}
	ctxBytes := item.TxInfo.Context
	if len(ctxBytes) < len(ctxPrefix)+6 {
		return gw.TxAckStatusInternalError, fmt.Errorf("relay: context does not contain enough bytes")
	}
	relayCtx := ctxBytes[len(ctxPrefix) : len(ctxPrefix)+6]

	var relayID [4]byte
	copy(relayID[:], relayCtx[0:4])
	uplinkID := binary.BigEndian.Uint16(relayCtx[4:6])

	dr, err := modulationToDataRate(item.TxInfo.Modulation)
	if err != nil {
		return gw.TxAckStatusInternalError, err
	}
	drIndex, err := e.cfg.DataRates.ToIndex(dr)
	if err != nil {
		return gw.TxAckStatusInternalError, err
	}
	txPowerIndex, err := e.cfg.TxPowers.ToIndex(item.TxInfo.Power)
	if err != nil {
		return gw.TxAckStatusInternalError, err
	}
	delaySeconds := uint8(item.TxInfo.Timing.Delay.Delay / time.Second)

	packet := &packets.MeshPacket{
		MHDR: packets.MHDR{PayloadType: packets.PayloadTypeDownlink, HopCount: 1},
		Downlink: &packets.DownlinkPayload{
			PHYPayload: item.PHYPayload,
			RelayID:    relayID,
			Metadata: packets.DownlinkMetadata{
				UplinkID:  uplinkID,
				DR:        drIndex,
				Frequency: item.TxInfo.Frequency,
				TxPower:   txPowerIndex,
				Delay:     delaySeconds,
			},
		},
	}
	if err := packet.SetMIC(e.signingKey); err != nil {
		return gw.TxAckStatusInternalError, err
	}

	logrus.WithField("mesh_packet", packet.String()).Info("sending downlink frame as relayed downlink")

	if err := e.sendMesh(ctx, packet); err != nil {
		return gw.TxAckStatusInternalError, err
	}
	return gw.TxAckStatusOK, nil
}

// HandleGatewayConfiguration pushes a channel-plan configuration to the
// device concentrator.
func (e *Engine) HandleGatewayConfiguration(ctx context.Context, cfg *gw.GatewayConfiguration) error {
	logrus.WithField("version", cfg.Version).Info("configuration command received")
	return e.device.SendGatewayConfiguration(ctx, cfg)
}

// HandleGetGatewayID returns the device concentrator's gateway id.
func (e *Engine) HandleGetGatewayID(ctx context.Context) (*gw.GetGatewayIDResponse, error) {
	id := e.device.GatewayID()
	return &gw.GetGatewayIDResponse{GatewayID: fmt.Sprintf("%x", id)}, nil
}

// HandleMeshCommand builds and transmits a Command MeshPacket addressed to
// the given relay, as requested by an upstream forwarder client.
func (e *Engine) HandleMeshCommand(ctx context.Context, pl *gw.MeshCommand) error {
	var relayID [4]byte
	if err := decodeHexID(pl.RelayID, relayID[:]); err != nil {
		return err
	}

	commands := make([]packets.Command, 0, len(pl.Commands))
	for _, item := range pl.Commands {
		if item.Proprietary == nil {
			continue
		}
		commands = append(commands, packets.Command{Type: byte(item.Proprietary.CommandType), Value: item.Proprietary.Payload})
	}

	packet := &packets.MeshPacket{
		MHDR: packets.MHDR{PayloadType: packets.PayloadTypeCommand, HopCount: 1},
		Command: &packets.CommandPayload{
			Timestamp: uint32(time.Now().Unix()),
			RelayID:   relayID,
			Commands:  commands,
		},
	}
	if err := packet.Encrypt(e.encKey); err != nil {
		return err
	}
	if err := packet.SetMIC(e.signingKey); err != nil {
		return err
	}

	logrus.WithField("mesh_packet", packet.String()).Info("sending mesh command")
	return e.sendMesh(ctx, packet)
}

// SendEvents builds and transmits an Event MeshPacket reporting events for
// this relay. Called both by the heartbeat/event-set loops and as the
// response path to an executed command.
func (e *Engine) SendEvents(ctx context.Context, events []packets.Event) error {
	packet := &packets.MeshPacket{
		MHDR: packets.MHDR{PayloadType: packets.PayloadTypeEvent, HopCount: 1},
		Event: &packets.EventPayload{
			Timestamp: uint32(time.Now().Unix()),
			RelayID:   e.relayID(),
			Events:    events,
		},
	}
	if err := packet.Encrypt(e.encKey); err != nil {
		return err
	}
	if err := packet.SetMIC(e.signingKey); err != nil {
		return err
	}

	logrus.WithField("mesh_packet", packet.String()).Info("sending event packet")
	return e.sendMesh(ctx, packet)
}

func (e *Engine) sendMesh(ctx context.Context, packet *packets.MeshPacket) error {
	data, err := packet.Encode()
	if err != nil {
		return err
	}

	freq, err := e.hop.Next()
	if err != nil {
		return err
	}

	frame := &gw.DownlinkFrame{
		DownlinkID: randomUint32(),
		Items: []*gw.DownlinkFrameItem{{
			PHYPayload: data,
			TxInfo: &gw.DownlinkTxInfo{
				Frequency:  freq,
				Power:      e.cfg.MeshTxPower,
				Modulation: dataRateToModulation(e.cfg.MeshDataRate, false),
				Timing:     &gw.Timing{Immediately: &gw.ImmediatelyTimingInfo{}},
			},
		}},
	}

	ack, err := e.mesh.SendDownlink(ctx, frame)
	if err != nil {
		return err
	}
	return txAckToErr(ack)
}

func txAckToErr(ack *gw.DownlinkTxAck) error {
	for _, item := range ack.Items {
		if item.Status == gw.TxAckStatusOK {
			return nil
		}
	}
	if len(ack.Items) > 0 {
		return fmt.Errorf("relay: tx ack error: %s", ack.Items[len(ack.Items)-1].Status)
	}
	return fmt.Errorf("relay: tx ack error: no items")
}

func randomUint32() uint32 {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return binary.BigEndian.Uint32(b[:])
}

func decodeHexID(s string, out []byte) error {
	if len(s) != len(out)*2 {
		return fmt.Errorf("relay: expected %d hex characters, got %d", len(out)*2, len(s))
	}
	for i := range out {
		var v byte
		if _, err := fmt.Sscanf(s[i*2:i*2+2], "%02x", &v); err != nil {
			return fmt.Errorf("relay: invalid hex id %q: %w", s, err)
		}
		out[i] = v
	}
	return nil
}
