package gw

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// The concentrator and forwarder sockets carry no schema of their own
// (Concentratord actually speaks protobuf; this relay speaks a private
// wire format instead, length-prefixed fields over binary.LittleEndian,
// in the same hand-rolled spirit as the envelope it replaces).
//
// writer/reader are thin helpers to keep the Marshal/Unmarshal functions
// below from repeating the same length-prefix bookkeeping for every
// field.

type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) bool(v bool)  { if v { w.u8(1) } else { w.u8(0) } }
func (w *writer) u32(v uint32) { var b [4]byte; binary.LittleEndian.PutUint32(b[:], v); w.buf = append(w.buf, b[:]...) }
func (w *writer) i32(v int32)  { w.u32(uint32(v)) }
func (w *writer) u64(v uint64) { var b [8]byte; binary.LittleEndian.PutUint64(b[:], v); w.buf = append(w.buf, b[:]...) }
func (w *writer) i64(v int64)  { w.u64(uint64(v)) }
func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }

func (w *writer) bytes(v []byte) {
	w.u32(uint32(len(v)))
	w.buf = append(w.buf, v...)
}

func (w *writer) str(v string) { w.bytes([]byte(v)) }

type reader struct {
	buf []byte
	err error
}

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if len(r.buf) < n {
		r.fail(fmt.Errorf("gw: unexpected end of message (need %d, have %d)", n, len(r.buf)))
		return false
	}
	return true
}

func (r *reader) u8() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[0]
	r.buf = r.buf[1:]
	return v
}

func (r *reader) boolean() bool { return r.u8() != 0 }

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[0:4])
	r.buf = r.buf[4:]
	return v
}

func (r *reader) i32() int32 { return int32(r.u32()) }

func (r *reader) u64() uint64 {
	if !r.need(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[0:8])
	r.buf = r.buf[8:]
	return v
}

func (r *reader) i64() int64   { return int64(r.u64()) }
func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *reader) bytes() []byte {
	n := int(r.u32())
	if !r.need(n) {
		return nil
	}
	v := make([]byte, n)
	copy(v, r.buf[:n])
	r.buf = r.buf[n:]
	return v
}

func (r *reader) str() string { return string(r.bytes()) }

// Tags distinguishing oneof variants on the wire. 0 always means "none of
// the above" / absent.
const (
	tagNone = 0

	tagEventUplink  = 1
	tagEventStats   = 2
	tagEventMesh    = 3

	tagCmdDownlink  = 1
	tagCmdSetConfig = 2
	tagCmdGetGwID   = 3
	tagCmdMesh      = 4

	tagModLora = 1
	tagModFsk  = 2

	tagTimingImmediate = 1
	tagTimingDelay     = 2
	tagTimingGPSEpoch  = 3

	tagMeshEventHeartbeat   = 1
	tagMeshEventProprietary = 2

	tagRespEmpty   = 0
	tagRespTxAck   = 1
	tagRespGwID    = 2
)

// MarshalEvent serializes an Event envelope for publication to the
// forwarder (or, in tests, round-tripping).
func MarshalEvent(e *Event) ([]byte, error) {
	w := &writer{}
	switch {
	case e.UplinkFrame != nil:
		w.u8(tagEventUplink)
		marshalUplinkFrame(w, e.UplinkFrame)
	case e.GatewayStats != nil:
		w.u8(tagEventStats)
		marshalGatewayStats(w, e.GatewayStats)
	case e.Mesh != nil:
		w.u8(tagEventMesh)
		marshalMeshEvent(w, e.Mesh)
	default:
		return nil, fmt.Errorf("gw: empty event")
	}
	return w.buf, nil
}

// UnmarshalEvent is MarshalEvent's inverse.
func UnmarshalEvent(data []byte) (*Event, error) {
	r := &reader{buf: data}
	tag := r.u8()

	e := &Event{}
	switch tag {
	case tagEventUplink:
		e.UplinkFrame = unmarshalUplinkFrame(r)
	case tagEventStats:
		e.GatewayStats = unmarshalGatewayStats(r)
	case tagEventMesh:
		e.Mesh = unmarshalMeshEvent(r)
	default:
		return nil, fmt.Errorf("gw: unknown event tag %d", tag)
	}
	if r.err != nil {
		return nil, r.err
	}
	return e, nil
}

// MarshalCommand serializes a Command envelope for the concentrator's
// request socket, or for the forwarder's command responder to re-decode
// in tests.
func MarshalCommand(cmd *Command) ([]byte, error) {
	w := &writer{}
	switch {
	case cmd.GetGatewayID != nil:
		w.u8(tagCmdGetGwID)
	case cmd.SendDownlinkFrame != nil:
		w.u8(tagCmdDownlink)
		marshalDownlinkFrame(w, cmd.SendDownlinkFrame)
	case cmd.SetGatewayConfiguration != nil:
		w.u8(tagCmdSetConfig)
		w.str(cmd.SetGatewayConfiguration.GatewayID)
		w.str(cmd.SetGatewayConfiguration.Version)
	case cmd.Mesh != nil:
		w.u8(tagCmdMesh)
		marshalMeshCommand(w, cmd.Mesh)
	default:
		return nil, fmt.Errorf("gw: empty command")
	}
	return w.buf, nil
}

// UnmarshalCommand is MarshalCommand's inverse, used by the forwarder's
// command responder to decode an inbound request from upstream.
func UnmarshalCommand(data []byte) (*Command, error) {
	r := &reader{buf: data}
	tag := r.u8()

	cmd := &Command{}
	switch tag {
	case tagCmdGetGwID:
		cmd.GetGatewayID = &GetGatewayIDRequest{}
	case tagCmdDownlink:
		cmd.SendDownlinkFrame = unmarshalDownlinkFrame(r)
	case tagCmdSetConfig:
		cmd.SetGatewayConfiguration = &GatewayConfiguration{GatewayID: r.str(), Version: r.str()}
	case tagCmdMesh:
		cmd.Mesh = unmarshalMeshCommand(r)
	default:
		return nil, fmt.Errorf("gw: unknown command tag %d", tag)
	}
	if r.err != nil {
		return nil, r.err
	}
	return cmd, nil
}

func marshalUplinkFrame(w *writer, u *UplinkFrame) {
	w.bytes(u.PHYPayload)

	w.bool(u.TxInfo != nil)
	if u.TxInfo != nil {
		w.u32(u.TxInfo.Frequency)
		marshalModulation(w, u.TxInfo.Modulation)
	}

	w.bool(u.RxInfo != nil)
	if u.RxInfo != nil {
		w.str(u.RxInfo.GatewayID)
		w.u32(u.RxInfo.UplinkID)
		w.i32(u.RxInfo.RSSI)
		w.f32(u.RxInfo.SNR)
		w.u32(u.RxInfo.Channel)
		w.u32(u.RxInfo.RFChain)
		w.bytes(u.RxInfo.Context)
		w.u8(uint8(u.RxInfo.CRCStatus))
		w.u32(uint32(len(u.RxInfo.Metadata)))
		for k, v := range u.RxInfo.Metadata {
			w.str(k)
			w.str(v)
		}
	}
}

// MarshalUplinkFrame serializes a single UplinkFrame, as published by a
// concentrator on its "up" event frame.
func MarshalUplinkFrame(u *UplinkFrame) ([]byte, error) {
	w := &writer{}
	marshalUplinkFrame(w, u)
	return w.buf, nil
}

// UnmarshalUplinkFrame is MarshalUplinkFrame's inverse.
func UnmarshalUplinkFrame(data []byte) (*UplinkFrame, error) {
	r := &reader{buf: data}
	u := unmarshalUplinkFrame(r)
	if r.err != nil {
		return nil, r.err
	}
	return u, nil
}

func unmarshalUplinkFrame(r *reader) *UplinkFrame {
	u := &UplinkFrame{PHYPayload: r.bytes()}

	if r.boolean() {
		u.TxInfo = &UplinkTxInfo{Frequency: r.u32(), Modulation: unmarshalModulation(r)}
	}

	if r.boolean() {
		rx := &UplinkRxInfo{
			GatewayID: r.str(),
			UplinkID:  r.u32(),
			RSSI:      r.i32(),
			SNR:       r.f32(),
			Channel:   r.u32(),
			RFChain:   r.u32(),
			Context:   r.bytes(),
			CRCStatus: CRCStatus(r.u8()),
		}
		n := r.u32()
		if n > 0 {
			rx.Metadata = make(map[string]string, n)
			for i := uint32(0); i < n; i++ {
				k := r.str()
				v := r.str()
				rx.Metadata[k] = v
			}
		}
		u.RxInfo = rx
	}

	return u
}

func marshalModulation(w *writer, m *Modulation) {
	switch {
	case m == nil:
		w.u8(tagNone)
	case m.Lora != nil:
		w.u8(tagModLora)
		w.u32(m.Lora.Bandwidth)
		w.u32(m.Lora.SpreadingFactor)
		w.u8(uint8(m.Lora.CodeRate))
		w.bool(m.Lora.PolarizationInversion)
		w.u32(m.Lora.Preamble)
		w.bool(m.Lora.NoCRC)
	case m.Fsk != nil:
		w.u8(tagModFsk)
		w.u32(m.Fsk.FrequencyDeviation)
		w.u32(m.Fsk.Datarate)
	default:
		w.u8(tagNone)
	}
}

func unmarshalModulation(r *reader) *Modulation {
	switch r.u8() {
	case tagModLora:
		return &Modulation{Lora: &LoraModulationInfo{
			Bandwidth:             r.u32(),
			SpreadingFactor:       r.u32(),
			CodeRate:              CodeRate(r.u8()),
			PolarizationInversion: r.boolean(),
			Preamble:              r.u32(),
			NoCRC:                 r.boolean(),
		}}
	case tagModFsk:
		return &Modulation{Fsk: &FskModulationInfo{FrequencyDeviation: r.u32(), Datarate: r.u32()}}
	default:
		return nil
	}
}

// MarshalDownlinkFrame serializes a DownlinkFrame for the concentrator's
// SendDownlinkFrame command.
func MarshalDownlinkFrame(dl *DownlinkFrame) ([]byte, error) {
	w := &writer{}
	marshalDownlinkFrame(w, dl)
	return w.buf, nil
}

func marshalDownlinkFrame(w *writer, dl *DownlinkFrame) {
	w.u32(dl.DownlinkID)
	w.str(dl.GatewayID)
	w.u32(uint32(len(dl.Items)))
	for _, item := range dl.Items {
		w.bytes(item.PHYPayload)
		w.bool(item.TxInfo != nil)
		if item.TxInfo != nil {
			marshalDownlinkTxInfo(w, item.TxInfo)
		}
	}
}

func marshalDownlinkTxInfo(w *writer, tx *DownlinkTxInfo) {
	w.u32(tx.Frequency)
	w.i32(tx.Power)
	marshalModulation(w, tx.Modulation)
	w.u32(tx.Board)
	w.u32(tx.Antenna)
	w.bytes(tx.Context)

	switch {
	case tx.Timing == nil:
		w.u8(tagNone)
	case tx.Timing.Immediately != nil:
		w.u8(tagTimingImmediate)
	case tx.Timing.Delay != nil:
		w.u8(tagTimingDelay)
		w.i64(int64(tx.Timing.Delay.Delay))
	case tx.Timing.GPSEpoch != nil:
		w.u8(tagTimingGPSEpoch)
		w.i64(int64(tx.Timing.GPSEpoch.TimeSinceGPSEpoch))
	default:
		w.u8(tagNone)
	}
}

// UnmarshalDownlinkFrame is MarshalDownlinkFrame's inverse.
func UnmarshalDownlinkFrame(data []byte) (*DownlinkFrame, error) {
	r := &reader{buf: data}
	dl := unmarshalDownlinkFrame(r)
	if r.err != nil {
		return nil, r.err
	}
	return dl, nil
}

func unmarshalDownlinkFrame(r *reader) *DownlinkFrame {
	dl := &DownlinkFrame{DownlinkID: r.u32(), GatewayID: r.str()}

	n := r.u32()
	dl.Items = make([]*DownlinkFrameItem, 0, n)
	for i := uint32(0); i < n; i++ {
		item := &DownlinkFrameItem{PHYPayload: r.bytes()}
		if r.boolean() {
			item.TxInfo = unmarshalDownlinkTxInfo(r)
		}
		dl.Items = append(dl.Items, item)
	}
	return dl
}

func unmarshalDownlinkTxInfo(r *reader) *DownlinkTxInfo {
	tx := &DownlinkTxInfo{
		Frequency:  r.u32(),
		Power:      r.i32(),
		Modulation: unmarshalModulation(r),
		Board:      r.u32(),
		Antenna:    r.u32(),
		Context:    r.bytes(),
	}

	switch r.u8() {
	case tagTimingImmediate:
		tx.Timing = &Timing{Immediately: &ImmediatelyTimingInfo{}}
	case tagTimingDelay:
		tx.Timing = &Timing{Delay: &DelayTimingInfo{Delay: time.Duration(r.i64())}}
	case tagTimingGPSEpoch:
		tx.Timing = &Timing{GPSEpoch: &GPSEpochTimingInfo{TimeSinceGPSEpoch: time.Duration(r.i64())}}
	}

	return tx
}

// MarshalDownlinkTxAck serializes a DownlinkTxAck.
func MarshalDownlinkTxAck(ack *DownlinkTxAck) ([]byte, error) {
	w := &writer{}
	w.u32(ack.DownlinkID)
	w.str(ack.GatewayID)
	w.u32(uint32(len(ack.Items)))
	for _, item := range ack.Items {
		w.u8(uint8(item.Status))
	}
	return w.buf, nil
}

// UnmarshalDownlinkTxAck is MarshalDownlinkTxAck's inverse.
func UnmarshalDownlinkTxAck(data []byte) (*DownlinkTxAck, error) {
	r := &reader{buf: data}
	ack := &DownlinkTxAck{DownlinkID: r.u32(), GatewayID: r.str()}

	n := r.u32()
	ack.Items = make([]*DownlinkTxAckItem, 0, n)
	for i := uint32(0); i < n; i++ {
		ack.Items = append(ack.Items, &DownlinkTxAckItem{Status: TxAckStatus(r.u8())})
	}

	if r.err != nil {
		return nil, r.err
	}
	return ack, nil
}

func marshalGatewayStats(w *writer, s *GatewayStats) {
	w.str(s.GatewayID)
	w.u32(s.RxPacketsReceived)
	w.u32(s.RxPacketsReceivedOK)
	w.u32(s.TxPacketsReceived)
	w.u32(s.TxPacketsEmitted)
}

// MarshalGatewayStats serializes a GatewayStats report, as published by a
// concentrator on its "stats" event frame.
func MarshalGatewayStats(s *GatewayStats) ([]byte, error) {
	w := &writer{}
	marshalGatewayStats(w, s)
	return w.buf, nil
}

// UnmarshalGatewayStats deserializes a GatewayStats report.
func UnmarshalGatewayStats(data []byte) (*GatewayStats, error) {
	r := &reader{buf: data}
	s := unmarshalGatewayStats(r)
	if r.err != nil {
		return nil, r.err
	}
	return s, nil
}

func unmarshalGatewayStats(r *reader) *GatewayStats {
	return &GatewayStats{
		GatewayID:           r.str(),
		RxPacketsReceived:   r.u32(),
		RxPacketsReceivedOK: r.u32(),
		TxPacketsReceived:   r.u32(),
		TxPacketsEmitted:    r.u32(),
	}
}

// UnmarshalGetGatewayIDResponse parses a GetGatewayId command reply: the
// raw 8-byte gateway id, hex-encoded.
func UnmarshalGetGatewayIDResponse(data []byte) (*GetGatewayIDResponse, error) {
	if len(data) != 8 {
		return nil, fmt.Errorf("gw: gateway id response must be 8 bytes, got %d", len(data))
	}
	return &GetGatewayIDResponse{GatewayID: fmt.Sprintf("%016x", binary.BigEndian.Uint64(data))}, nil
}

func marshalMeshEvent(w *writer, m *MeshEvent) {
	w.str(m.GatewayID)
	w.str(m.RelayID)
	w.i64(m.Time.Unix())
	w.u32(uint32(len(m.Events)))
	for _, item := range m.Events {
		switch {
		case item.Heartbeat != nil:
			w.u8(tagMeshEventHeartbeat)
			w.u32(uint32(len(item.Heartbeat.RelayPath)))
			for _, rp := range item.Heartbeat.RelayPath {
				w.str(rp.RelayID)
				w.i32(rp.RSSI)
				w.i32(rp.SNR)
			}
		case item.Proprietary != nil:
			w.u8(tagMeshEventProprietary)
			w.u32(item.Proprietary.EventType)
			w.bytes(item.Proprietary.Payload)
		default:
			w.u8(tagNone)
		}
	}
}

func unmarshalMeshEvent(r *reader) *MeshEvent {
	m := &MeshEvent{GatewayID: r.str(), RelayID: r.str(), Time: time.Unix(r.i64(), 0).UTC()}

	n := r.u32()
	m.Events = make([]*MeshEventItem, 0, n)
	for i := uint32(0); i < n; i++ {
		switch r.u8() {
		case tagMeshEventHeartbeat:
			count := r.u32()
			path := make([]*MeshEventHeartbeatRelayPath, 0, count)
			for j := uint32(0); j < count; j++ {
				path = append(path, &MeshEventHeartbeatRelayPath{RelayID: r.str(), RSSI: r.i32(), SNR: r.i32()})
			}
			m.Events = append(m.Events, &MeshEventItem{Heartbeat: &MeshEventHeartbeat{RelayPath: path}})
		case tagMeshEventProprietary:
			m.Events = append(m.Events, &MeshEventItem{Proprietary: &MeshEventProprietary{EventType: r.u32(), Payload: r.bytes()}})
		}
	}

	return m
}

func marshalMeshCommand(w *writer, m *MeshCommand) {
	w.str(m.RelayID)
	w.u32(uint32(len(m.Commands)))
	for _, item := range m.Commands {
		if item.Proprietary != nil {
			w.u8(tagMeshEventProprietary)
			w.u32(item.Proprietary.CommandType)
			w.bytes(item.Proprietary.Payload)
		} else {
			w.u8(tagNone)
		}
	}
}

func unmarshalMeshCommand(r *reader) *MeshCommand {
	m := &MeshCommand{RelayID: r.str()}

	n := r.u32()
	m.Commands = make([]*MeshCommandItem, 0, n)
	for i := uint32(0); i < n; i++ {
		if r.u8() == tagMeshEventProprietary {
			m.Commands = append(m.Commands, &MeshCommandItem{Proprietary: &MeshCommandProprietary{CommandType: r.u32(), Payload: r.bytes()}})
		}
	}

	return m
}

// MarshalResponse serializes a forwarder Response.
func MarshalResponse(resp *Response) ([]byte, error) {
	w := &writer{}
	switch {
	case resp.DownlinkTxAck != nil:
		w.u8(tagRespTxAck)
		w.u32(resp.DownlinkTxAck.DownlinkID)
		w.str(resp.DownlinkTxAck.GatewayID)
		w.u32(uint32(len(resp.DownlinkTxAck.Items)))
		for _, item := range resp.DownlinkTxAck.Items {
			w.u8(uint8(item.Status))
		}
	case resp.GatewayID != nil:
		w.u8(tagRespGwID)
		w.str(resp.GatewayID.GatewayID)
	default:
		w.u8(tagRespEmpty)
	}
	return w.buf, nil
}

// UnmarshalResponse is MarshalResponse's inverse.
func UnmarshalResponse(data []byte) (*Response, error) {
	r := &reader{buf: data}
	resp := &Response{}

	switch r.u8() {
	case tagRespTxAck:
		ack := &DownlinkTxAck{DownlinkID: r.u32(), GatewayID: r.str()}
		n := r.u32()
		ack.Items = make([]*DownlinkTxAckItem, 0, n)
		for i := uint32(0); i < n; i++ {
			ack.Items = append(ack.Items, &DownlinkTxAckItem{Status: TxAckStatus(r.u8())})
		}
		resp.DownlinkTxAck = ack
	case tagRespGwID:
		resp.GatewayID = &GetGatewayIDResponse{GatewayID: r.str()}
	}

	if r.err != nil {
		return nil, r.err
	}
	return resp, nil
}
