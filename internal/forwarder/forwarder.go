// Package forwarder exposes the Border Gateway's upstream-facing API: a
// PUB socket streaming uplink/stats/mesh events and a REP socket accepting
// downlink/configuration/mesh-command requests. Relay Gateways never start
// this; it exists only on the border node that bridges the mesh to the
// network server side.
package forwarder

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-zeromq/zmq4"
	"github.com/sirupsen/logrus"

	"github.com/agsys/gateway-mesh/internal/gw"
)

// CommandHandler executes the requests the Forwarder receives on its REP
// socket. The relay engine implements this; forwarder never imports it, to
// keep the dependency one-directional.
type CommandHandler interface {
	HandleDownlink(ctx context.Context, pl *gw.DownlinkFrame) (*gw.DownlinkTxAck, error)
	HandleGatewayConfiguration(ctx context.Context, pl *gw.GatewayConfiguration) error
	HandleGetGatewayID(ctx context.Context) (*gw.GetGatewayIDResponse, error)
	HandleMeshCommand(ctx context.Context, pl *gw.MeshCommand) error
}

// Forwarder binds the proxy API's two sockets.
type Forwarder struct {
	eventBind string
	cmdBind   string
	handler   CommandHandler

	eventSock zmq4.Socket
	cmdSock   zmq4.Socket
	events    chan []byte
}

// New builds a Forwarder bound to eventBind (PUB) and cmdBind (REP).
func New(eventBind, cmdBind string, handler CommandHandler) *Forwarder {
	return &Forwarder{
		eventBind: eventBind,
		cmdBind:   cmdBind,
		handler:   handler,
		events:    make(chan []byte, 64),
	}
}

// Start binds both sockets and launches their dedicated goroutines. Stale
// ipc:// socket files from a previous, uncleanly terminated run are
// removed first so bind doesn't fail with "address already in use".
func (f *Forwarder) Start(ctx context.Context) error {
	removeStaleSocketFile(f.eventBind)
	removeStaleSocketFile(f.cmdBind)

	f.eventSock = zmq4.NewPub(ctx)
	if err := f.eventSock.Listen(f.eventBind); err != nil {
		return fmt.Errorf("forwarder: listen event socket: %w", err)
	}

	f.cmdSock = zmq4.NewRep(ctx)
	if err := f.cmdSock.Listen(f.cmdBind); err != nil {
		f.eventSock.Close()
		return fmt.Errorf("forwarder: listen command socket: %w", err)
	}

	go f.eventLoop(ctx)
	go f.commandLoop(ctx)

	logrus.WithFields(logrus.Fields{"event_bind": f.eventBind, "command_bind": f.cmdBind}).Info("forwarder proxy API listening")
	return nil
}

// Close releases both sockets.
func (f *Forwarder) Close() error {
	_ = f.eventSock.Close()
	return f.cmdSock.Close()
}

func removeStaleSocketFile(bind string) {
	path, ok := strings.CutPrefix(bind, "ipc://")
	if !ok {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).WithField("path", path).Warn("failed to remove stale socket file")
	}
}

// PublishUplink publishes an UplinkFrame event.
func (f *Forwarder) PublishUplink(frame *gw.UplinkFrame) error {
	return f.publish(&gw.Event{UplinkFrame: frame})
}

// PublishStats publishes a GatewayStats event.
func (f *Forwarder) PublishStats(stats *gw.GatewayStats) error {
	return f.publish(&gw.Event{GatewayStats: stats})
}

// PublishMeshEvent publishes a decoded mesh Event packet.
func (f *Forwarder) PublishMeshEvent(event *gw.MeshEvent) error {
	return f.publish(&gw.Event{Mesh: event})
}

func (f *Forwarder) publish(event *gw.Event) error {
	data, err := gw.MarshalEvent(event)
	if err != nil {
		return fmt.Errorf("forwarder: marshal event: %w", err)
	}

	select {
	case f.events <- data:
		return nil
	default:
		return fmt.Errorf("forwarder: event queue full, dropping event")
	}
}

func (f *Forwarder) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-f.events:
			if err := f.eventSock.Send(zmq4.NewMsg(data)); err != nil {
				logrus.WithError(err).Error("failed to publish event")
			}
		}
	}
}

func (f *Forwarder) commandLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := f.cmdSock.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).Error("command socket recv error")
			continue
		}

		if len(msg.Frames) != 1 {
			f.reply(nil)
			continue
		}

		resp, err := f.handleCommand(ctx, msg.Frames[0])
		if err != nil {
			logrus.WithError(err).Error("handle command error")
			resp = &gw.Response{}
		}
		f.reply(resp)
	}
}

func (f *Forwarder) reply(resp *gw.Response) {
	if resp == nil {
		resp = &gw.Response{}
	}

	data, err := gw.MarshalResponse(resp)
	if err != nil {
		logrus.WithError(err).Error("failed to marshal response")
		data = nil
	}

	if err := f.cmdSock.Send(zmq4.NewMsg(data)); err != nil {
		logrus.WithError(err).Error("failed to send response")
	}
}

func (f *Forwarder) handleCommand(ctx context.Context, data []byte) (*gw.Response, error) {
	cmd, err := gw.UnmarshalCommand(data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal command: %w", err)
	}

	switch {
	case cmd.SendDownlinkFrame != nil:
		ack, err := f.handler.HandleDownlink(ctx, cmd.SendDownlinkFrame)
		if err != nil {
			return nil, err
		}
		return &gw.Response{DownlinkTxAck: ack}, nil

	case cmd.SetGatewayConfiguration != nil:
		if err := f.handler.HandleGatewayConfiguration(ctx, cmd.SetGatewayConfiguration); err != nil {
			return nil, err
		}
		return &gw.Response{}, nil

	case cmd.GetGatewayID != nil:
		id, err := f.handler.HandleGetGatewayID(ctx)
		if err != nil {
			return nil, err
		}
		return &gw.Response{GatewayID: id}, nil

	case cmd.Mesh != nil:
		if err := f.handler.HandleMeshCommand(ctx, cmd.Mesh); err != nil {
			return nil, err
		}
		return &gw.Response{}, nil

	default:
		return nil, fmt.Errorf("empty command")
	}
}
