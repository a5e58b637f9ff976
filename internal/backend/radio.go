// Package backend wraps the ZeroMQ sockets of a single ChirpStack
// Concentratord instance: a SUB socket streaming gw.Event frames and a REQ
// socket carrying gw.Command requests. The relay engine holds two Radios —
// one for the device-facing concentrator, one for the mesh concentrator.
package backend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/sirupsen/logrus"

	"github.com/agsys/gateway-mesh/internal/gw"
)

// commandTimeout bounds how long a Radio waits for a concentrator to reply
// to a command. Concentratord replies are local IPC round-trips; 100ms is
// generous for that and tight enough that a wedged concentrator surfaces
// quickly.
const commandTimeout = 100 * time.Millisecond

// Radio is a bound pair of sockets to one Concentratord instance.
type Radio struct {
	name       string
	eventSock  zmq4.Socket
	commandURL string
	cmdMu      sync.Mutex
	cmdSock    zmq4.Socket
	gatewayID  [8]byte
	events     chan *gw.Event
}

// Dial connects the event and command sockets of a concentrator and reads
// its gateway id. ctx governs the lifetime of both sockets and the event
// loop goroutine started by Dial.
func Dial(ctx context.Context, name, eventURL, commandURL string) (*Radio, error) {
	eventSock := zmq4.NewSub(ctx)
	if err := eventSock.Dial(eventURL); err != nil {
		return nil, fmt.Errorf("backend: %s: dial event socket: %w", name, err)
	}
	if err := eventSock.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		eventSock.Close()
		return nil, fmt.Errorf("backend: %s: subscribe: %w", name, err)
	}

	cmdSock := zmq4.NewReq(ctx)
	if err := cmdSock.Dial(commandURL); err != nil {
		eventSock.Close()
		return nil, fmt.Errorf("backend: %s: dial command socket: %w", name, err)
	}

	r := &Radio{
		name:       name,
		eventSock:  eventSock,
		commandURL: commandURL,
		cmdSock:    cmdSock,
		events:     make(chan *gw.Event, 64),
	}

	gwID, err := r.sendCommandRaw(ctx, "gateway_id", nil)
	if err != nil {
		eventSock.Close()
		cmdSock.Close()
		return nil, fmt.Errorf("backend: %s: read gateway id: %w", name, err)
	}
	if len(gwID) == 8 {
		copy(r.gatewayID[:], gwID)
	}
	logrus.WithFields(logrus.Fields{"radio": name, "gateway_id": fmt.Sprintf("%x", r.gatewayID)}).Info("retrieved gateway id")

	go r.eventLoop(ctx)

	return r, nil
}

// GatewayID returns the 8-byte gateway id reported by the concentrator.
func (r *Radio) GatewayID() [8]byte { return r.gatewayID }

// Events returns the channel of decoded events streamed from the
// concentrator's event socket. Closed when ctx passed to Dial is canceled.
func (r *Radio) Events() <-chan *gw.Event { return r.events }

// Close releases both sockets.
func (r *Radio) Close() error {
	_ = r.eventSock.Close()

	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()
	return r.cmdSock.Close()
}

func (r *Radio) eventLoop(ctx context.Context) {
	defer close(r.events)

	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := r.eventSock.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logrus.WithError(err).WithField("radio", r.name).Error("event socket recv error")
			time.Sleep(time.Second)
			continue
		}

		if len(msg.Frames) < 2 {
			continue
		}

		event, err := decodeEventFrame(string(msg.Frames[0]), msg.Frames[1])
		if err != nil {
			logrus.WithError(err).WithField("radio", r.name).Warn("failed to decode event")
			continue
		}
		if event == nil {
			continue
		}

		select {
		case r.events <- event:
		case <-ctx.Done():
			return
		}
	}
}

func decodeEventFrame(name string, payload []byte) (*gw.Event, error) {
	switch name {
	case "up":
		frame, err := gw.UnmarshalUplinkFrame(payload)
		if err != nil {
			return nil, err
		}
		return &gw.Event{UplinkFrame: frame}, nil
	case "stats":
		stats, err := gw.UnmarshalGatewayStats(payload)
		if err != nil {
			return nil, err
		}
		return &gw.Event{GatewayStats: stats}, nil
	default:
		return nil, nil
	}
}

// SendCommand sends a named command and returns the raw reply payload,
// bounded by commandTimeout.
func (r *Radio) SendCommand(ctx context.Context, name string, body []byte) ([]byte, error) {
	return r.sendCommandRaw(ctx, name, body)
}

// sendCommandRaw holds cmdMu for the whole round trip: a REQ socket only
// tolerates one outstanding send/recv at a time, and a rebuilt socket must
// not be handed to a second caller until this one has finished with it.
func (r *Radio) sendCommandRaw(ctx context.Context, name string, body []byte) ([]byte, error) {
	r.cmdMu.Lock()
	defer r.cmdMu.Unlock()

	type result struct {
		data []byte
		err  error
	}

	sock := r.cmdSock
	done := make(chan result, 1)
	go func() {
		msg := zmq4.NewMsgFrom([]byte(name), body)
		if err := sock.Send(msg); err != nil {
			done <- result{err: fmt.Errorf("send: %w", err)}
			return
		}
		resp, err := sock.Recv()
		if err != nil {
			done <- result{err: fmt.Errorf("recv: %w", err)}
			return
		}
		if len(resp.Frames) == 0 {
			done <- result{data: nil}
			return
		}
		done <- result{data: resp.Frames[0]}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			r.rebuildCmdSock(ctx, sock)
			return nil, fmt.Errorf("backend: %s: command %q: %w", r.name, name, res.err)
		}
		return res.data, nil
	case <-time.After(commandTimeout):
		// The send/recv goroutine above is still blocked on sock; a REQ
		// socket enforces strict send/recv alternation, so leaving it in
		// place would desync every command that follows. Tear it down and
		// dial a fresh one before releasing cmdMu.
		r.rebuildCmdSock(ctx, sock)
		return nil, fmt.Errorf("backend: %s: command %q timed out after %s", r.name, name, commandTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// rebuildCmdSock closes stale and dials a replacement command socket,
// installing it as r.cmdSock. Called with cmdMu already held. stale is
// closed to unblock any goroutine still waiting on its Recv.
func (r *Radio) rebuildCmdSock(ctx context.Context, stale zmq4.Socket) {
	_ = stale.Close()

	sock := zmq4.NewReq(ctx)
	if err := sock.Dial(r.commandURL); err != nil {
		logrus.WithError(err).WithField("radio", r.name).Error("failed to rebuild command socket")
		r.cmdSock = sock
		return
	}
	r.cmdSock = sock
}

// SendDownlink sends a DownlinkFrame and waits for the acknowledgement.
func (r *Radio) SendDownlink(ctx context.Context, frame *gw.DownlinkFrame) (*gw.DownlinkTxAck, error) {
	data, err := gw.MarshalDownlinkFrame(frame)
	if err != nil {
		return nil, fmt.Errorf("backend: %s: marshal downlink: %w", r.name, err)
	}

	resp, err := r.sendCommandRaw(ctx, "down", data)
	if err != nil {
		return nil, err
	}

	return gw.UnmarshalDownlinkTxAck(resp)
}

// SendGatewayConfiguration pushes a channel-plan configuration.
func (r *Radio) SendGatewayConfiguration(ctx context.Context, cfg *gw.GatewayConfiguration) error {
	data, err := gw.MarshalCommand(&gw.Command{SetGatewayConfiguration: cfg})
	if err != nil {
		return fmt.Errorf("backend: %s: marshal configuration: %w", r.name, err)
	}

	_, err = r.sendCommandRaw(ctx, "config", data)
	return err
}
