package relay

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/agsys/gateway-mesh/internal/packets"
)

// EventSet is one periodic group of proprietary event types reported
// together as a single mesh Event packet.
type EventSet struct {
	Events   []uint8
	Interval time.Duration
}

// RunHeartbeat periodically sends an empty-path Heartbeat event, if
// interval is non-zero. Blocks until ctx is canceled.
func (e *Engine) RunHeartbeat(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			heartbeat := packets.NewHeartbeatEvent(nil)
			if err := e.SendEvents(ctx, []packets.Event{heartbeat}); err != nil {
				logrus.WithError(err).Error("failed to send heartbeat")
			}
		}
	}
}

// RunEventSet periodically runs each configured event type's producer
// subprocess and reports the collected results as a single mesh Event
// packet. Blocks until ctx is canceled.
func (e *Engine) RunEventSet(ctx context.Context, set EventSet) {
	if set.Interval <= 0 || len(set.Events) == 0 {
		return
	}

	ticker := time.NewTicker(set.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			events := e.reportEvents(ctx, set.Events)
			if len(events) == 0 {
				continue
			}
			if err := e.SendEvents(ctx, events); err != nil {
				logrus.WithError(err).Error("failed to send event set")
			}
		}
	}
}

// reportEvents runs each configured event type's subprocess, best-effort:
// a single type's failure is logged and skipped, the rest still report.
func (e *Engine) reportEvents(ctx context.Context, types []uint8) []packets.Event {
	events := make([]packets.Event, 0, len(types))
	for _, typ := range types {
		argv, ok := e.cfg.EventHandlers[typ]
		if !ok || len(argv) == 0 {
			logrus.WithField("event_type", typ).Warn("no handler configured for event type")
			continue
		}

		out, err := produceEvent(ctx, argv)
		if err != nil {
			logrus.WithError(err).WithField("event_type", typ).Error("event handler failed")
			continue
		}

		ev, err := packets.NewProprietaryEvent(typ, out)
		if err != nil {
			logrus.WithError(err).WithField("event_type", typ).Error("invalid event")
			continue
		}
		events = append(events, ev)
	}
	return events
}

// produceEvent execs argv[0] with argv[1:] and returns its stdout. Unlike
// a command handler, an event producer receives no stdin.
func produceEvent(ctx context.Context, argv []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}
