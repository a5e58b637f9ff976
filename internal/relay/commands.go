package relay

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/agsys/gateway-mesh/internal/packets"
)

// commandTimestamps guards the last-seen Command packet timestamp,
// rejecting any batch that does not strictly increase it. This defends
// against a replayed mesh Command packet re-triggering its side effects.
type commandTimestamps struct {
	mu   sync.Mutex
	last uint32
	seen bool
}

func (c *commandTimestamps) accept(ts uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.seen && ts <= c.last {
		return fmt.Errorf("relay: command timestamp %d is not greater than last seen timestamp %d", ts, c.last)
	}
	c.last = ts
	c.seen = true
	return nil
}

// ExecuteCommands runs every proprietary command in pl against the
// configured subprocess argv for its type, returning one Proprietary Event
// per command carrying that subprocess's stdout. The whole batch is
// rejected if pl.Timestamp does not strictly increase on the last accepted
// batch; a single command's own failure does not abort the rest of the
// batch, it is only logged.
func (e *Engine) ExecuteCommands(ctx context.Context, pl *packets.CommandPayload) ([]packets.Event, error) {
	if err := e.commandTimestamps.accept(pl.Timestamp); err != nil {
		return nil, err
	}

	events := make([]packets.Event, 0, len(pl.Commands))
	for _, cmd := range pl.Commands {
		argv, ok := e.cfg.CommandHandlers[cmd.Type]
		if !ok || len(argv) == 0 {
			logrus.WithField("command_type", cmd.Type).Warn("no handler configured for command type")
			continue
		}

		out, err := runHandler(ctx, argv, cmd.Value)
		if err != nil {
			logrus.WithError(err).WithField("command_type", cmd.Type).Error("command handler failed")
			continue
		}

		ev, err := packets.NewProprietaryEvent(cmd.Type, out)
		if err != nil {
			logrus.WithError(err).WithField("command_type", cmd.Type).Error("invalid command response event")
			continue
		}
		events = append(events, ev)
	}

	return events, nil
}

// runHandler execs argv[0] with argv[1:], writes value to its stdin, and
// returns its stdout. stderr is captured only for the error it contributes
// on failure.
func runHandler(ctx context.Context, argv []string, value []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = bytes.NewReader(value)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("relay: run %q: %w: %s", argv[0], err, stderr.String())
	}
	return stdout.Bytes(), nil
}
