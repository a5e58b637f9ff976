package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agsys/gateway-mesh/internal/packets"
)

func TestExecuteCommandsRunsHandlerAndCollectsEvent(t *testing.T) {
	e, _, _, _ := newTestEngine(t, false, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})
	e.cfg.CommandHandlers = map[uint8][]string{1: {"/bin/cat"}}

	pl := &packets.CommandPayload{
		Timestamp: 100,
		RelayID:   [4]byte{5, 6, 7, 8},
		Commands:  []packets.Command{{Type: 1, Value: []byte("hello")}},
	}

	events, err := e.ExecuteCommands(context.Background(), pl)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, byte(1), events[0].Type)
	assert.Equal(t, []byte("hello"), events[0].Value)
}

func TestExecuteCommandsSkipsUnknownType(t *testing.T) {
	e, _, _, _ := newTestEngine(t, false, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})

	pl := &packets.CommandPayload{
		Timestamp: 100,
		RelayID:   [4]byte{5, 6, 7, 8},
		Commands:  []packets.Command{{Type: 9, Value: []byte("hello")}},
	}

	events, err := e.ExecuteCommands(context.Background(), pl)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestExecuteCommandsRejectsNonIncreasingTimestamp(t *testing.T) {
	e, _, _, _ := newTestEngine(t, false, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})
	e.cfg.CommandHandlers = map[uint8][]string{1: {"/bin/cat"}}

	pl := &packets.CommandPayload{Timestamp: 100, RelayID: [4]byte{5, 6, 7, 8}, Commands: []packets.Command{{Type: 1}}}
	_, err := e.ExecuteCommands(context.Background(), pl)
	require.NoError(t, err)

	pl.Timestamp = 100
	_, err = e.ExecuteCommands(context.Background(), pl)
	assert.Error(t, err)

	pl.Timestamp = 50
	_, err = e.ExecuteCommands(context.Background(), pl)
	assert.Error(t, err)

	pl.Timestamp = 101
	_, err = e.ExecuteCommands(context.Background(), pl)
	assert.NoError(t, err)
}

func TestExecuteCommandsContinuesAfterHandlerFailure(t *testing.T) {
	e, _, _, _ := newTestEngine(t, false, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})
	e.cfg.CommandHandlers = map[uint8][]string{
		1: {"/bin/false"},
		2: {"/bin/cat"},
	}

	pl := &packets.CommandPayload{
		Timestamp: 100,
		RelayID:   [4]byte{5, 6, 7, 8},
		Commands: []packets.Command{
			{Type: 1, Value: []byte("x")},
			{Type: 2, Value: []byte("y")},
		},
	}

	events, err := e.ExecuteCommands(context.Background(), pl)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, byte(2), events[0].Type)
}
