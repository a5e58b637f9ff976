package packets

import (
	"encoding/binary"
	"fmt"
)

// Command is one TLV element of a CommandPayload. Unlike Event there is no
// reserved type: every Command is opaque proprietary data.
type Command struct {
	Type  byte
	Value []byte
}

func (c Command) toBytes() ([]byte, error) {
	if len(c.Value) > 255 {
		return nil, fmt.Errorf("packets: command value too long (%d bytes)", len(c.Value))
	}
	out := make([]byte, 0, 2+len(c.Value))
	out = append(out, c.Type, byte(len(c.Value)))
	out = append(out, c.Value...)
	return out, nil
}

func decodeCommands(b []byte) ([]Command, error) {
	var commands []Command

	for len(b) > 0 {
		if len(b) < 2 {
			return nil, fmt.Errorf("packets: truncated command TLV header")
		}
		typ, length := b[0], int(b[1])
		b = b[2:]
		if len(b) < length {
			return nil, fmt.Errorf("packets: truncated command TLV value")
		}
		value := make([]byte, length)
		copy(value, b[:length])
		b = b[length:]

		commands = append(commands, Command{Type: typ, Value: value})
	}

	return commands, nil
}

func encodeCommands(commands []Command) ([]byte, error) {
	var out []byte
	for _, c := range commands {
		b, err := c.toBytes()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// CommandPayload is the body of a MeshPacket{PayloadTypeCommand}. As with
// EventPayload, Commands travels on the wire as a single encrypted blob.
type CommandPayload struct {
	Timestamp uint32
	RelayID   [4]byte
	Commands  []Command
	Cipher    []byte
}

const commandPayloadHeaderLen = 8

func commandPayloadFromBytes(b []byte) (CommandPayload, error) {
	if len(b) < commandPayloadHeaderLen {
		return CommandPayload{}, fmt.Errorf("packets: at least %d bytes are expected for a command payload", commandPayloadHeaderLen)
	}

	var relayID [4]byte
	copy(relayID[:], b[4:8])

	cipher := make([]byte, len(b)-commandPayloadHeaderLen)
	copy(cipher, b[commandPayloadHeaderLen:])

	return CommandPayload{
		Timestamp: binary.BigEndian.Uint32(b[0:4]),
		RelayID:   relayID,
		Cipher:    cipher,
	}, nil
}

func (p CommandPayload) toBytes() ([]byte, error) {
	if p.Cipher == nil {
		return nil, fmt.Errorf("packets: command payload must be encrypted before serialization")
	}

	out := make([]byte, 0, commandPayloadHeaderLen+len(p.Cipher))
	var ts [4]byte
	binary.BigEndian.PutUint32(ts[:], p.Timestamp)
	out = append(out, ts[:]...)
	out = append(out, p.RelayID[:]...)
	out = append(out, p.Cipher...)
	return out, nil
}
