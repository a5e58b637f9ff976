package relay

import (
	"github.com/agsys/gateway-mesh/internal/mapping"
	"github.com/agsys/gateway-mesh/internal/meshcrypto"
)

// Config is everything the relay engine needs from the loaded
// configuration, decoupled from the config package's on-disk shape so the
// two can evolve independently.
type Config struct {
	BorderGateway bool
	RelayID       [4]byte

	RootKey            meshcrypto.Key16
	SigningKeyOverride meshcrypto.Key16

	MaxHopCount     uint8
	MeshFrequencies []uint32
	MeshDataRate    mapping.DataRate
	MeshTxPower     int32

	// IgnoreDirectUplinks drops device-radio LoRaWAN uplinks on a Border
	// Gateway instead of proxying them upstream, for deployments where the
	// border node's own concentrator should only serve the mesh.
	IgnoreDirectUplinks bool
	// Filters optionally restricts which device-radio LoRaWAN uplinks are
	// proxied or relayed at all.
	Filters Filters

	Channels  *mapping.Channels
	DataRates *mapping.DataRates
	TxPowers  *mapping.TxPowers

	// CommandHandlers maps a proprietary command type to the subprocess
	// argv that executes it. Relay Gateway only.
	CommandHandlers map[uint8][]string
	// EventHandlers maps a proprietary event type to the subprocess argv
	// that produces its payload. Relay Gateway only.
	EventHandlers map[uint8][]string
}
