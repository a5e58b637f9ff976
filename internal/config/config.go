// Package config loads and validates the gateway-mesh configuration file(s)
// into the typed structures the rest of the program consumes.
package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/agsys/gateway-mesh/internal/mapping"
	"github.com/agsys/gateway-mesh/internal/meshcrypto"
	"github.com/agsys/gateway-mesh/internal/relay"
)

// Configuration is the on-disk shape of the gateway-mesh config file(s),
// loaded with viper/yaml by Load. ToRelayConfig converts it into a
// relay.Config; the CLI layer reads the remaining settings (logging,
// sockets, periodic emitters) from it directly.
type Configuration struct {
	Logging  Logging  `yaml:"logging"`
	Mesh     Mesh     `yaml:"mesh"`
	Backend  Backend  `yaml:"backend"`
	Events   Events   `yaml:"events"`
	Commands Commands `yaml:"commands"`
	Mappings Mappings `yaml:"mappings"`
}

type Logging struct {
	Level       string `yaml:"level"`
	LogToSyslog bool   `yaml:"log_to_syslog"`
}

type Mesh struct {
	RootKey                     string   `yaml:"root_key"`
	SigningKey                  string   `yaml:"signing_key"`
	RelayID                     string   `yaml:"relay_id"`
	BorderGateway               bool     `yaml:"border_gateway"`
	BorderGatewayIgnoreDirectUp bool     `yaml:"border_gateway_ignore_direct_uplinks"`
	MaxHopCount                 uint8    `yaml:"max_hop_count"`
	Frequencies                 []uint32 `yaml:"frequencies"`
	TxPower                     int32    `yaml:"tx_power"`
	DataRate                    DataRate `yaml:"data_rate"`
	ProxyAPI                    ProxyAPI `yaml:"proxy_api"`
	Filters                     Filters  `yaml:"filters"`
}

type ProxyAPI struct {
	EventBind   string `yaml:"event_bind"`
	CommandBind string `yaml:"command_bind"`
}

type Filters struct {
	DevAddrPrefixes []string `yaml:"dev_addr_prefixes"`
	JoinEUIPrefixes []string `yaml:"join_eui_prefixes"`
	LoRaWANOnly     bool     `yaml:"lorawan_only"`
}

type Backend struct {
	Concentratord     Endpoints `yaml:"concentratord"`
	MeshConcentratord Endpoints `yaml:"mesh_concentratord"`
}

type Endpoints struct {
	EventURL   string `yaml:"event_url"`
	CommandURL string `yaml:"command_url"`
}

type Events struct {
	HeartbeatInterval time.Duration      `yaml:"heartbeat_interval"`
	Commands          map[uint8][]string `yaml:"commands"`
	Sets              []EventSet         `yaml:"sets"`
}

type EventSet struct {
	Interval time.Duration `yaml:"interval"`
	Events   []uint8       `yaml:"events"`
}

type Commands struct {
	Commands map[uint8][]string `yaml:"commands"`
}

type Mappings struct {
	Channels  []uint32   `yaml:"channels"`
	TxPower   []int32    `yaml:"tx_power"`
	DataRates []DataRate `yaml:"data_rates"`
}

type DataRate struct {
	Modulation      string  `yaml:"modulation"`
	SpreadingFactor uint8   `yaml:"spreading_factor"`
	Bandwidth       uint32  `yaml:"bandwidth"`
	CodeRate        *string `yaml:"code_rate"`
	Bitrate         uint32  `yaml:"bitrate"`
}

func defaults() *Configuration {
	return &Configuration{
		Logging: Logging{Level: "info"},
		Mesh: Mesh{
			MaxHopCount: 1,
			Frequencies: []uint32{868100000, 868300000, 868500000},
			TxPower:     16,
			DataRate:    DataRate{Modulation: "LORA", SpreadingFactor: 7, Bandwidth: 125000, CodeRate: strPtr("4/5")},
			ProxyAPI: ProxyAPI{
				EventBind:   "ipc:///tmp/gateway_relay_event",
				CommandBind: "ipc:///tmp/gateway_relay_command",
			},
		},
		Backend: Backend{
			Concentratord:     Endpoints{EventURL: "ipc:///tmp/concentratord_event", CommandURL: "ipc:///tmp/concentratord_command"},
			MeshConcentratord: Endpoints{EventURL: "ipc:///tmp/concentratord_event", CommandURL: "ipc:///tmp/concentratord_command"},
		},
		Events: Events{HeartbeatInterval: 300 * time.Second},
	}
}

func strPtr(s string) *string { return &s }

// Load reads and merges one or more YAML configuration files, in order,
// applying defaults for anything left unset.
func Load(paths []string) (*Configuration, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("config: at least one configuration path is required")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	v.SetConfigFile(paths[0])
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", paths[0], err)
	}
	for _, p := range paths[1:] {
		v.SetConfigFile(p)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("config: merge %s: %w", p, err)
		}
	}

	conf := defaults()
	decodeOpt := func(c *mapstructure.DecoderConfig) {
		c.TagName = "yaml"
		// Config files spell event/command type keys as YAML integers,
		// which the generic map decode stage sees as strings; allow the
		// numeric conversion into map[uint8][]string.
		c.WeaklyTypedInput = true
	}
	if err := v.Unmarshal(conf, decodeOpt); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return conf, nil
}

// ToRelayConfig converts the on-disk configuration into the relay engine's
// runtime configuration, parsing hex keys and building the mapping tables.
func (c *Configuration) ToRelayConfig() (relay.Config, error) {
	rootKey, err := parseKey16(c.Mesh.RootKey)
	if err != nil {
		return relay.Config{}, fmt.Errorf("config: mesh.root_key: %w", err)
	}

	var signingOverride meshcrypto.Key16
	if c.Mesh.SigningKey != "" {
		signingOverride, err = parseKey16(c.Mesh.SigningKey)
		if err != nil {
			return relay.Config{}, fmt.Errorf("config: mesh.signing_key: %w", err)
		}
	}

	var relayID [4]byte
	if c.Mesh.RelayID != "" {
		b, err := hex.DecodeString(c.Mesh.RelayID)
		if err != nil || len(b) != 4 {
			return relay.Config{}, fmt.Errorf("config: mesh.relay_id must be 4 hex-encoded bytes")
		}
		copy(relayID[:], b)
	}

	dataRate, err := c.Mesh.DataRate.toMapping()
	if err != nil {
		return relay.Config{}, fmt.Errorf("config: mesh.data_rate: %w", err)
	}

	channels := c.Mappings.Channels
	if len(channels) == 0 {
		channels = c.Mesh.Frequencies
	}

	dataRates := make([]mapping.DataRate, 0, len(c.Mappings.DataRates))
	for _, dr := range c.Mappings.DataRates {
		mdr, err := dr.toMapping()
		if err != nil {
			return relay.Config{}, fmt.Errorf("config: mappings.data_rates: %w", err)
		}
		dataRates = append(dataRates, mdr)
	}
	if len(dataRates) == 0 {
		dataRates = []mapping.DataRate{dataRate}
	}

	txPowers := c.Mappings.TxPower
	if len(txPowers) == 0 {
		txPowers = []int32{c.Mesh.TxPower}
	}

	filters, err := c.Mesh.Filters.toRelay()
	if err != nil {
		return relay.Config{}, fmt.Errorf("config: mesh.filters: %w", err)
	}

	if c.Mesh.MaxHopCount < 1 || c.Mesh.MaxHopCount > 8 {
		return relay.Config{}, fmt.Errorf("config: mesh.max_hop_count must be 1..8, got %d", c.Mesh.MaxHopCount)
	}

	return relay.Config{
		BorderGateway:       c.Mesh.BorderGateway,
		RelayID:             relayID,
		RootKey:             rootKey,
		SigningKeyOverride:  signingOverride,
		MaxHopCount:         c.Mesh.MaxHopCount,
		MeshFrequencies:     c.Mesh.Frequencies,
		MeshDataRate:        dataRate,
		MeshTxPower:         c.Mesh.TxPower,
		IgnoreDirectUplinks: c.Mesh.BorderGatewayIgnoreDirectUp,
		Filters:             filters,
		Channels:            mapping.NewChannels(channels),
		DataRates:           mapping.NewDataRates(dataRates),
		TxPowers:            mapping.NewTxPowers(txPowers),
		CommandHandlers:     c.Commands.Commands,
		EventHandlers:       c.Events.Commands,
	}, nil
}

func parseKey16(s string) (meshcrypto.Key16, error) {
	var key meshcrypto.Key16
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 16 {
		return key, fmt.Errorf("expected 16 hex-encoded bytes")
	}
	copy(key[:], b)
	return key, nil
}

func (dr DataRate) toMapping() (mapping.DataRate, error) {
	var modulation mapping.Modulation
	switch dr.Modulation {
	case "LORA", "lora", "":
		modulation = mapping.ModulationLoRa
	case "FSK", "fsk":
		modulation = mapping.ModulationFSK
	default:
		return mapping.DataRate{}, fmt.Errorf("unknown modulation %q", dr.Modulation)
	}

	m := mapping.DataRate{
		Modulation:      modulation,
		SpreadingFactor: dr.SpreadingFactor,
		Bandwidth:       dr.Bandwidth,
		Bitrate:         dr.Bitrate,
	}
	if dr.CodeRate != nil {
		cr, err := mapping.ParseCodeRate(*dr.CodeRate)
		if err != nil {
			return mapping.DataRate{}, err
		}
		m.CodeRate = &cr
	}
	return m, nil
}

func (f Filters) toRelay() (relay.Filters, error) {
	out := relay.Filters{LoRaWANOnly: f.LoRaWANOnly}
	for _, s := range f.DevAddrPrefixes {
		p, err := relay.ParseAddrPrefix(s)
		if err != nil {
			return relay.Filters{}, err
		}
		out.DevAddrPrefixes = append(out.DevAddrPrefixes, p)
	}
	for _, s := range f.JoinEUIPrefixes {
		p, err := relay.ParseAddrPrefix(s)
		if err != nil {
			return relay.Filters{}, err
		}
		out.JoinEUIPrefixes = append(out.JoinEUIPrefixes, p)
	}
	return out, nil
}
