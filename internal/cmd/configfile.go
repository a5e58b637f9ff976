package cmd

const exampleConfig = `# Logging settings.
logging:
  # Valid options: trace, debug, info, warn, error, fatal, panic.
  level: info
  # Write to syslog instead of stderr.
  log_to_syslog: false

# Mesh relay settings.
mesh:
  # 16-byte hex root key the signing and encryption keys are derived from.
  root_key: "00000000000000000000000000000000"
  # Optional legacy signing_key override (16-byte hex). Leave blank to
  # derive signing_key from root_key.
  signing_key: ""
  # Optional 4-byte hex relay_id override. Defaults to the last 4 bytes of
  # the device concentrator's gateway ID.
  relay_id: ""
  # Whether this node is the Border Gateway (bridges the mesh upstream).
  border_gateway: false
  # On a Border Gateway, drop device-radio uplinks instead of proxying
  # them upstream (mesh-only border node).
  border_gateway_ignore_direct_uplinks: false
  # Maximum mesh hop count, 1..8.
  max_hop_count: 4
  # Mesh radio frequencies (Hz); transmissions cycle through them in order.
  frequencies: [868100000, 868300000, 868500000]
  tx_power: 16
  data_rate:
    modulation: LORA
    spreading_factor: 7
    bandwidth: 125000
    code_rate: "4/5"
    bitrate: 0
  # Border Gateway only: where the forwarder's upstream API binds.
  proxy_api:
    event_bind: "ipc:///tmp/gateway_relay_event"
    command_bind: "ipc:///tmp/gateway_relay_command"
  # Optional device-radio uplink pre-filter.
  filters:
    dev_addr_prefixes: []
    join_eui_prefixes: []
    lorawan_only: false

# Concentrator backend endpoints.
backend:
  concentratord:
    event_url: "ipc:///tmp/concentratord_event"
    command_url: "ipc:///tmp/concentratord_command"
  mesh_concentratord:
    event_url: "ipc:///tmp/concentratord_event"
    command_url: "ipc:///tmp/concentratord_command"

# Periodic and on-demand mesh events (Relay Gateway only).
events:
  # 0 disables the heartbeat.
  heartbeat_interval: 300s
  commands: {}
  sets: []

# Proprietary mesh commands this node can execute (Relay Gateway only).
commands:
  commands: {}

# Mappings from configured values to the compact indices used on the air.
mappings:
  channels: []
  tx_power: []
  data_rates: []
`
