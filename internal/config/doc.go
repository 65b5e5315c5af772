// Package config loads the reader's device configuration.
//
// # Overview
//
// The device reads a single TOML file describing where the page server lives,
// what the panel looks like, which buttons to read and where to keep pages and
// state. Every field is optional; a missing file yields a working default
// configuration for a device talking to a server on 127.0.0.1:8000.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/inkreader/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// ApplyOverrides then layers command line flags and INKREADER_* environment
// variables on top, through a viper instance whose keys match the TOML
// layout (server.host becomes INKREADER_SERVER_HOST).
//
// # TOML Format
//
//	[server]
//	host = "192.168.1.20"
//	port = 8000
//	device_id = ""            # generated and remembered when empty
//
//	[display]
//	width = 825
//	height = 1200
//	dpi = 128
//	color_depth = 1
//
//	[storage]
//	dir = "~/.local/share/inkreader"
//	state_path = ""           # defaults to <dir>/state.toml
//
//	[input]
//	backend = "evdev"         # evdev, gpio or manual
//	evdev_device = "gpio-keys"
//	key_left = "KEY_LEFT"
//	pin_left = "GPIO5"
//	cooldown = "500ms"
//
//	[loop]
//	tick = "20ms"
//	awake_time = "60s"        # negative keeps the navigation chrome visible
//
//	[telemetry]
//	http_listen = ":8080"     # empty disables the status server
//	mqtt_broker = ""          # empty disables MQTT publishing
//	mqtt_prefix = "inkreader"
//	ping_host = ""            # empty disables the network probe
//	ping_interval = "30s"
//
//	[log]
//	level = "info"
//
// Durations use time.ParseDuration syntax. Tilde expansion is performed on
// every path.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors and unparseable durations
//   - Values that fail Validate (unknown backend, bad port, bad log level)
//
// # Device Identity
//
// EnsureDeviceID returns the configured id or, when none is configured, a UUID
// stored in <storage_dir>/device_id so the server sees the same device across
// reboots.
package config
