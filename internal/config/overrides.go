package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. INKREADER_SERVER_HOST.
const EnvPrefix = "INKREADER"

// Override keys. Flags bound to these keys and INKREADER_* variables take
// precedence over the config file.
const (
	KeyServerHost   = "server.host"
	KeyServerPort   = "server.port"
	KeyDeviceID     = "server.device_id"
	KeyWidth        = "display.width"
	KeyHeight       = "display.height"
	KeyDPI          = "display.dpi"
	KeyColorDepth   = "display.color_depth"
	KeyStorageDir   = "storage.dir"
	KeyStatePath    = "storage.state_path"
	KeyBackend      = "input.backend"
	KeyEvdevDevice  = "input.evdev_device"
	KeyCooldown     = "input.cooldown"
	KeyTick         = "loop.tick"
	KeyAwakeTime    = "loop.awake_time"
	KeyHTTPListen   = "telemetry.http_listen"
	KeyMQTTBroker   = "telemetry.mqtt_broker"
	KeyMQTTPrefix   = "telemetry.mqtt_prefix"
	KeyPingHost     = "telemetry.ping_host"
	KeyPingInterval = "telemetry.ping_interval"
	KeyLogLevel     = "log.level"
)

// NewViper returns a viper instance reading INKREADER_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// ApplyOverrides copies every key set in v onto cfg and revalidates the result.
// A nil v leaves cfg untouched.
func ApplyOverrides(cfg Config, v *viper.Viper) (Config, error) {
	if v == nil {
		return cfg, nil
	}

	overrideString(v, KeyServerHost, &cfg.ServerHost)
	overrideInt(v, KeyServerPort, &cfg.ServerPort)
	overrideString(v, KeyDeviceID, &cfg.DeviceID)

	overrideInt(v, KeyWidth, &cfg.Display.Width)
	overrideInt(v, KeyHeight, &cfg.Display.Height)
	overrideInt(v, KeyDPI, &cfg.Display.DPI)
	overrideInt(v, KeyColorDepth, &cfg.Display.ColorDepth)

	if v.IsSet(KeyStorageDir) {
		if dir := strings.TrimSpace(v.GetString(KeyStorageDir)); dir != "" {
			cfg.StorageDir = mustExpand(dir)
			if !v.IsSet(KeyStatePath) {
				cfg.StatePath = filepath.Join(cfg.StorageDir, stateFileName)
			}
		}
	}
	if v.IsSet(KeyStatePath) {
		if statePath := strings.TrimSpace(v.GetString(KeyStatePath)); statePath != "" {
			cfg.StatePath = mustExpand(statePath)
		}
	}

	if v.IsSet(KeyBackend) {
		if backend := strings.TrimSpace(v.GetString(KeyBackend)); backend != "" {
			cfg.Input.Backend = Backend(strings.ToLower(backend))
		}
	}
	overrideString(v, KeyEvdevDevice, &cfg.Input.EvdevDevice)

	overrideDuration(v, KeyCooldown, &cfg.Cooldown)
	overrideDuration(v, KeyTick, &cfg.Tick)
	overrideDuration(v, KeyAwakeTime, &cfg.AwakeTime)

	overrideString(v, KeyHTTPListen, &cfg.HTTPListen)
	overrideString(v, KeyMQTTBroker, &cfg.MQTTBroker)
	overrideString(v, KeyMQTTPrefix, &cfg.MQTTPrefix)
	overrideString(v, KeyPingHost, &cfg.PingHost)
	overrideDuration(v, KeyPingInterval, &cfg.PingInterval)

	overrideString(v, KeyLogLevel, &cfg.LogLevel)

	return cfg, cfg.Validate()
}

func overrideString(v *viper.Viper, key string, dst *string) {
	if v.IsSet(key) {
		setString(dst, v.GetString(key))
	}
}

func overrideInt(v *viper.Viper, key string, dst *int) {
	if v.IsSet(key) {
		setInt(dst, v.GetInt(key))
	}
}

func overrideDuration(v *viper.Viper, key string, dst *time.Duration) {
	if v.IsSet(key) {
		*dst = v.GetDuration(key)
	}
}
