package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Backend names the button source.
type Backend string

const (
	BackendEvdev  Backend = "evdev"
	BackendGPIO   Backend = "gpio"
	BackendManual Backend = "manual"
)

// Display describes the panel reported to the server at registration.
type Display struct {
	Width      int
	Height     int
	DPI        int
	ColorDepth int
}

// Input selects and configures the button source.
type Input struct {
	Backend     Backend
	EvdevDevice string
	KeyLeft     string
	KeyMiddle   string
	KeyRight    string
	PinLeft     string
	PinMiddle   string
	PinRight    string
}

// Config is the resolved device configuration.
type Config struct {
	ServerHost string
	ServerPort int
	DeviceID   string

	Display Display
	Input   Input

	StorageDir string
	StatePath  string

	Cooldown  time.Duration
	Tick      time.Duration
	AwakeTime time.Duration

	HTTPListen   string
	MQTTBroker   string
	MQTTPrefix   string
	PingHost     string
	PingInterval time.Duration

	LogLevel string
}

const (
	defaultConfigPath   = "~/.config/inkreader/config.toml"
	defaultStorageDir   = "~/.local/share/inkreader"
	defaultServerHost   = "127.0.0.1"
	defaultServerPort   = 8000
	defaultWidth        = 825
	defaultHeight       = 1200
	defaultDPI          = 128
	defaultColorDepth   = 1
	defaultCooldown     = 500 * time.Millisecond
	defaultTick         = 20 * time.Millisecond
	defaultAwakeTime    = 60 * time.Second
	defaultPingInterval = 30 * time.Second
	defaultEvdevDevice  = "gpio-keys"
	defaultKeyLeft      = "KEY_LEFT"
	defaultKeyMiddle    = "KEY_ENTER"
	defaultKeyRight     = "KEY_RIGHT"
	defaultPinLeft      = "GPIO5"
	defaultPinMiddle    = "GPIO6"
	defaultPinRight     = "GPIO13"
	defaultLogLevel     = "info"

	stateFileName    = "state.toml"
	pagesDirName     = "pages"
	deviceIDFileName = "device_id"
)

type rawConfig struct {
	Server struct {
		Host     string `toml:"host"`
		Port     int    `toml:"port"`
		DeviceID string `toml:"device_id"`
	} `toml:"server"`
	Display struct {
		Width      int `toml:"width"`
		Height     int `toml:"height"`
		DPI        int `toml:"dpi"`
		ColorDepth int `toml:"color_depth"`
	} `toml:"display"`
	Storage struct {
		Dir       string `toml:"dir"`
		StatePath string `toml:"state_path"`
	} `toml:"storage"`
	Input struct {
		Backend     string `toml:"backend"`
		EvdevDevice string `toml:"evdev_device"`
		KeyLeft     string `toml:"key_left"`
		KeyMiddle   string `toml:"key_middle"`
		KeyRight    string `toml:"key_right"`
		PinLeft     string `toml:"pin_left"`
		PinMiddle   string `toml:"pin_middle"`
		PinRight    string `toml:"pin_right"`
		Cooldown    string `toml:"cooldown"`
	} `toml:"input"`
	Loop struct {
		Tick      string `toml:"tick"`
		AwakeTime string `toml:"awake_time"`
	} `toml:"loop"`
	Telemetry struct {
		HTTPListen   string `toml:"http_listen"`
		MQTTBroker   string `toml:"mqtt_broker"`
		MQTTPrefix   string `toml:"mqtt_prefix"`
		PingHost     string `toml:"ping_host"`
		PingInterval string `toml:"ping_interval"`
	} `toml:"telemetry"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	storage := mustExpand(defaultStorageDir)
	return Config{
		ServerHost: defaultServerHost,
		ServerPort: defaultServerPort,
		Display: Display{
			Width:      defaultWidth,
			Height:     defaultHeight,
			DPI:        defaultDPI,
			ColorDepth: defaultColorDepth,
		},
		Input: Input{
			Backend:     BackendEvdev,
			EvdevDevice: defaultEvdevDevice,
			KeyLeft:     defaultKeyLeft,
			KeyMiddle:   defaultKeyMiddle,
			KeyRight:    defaultKeyRight,
			PinLeft:     defaultPinLeft,
			PinMiddle:   defaultPinMiddle,
			PinRight:    defaultPinRight,
		},
		StorageDir:   storage,
		StatePath:    filepath.Join(storage, stateFileName),
		Cooldown:     defaultCooldown,
		Tick:         defaultTick,
		AwakeTime:    defaultAwakeTime,
		PingInterval: defaultPingInterval,
		LogLevel:     defaultLogLevel,
	}
}

// Load locates and parses the device config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.apply(raw); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) apply(raw rawConfig) error {
	setString(&c.ServerHost, raw.Server.Host)
	setInt(&c.ServerPort, raw.Server.Port)
	setString(&c.DeviceID, raw.Server.DeviceID)

	setInt(&c.Display.Width, raw.Display.Width)
	setInt(&c.Display.Height, raw.Display.Height)
	setInt(&c.Display.DPI, raw.Display.DPI)
	setInt(&c.Display.ColorDepth, raw.Display.ColorDepth)

	if dir := strings.TrimSpace(raw.Storage.Dir); dir != "" {
		c.StorageDir = mustExpand(dir)
		c.StatePath = filepath.Join(c.StorageDir, stateFileName)
	}
	if statePath := strings.TrimSpace(raw.Storage.StatePath); statePath != "" {
		c.StatePath = mustExpand(statePath)
	}

	if backend := strings.TrimSpace(raw.Input.Backend); backend != "" {
		c.Input.Backend = Backend(strings.ToLower(backend))
	}
	setString(&c.Input.EvdevDevice, raw.Input.EvdevDevice)
	setString(&c.Input.KeyLeft, raw.Input.KeyLeft)
	setString(&c.Input.KeyMiddle, raw.Input.KeyMiddle)
	setString(&c.Input.KeyRight, raw.Input.KeyRight)
	setString(&c.Input.PinLeft, raw.Input.PinLeft)
	setString(&c.Input.PinMiddle, raw.Input.PinMiddle)
	setString(&c.Input.PinRight, raw.Input.PinRight)

	if err := setDuration(&c.Cooldown, "input.cooldown", raw.Input.Cooldown); err != nil {
		return err
	}
	if err := setDuration(&c.Tick, "loop.tick", raw.Loop.Tick); err != nil {
		return err
	}
	if err := setDuration(&c.AwakeTime, "loop.awake_time", raw.Loop.AwakeTime); err != nil {
		return err
	}

	setString(&c.HTTPListen, raw.Telemetry.HTTPListen)
	setString(&c.MQTTBroker, raw.Telemetry.MQTTBroker)
	setString(&c.MQTTPrefix, raw.Telemetry.MQTTPrefix)
	setString(&c.PingHost, raw.Telemetry.PingHost)
	if err := setDuration(&c.PingInterval, "telemetry.ping_interval", raw.Telemetry.PingInterval); err != nil {
		return err
	}

	setString(&c.LogLevel, raw.Log.Level)
	return nil
}

// Validate rejects values the device loop cannot run with.
func (c Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("server.port %d out of range", c.ServerPort)
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display size %dx%d is invalid", c.Display.Width, c.Display.Height)
	}
	switch c.Input.Backend {
	case BackendEvdev, BackendGPIO, BackendManual:
	default:
		return fmt.Errorf("input.backend %q is not one of evdev, gpio, manual", c.Input.Backend)
	}
	if c.Tick <= 0 {
		return fmt.Errorf("loop.tick must be positive")
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("input.cooldown must not be negative")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// PullURL is the base URL of the page download endpoint.
func (c Config) PullURL() string {
	u := url.URL{Scheme: "http", Host: c.hostPort()}
	return u.String()
}

// PushURL is the websocket URL of the push channel.
func (c Config) PushURL() string {
	u := url.URL{
		Scheme:   "ws",
		Host:     c.hostPort(),
		Path:     "/socket.io/",
		RawQuery: "EIO=4&transport=websocket",
	}
	return u.String()
}

// PagesDir is where downloaded pages are kept.
func (c Config) PagesDir() string {
	return filepath.Join(c.StorageDir, pagesDirName)
}

// DeviceIDPath is where a generated device id is remembered.
func (c Config) DeviceIDPath() string {
	return filepath.Join(c.StorageDir, deviceIDFileName)
}

func (c Config) hostPort() string {
	return net.JoinHostPort(c.ServerHost, strconv.Itoa(c.ServerPort))
}

// ParseLevel maps a log level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", name)
	}
}

func setString(dst *string, value string) {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		*dst = trimmed
	}
}

func setInt(dst *int, value int) {
	if value != 0 {
		*dst = value
	}
}

func setDuration(dst *time.Duration, key, value string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = d
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
