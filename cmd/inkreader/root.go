package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/five82/inkreader/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	overrides  *viper.Viper
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{overrides: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:           "inkreader",
		Short:         "E-paper page reader client",
		Long:          "inkreader shows pages pushed by a page server on an e-paper panel, caches them locally and lets three buttons page through them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default ~/.config/inkreader/config.toml)")
	flags.String("host", "", "page server host")
	flags.Int("port", 0, "page server port")
	flags.String("device-id", "", "device id reported to the server")
	flags.String("storage-dir", "", "directory for pages, state and device id")
	flags.String("backend", "", "button backend: evdev, gpio or manual")
	flags.String("http", "", "status server listen address, e.g. :8080")
	flags.String("mqtt", "", "MQTT broker URL for status publishing")
	flags.String("ping", "", "host probed to report network reachability")
	flags.String("log-level", "", "debug, info, warn or error")

	bindings := map[string]string{
		config.KeyServerHost: "host",
		config.KeyServerPort: "port",
		config.KeyDeviceID:   "device-id",
		config.KeyStorageDir: "storage-dir",
		config.KeyBackend:    "backend",
		config.KeyHTTPListen: "http",
		config.KeyMQTTBroker: "mqtt",
		config.KeyPingHost:   "ping",
		config.KeyLogLevel:   "log-level",
	}
	for key, flag := range bindings {
		// Lookup never fails for flags registered above.
		_ = opts.overrides.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(
		newRunCmd(opts),
		newSimCmd(opts),
		newStateCmd(opts),
		newCacheCmd(opts),
		newVersionCmd(),
	)
	return rootCmd
}

func newLogger(w io.Writer, levelName string) *slog.Logger {
	level, err := config.ParseLevel(levelName)
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
