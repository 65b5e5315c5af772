package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/five82/inkreader/internal/config"
	"github.com/five82/inkreader/internal/download"
	"github.com/five82/inkreader/internal/input"
	"github.com/five82/inkreader/internal/nav"
	"github.com/five82/inkreader/internal/pagecache"
	"github.com/five82/inkreader/internal/prefs"
	"github.com/five82/inkreader/internal/realtime"
	"github.com/five82/inkreader/internal/render"
	"github.com/five82/inkreader/internal/session"
	"github.com/five82/inkreader/internal/state"
	"github.com/five82/inkreader/internal/telemetry"
	"github.com/five82/inkreader/internal/ui"
)

// Options configure the reader.
type Options struct {
	ConfigPath string
	Overrides  *viper.Viper // flag and environment overrides; may be nil
	Simulate   bool         // terminal simulator instead of hardware buttons
	Panel      render.Panel // physical display; nil keeps frames in memory
	LogPath    string       // log file the simulator tails
	Logger     *slog.Logger
}

// Run boots the reader and blocks until ctx is cancelled or, in simulator
// mode, the user quits.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := LoadConfig(opts.ConfigPath, opts.Overrides)
	if err != nil {
		return err
	}
	if opts.Simulate {
		cfg.Input.Backend = config.BackendManual
	}
	deviceID, err := config.EnsureDeviceID(&cfg)
	if err != nil {
		return fmt.Errorf("device id: %w", err)
	}
	logger.Info("app: starting", "device_id", deviceID, "server", cfg.PullURL(), "backend", string(cfg.Input.Backend))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	stateFile, err := session.NewFile(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("state file: %w", err)
	}
	sess, err := stateFile.Load()
	if err != nil {
		logger.Warn("app: persisted state unusable, starting fresh", "path", stateFile.Path(), "error", err)
	}
	sess.ResetVolatile()

	client, err := download.NewClient(cfg.PullURL(), deviceID)
	if err != nil {
		return fmt.Errorf("init download client: %w", err)
	}
	cache, err := pagecache.New(afero.NewOsFs(), cfg.PagesDir(), &sess, client, logger)
	if err != nil {
		return fmt.Errorf("init page cache: %w", err)
	}

	transport, err := realtime.NewTransport(realtime.TransportOptions{URL: cfg.PushURL(), Logger: logger})
	if err != nil {
		return fmt.Errorf("init push channel: %w", err)
	}

	// Background jobs start only once every fallible setup step has passed.
	var jobs workers
	defer jobs.abort()

	taps := input.NewManualSource()
	hardware, err := openButtons(cfg, &jobs, logger)
	if err != nil {
		return err
	}
	buttons := input.Any(hardware, taps)

	store := &state.Store{}
	compositor, err := render.NewCompositor(render.CompositorOptions{
		Width:      cfg.Display.Width,
		Height:     cfg.Display.Height,
		ColorDepth: cfg.Display.ColorDepth,
		Panel:      opts.Panel,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("init compositor: %w", err)
	}
	sinks := []render.Sink{compositor, render.NewLogSink(logger)}
	var screen *ui.Sink
	if opts.Simulate {
		screen = ui.NewSink()
		sinks = append(sinks, screen)
	}

	var notify func()
	if cfg.MQTTBroker != "" {
		publisher, err := telemetry.NewPublisher(telemetry.PublisherOptions{
			Broker:   cfg.MQTTBroker,
			Prefix:   cfg.MQTTPrefix,
			DeviceID: deviceID,
			Store:    store,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("init mqtt publisher: %w", err)
		}
		notify = publisher.Notify
		jobs.add(publisher.Run)
	}

	ctrl, err := nav.New(nav.Options{
		Session:   &sess,
		Persister: stateFile,
		Cache:     cache,
		Fetcher:   client,
		Sender:    transport,
		Sink:      render.Multi(sinks...),
		Status:    store,
		Notify:    notify,
		Registration: realtime.Registration{
			DeviceID: deviceID,
			Screen: realtime.ScreenInfo{
				ColorDepth: cfg.Display.ColorDepth,
				DPI:        cfg.Display.DPI,
				Resolution: realtime.Resolution{Width: cfg.Display.Width, Height: cfg.Display.Height},
			},
		},
		AwakeTime: cfg.AwakeTime,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("init navigation: %w", err)
	}

	var links linkSource
	if cfg.PingHost != "" {
		prober, err := telemetry.NewProber(telemetry.ProberOptions{
			Host:     cfg.PingHost,
			Interval: cfg.PingInterval,
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("init network probe: %w", err)
		}
		jobs.add(prober.Run)
		links = prober
	} else {
		// Without a probe target the device assumes its network is up.
		sess.Connectivity.NetworkLinkUp = true
	}

	if cfg.HTTPListen != "" {
		server, err := render.NewServer(render.ServerOptions{
			Addr:    cfg.HTTPListen,
			Store:   store,
			Frames:  compositor,
			Buttons: taps,
			Logger:  logger,
		})
		if err != nil {
			return fmt.Errorf("init status server: %w", err)
		}
		jobs.add(server.Serve)
	}

	loop, err := NewLoop(LoopOptions{
		Buttons:    buttons,
		Debouncer:  input.NewDebouncer(cfg.Cooldown),
		Events:     transport,
		Dispatcher: realtime.NewDispatcher(ctrl, logger),
		Links:      links,
		Controller: ctrl,
		Tick:       cfg.Tick,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	if err := ctrl.ShowCurrent(ctx); err != nil {
		logger.Warn("app: initial render failed", "error", err)
	}
	jobs.add(loop.Run)
	jobs.start(ctx, g)
	transport.Start(ctx)

	if opts.Simulate {
		g.Go(func() error {
			defer cancel()
			return ui.Run(ui.Options{
				Context:   ctx,
				Store:     store,
				Screen:    screen,
				Buttons:   taps,
				DeviceID:  deviceID,
				LogPath:   opts.LogPath,
				PrefsPath: prefs.DefaultPath(),
			})
		})
	}

	return g.Wait()
}

// LoadConfig reads the config file and applies overrides.
func LoadConfig(path string, overrides *viper.Viper) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg, err = config.ApplyOverrides(cfg, overrides)
	if err != nil {
		return config.Config{}, fmt.Errorf("apply overrides: %w", err)
	}
	return cfg, nil
}

func openButtons(cfg config.Config, jobs *workers, logger *slog.Logger) (input.Source, error) {
	switch cfg.Input.Backend {
	case config.BackendEvdev:
		src, err := input.OpenEvdev(cfg.Input.EvdevDevice, input.KeyNames{
			Left:   cfg.Input.KeyLeft,
			Middle: cfg.Input.KeyMiddle,
			Right:  cfg.Input.KeyRight,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("open input device: %w", err)
		}
		jobs.add(func(ctx context.Context) error {
			src.Run(ctx)
			return nil
		})
		jobs.onAbort(func() { _ = src.Close() })
		return src, nil
	case config.BackendGPIO:
		src, err := input.OpenGPIO(input.GPIOPins{
			Left:   cfg.Input.PinLeft,
			Middle: cfg.Input.PinMiddle,
			Right:  cfg.Input.PinRight,
		})
		if err != nil {
			return nil, fmt.Errorf("open gpio buttons: %w", err)
		}
		return src, nil
	default:
		return nil, nil
	}
}

// workers holds background jobs until setup is complete. If setup fails
// first, abort runs the registered cleanups instead.
type workers struct {
	jobs    []func(context.Context) error
	cleanup []func()
	started bool
}

func (w *workers) add(job func(context.Context) error) {
	w.jobs = append(w.jobs, job)
}

func (w *workers) onAbort(fn func()) {
	w.cleanup = append(w.cleanup, fn)
}

// start runs every job in g with ctx.
func (w *workers) start(ctx context.Context, g *errgroup.Group) {
	w.started = true
	for _, job := range w.jobs {
		job := job
		g.Go(func() error { return job(ctx) })
	}
}

func (w *workers) abort() {
	if w.started {
		return
	}
	for _, fn := range w.cleanup {
		fn()
	}
}
