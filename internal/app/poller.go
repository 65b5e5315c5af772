package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/five82/inkreader/internal/input"
	"github.com/five82/inkreader/internal/pager"
	"github.com/five82/inkreader/internal/realtime"
)

const defaultTick = 20 * time.Millisecond

// controller is the part of nav.Controller the loop drives.
type controller interface {
	HandlePress(ctx context.Context, b input.Button) error
	SetNetworkLink(ctx context.Context, up bool)
	Tick(ctx context.Context, now time.Time)
}

type dispatcher interface {
	Dispatch(ctx context.Context, ev realtime.Event) error
}

// linkSource reports network reachability changes; ok is false when nothing
// new is known.
type linkSource interface {
	Poll() (up bool, ok bool)
}

// Loop is the device loop. It is the only goroutine that touches the session
// and the page cache.
type Loop struct {
	buttons    input.Source
	debouncer  *input.Debouncer
	events     realtime.Source
	dispatcher dispatcher
	links      linkSource
	ctrl       controller
	tick       time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// LoopOptions wire a Loop. Events and Links may be nil.
type LoopOptions struct {
	Buttons    input.Source
	Debouncer  *input.Debouncer
	Events     realtime.Source
	Dispatcher dispatcher
	Links      linkSource
	Controller controller
	Tick       time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// NewLoop returns a loop ready to Run.
func NewLoop(opts LoopOptions) (*Loop, error) {
	switch {
	case opts.Buttons == nil:
		return nil, errors.New("device loop requires a button source")
	case opts.Controller == nil:
		return nil, errors.New("device loop requires a controller")
	case opts.Events != nil && opts.Dispatcher == nil:
		return nil, errors.New("device loop requires a dispatcher for its event source")
	}
	l := &Loop{
		buttons:    opts.Buttons,
		debouncer:  opts.Debouncer,
		events:     opts.Events,
		dispatcher: opts.Dispatcher,
		links:      opts.Links,
		ctrl:       opts.Controller,
		tick:       opts.Tick,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if l.debouncer == nil {
		l.debouncer = input.NewDebouncer(input.DefaultCooldown)
	}
	if l.tick <= 0 {
		l.tick = defaultTick
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.now == nil {
		l.now = time.Now
	}
	return l, nil
}

// Run steps the loop on a fixed cadence until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.tick)
	defer ticker.Stop()

	l.logger.Info("app: device loop started", "tick", l.tick)
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("app: device loop stopped")
			return nil
		case <-ticker.C:
			l.Step(ctx)
		}
	}
}

// Step runs one tick: at most one debounced press, at most one channel event,
// the latest link state, then the idle check.
func (l *Loop) Step(ctx context.Context) {
	now := l.now()

	if b, ok := l.debouncer.Step(now, l.buttons.Sample()); ok {
		if err := l.ctrl.HandlePress(ctx, b); err != nil && !errors.Is(err, pager.ErrOutOfRange) {
			l.logger.Warn("app: button press failed", "button", b.String(), "error", err)
		}
	}

	if l.events != nil {
		if ev, ok := l.events.Poll(); ok {
			if err := l.dispatcher.Dispatch(ctx, ev); err != nil {
				l.logger.Warn("app: channel event failed", "event", ev.Kind.String(), "kind", pager.KindOf(err).String(), "error", err)
			}
		}
	}

	if l.links != nil {
		if up, ok := l.links.Poll(); ok {
			l.ctrl.SetNetworkLink(ctx, up)
		}
	}

	l.ctrl.Tick(ctx, now)
}
