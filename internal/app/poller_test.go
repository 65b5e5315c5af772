package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/five82/inkreader/internal/config"
	"github.com/five82/inkreader/internal/input"
	"github.com/five82/inkreader/internal/pager"
	"github.com/five82/inkreader/internal/realtime"
)

type fakeController struct {
	presses []input.Button
	links   []bool
	ticks   int
	err     error
}

func (f *fakeController) HandlePress(_ context.Context, b input.Button) error {
	f.presses = append(f.presses, b)
	return f.err
}

func (f *fakeController) SetNetworkLink(_ context.Context, up bool) {
	f.links = append(f.links, up)
}

func (f *fakeController) Tick(context.Context, time.Time) {
	f.ticks++
}

type queueSource struct {
	events []realtime.Event
}

func (q *queueSource) Poll() (realtime.Event, bool) {
	if len(q.events) == 0 {
		return realtime.Event{}, false
	}
	ev := q.events[0]
	q.events = q.events[1:]
	return ev, true
}

type recordingDispatcher struct {
	seen []realtime.Event
	err  error
}

func (r *recordingDispatcher) Dispatch(_ context.Context, ev realtime.Event) error {
	r.seen = append(r.seen, ev)
	return r.err
}

type fakeLinks struct {
	values []bool
}

func (f *fakeLinks) Poll() (bool, bool) {
	if len(f.values) == 0 {
		return false, false
	}
	v := f.values[0]
	f.values = f.values[1:]
	return v, true
}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLoop(t *testing.T, buttons input.Source, events realtime.Source, d dispatcher, links linkSource, ctrl controller, c *clock) *Loop {
	t.Helper()
	loop, err := NewLoop(LoopOptions{
		Buttons:    buttons,
		Debouncer:  input.NewDebouncer(500 * time.Millisecond),
		Events:     events,
		Dispatcher: d,
		Links:      links,
		Controller: ctrl,
		Logger:     testLogger(),
		Now:        c.Now,
	})
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	return loop
}

func TestLoopStepDebouncesPresses(t *testing.T) {
	ctx := context.Background()
	buttons := input.NewManualSource()
	ctrl := &fakeController{}
	c := &clock{now: time.Unix(1000, 0)}
	loop := newTestLoop(t, buttons, nil, nil, nil, ctrl, c)

	buttons.Hold(input.Right)
	for i := 0; i < 10; i++ {
		loop.Step(ctx)
		c.Advance(20 * time.Millisecond)
	}
	buttons.Release()
	loop.Step(ctx)

	c.Advance(100 * time.Millisecond)
	buttons.Tap(input.Right)
	loop.Step(ctx)

	c.Advance(time.Second)
	loop.Step(ctx)
	buttons.Tap(input.Left)
	loop.Step(ctx)

	if len(ctrl.presses) != 2 || ctrl.presses[0] != input.Right || ctrl.presses[1] != input.Left {
		t.Fatalf("presses = %v, want [right left]", ctrl.presses)
	}
	if ctrl.ticks != 14 {
		t.Fatalf("ticks = %d, want one per step", ctrl.ticks)
	}
}

func TestLoopStepPollsOneEventPerTick(t *testing.T) {
	ctx := context.Background()
	events := &queueSource{events: []realtime.Event{
		{Kind: realtime.EventConnected},
		{Kind: realtime.EventPagesReady, Count: 4},
	}}
	d := &recordingDispatcher{}
	ctrl := &fakeController{}
	loop := newTestLoop(t, input.NewManualSource(), events, d, nil, ctrl, &clock{now: time.Unix(0, 0)})

	loop.Step(ctx)
	if len(d.seen) != 1 || d.seen[0].Kind != realtime.EventConnected {
		t.Fatalf("first tick dispatched %v", d.seen)
	}
	loop.Step(ctx)
	loop.Step(ctx)
	if len(d.seen) != 2 || d.seen[1].Count != 4 {
		t.Fatalf("dispatched %v, want two events in order", d.seen)
	}
}

func TestLoopStepSurvivesFailures(t *testing.T) {
	ctx := context.Background()
	buttons := input.NewManualSource()
	events := &queueSource{events: []realtime.Event{{Kind: realtime.EventShowPage, Index: 3}}}
	d := &recordingDispatcher{err: pager.ProtocolError("decode", errors.New("bad frame"))}
	ctrl := &fakeController{err: pager.NetworkError("fetch page", errors.New("refused"))}
	loop := newTestLoop(t, buttons, events, d, nil, ctrl, &clock{now: time.Unix(0, 0)})

	buttons.Tap(input.Middle)
	loop.Step(ctx)
	loop.Step(ctx)

	if len(ctrl.presses) != 1 || len(d.seen) != 1 || ctrl.ticks != 2 {
		t.Fatalf("presses=%v seen=%v ticks=%d", ctrl.presses, d.seen, ctrl.ticks)
	}
}

func TestLoopStepForwardsLinkChanges(t *testing.T) {
	ctx := context.Background()
	ctrl := &fakeController{}
	links := &fakeLinks{values: []bool{true, false}}
	loop := newTestLoop(t, input.NewManualSource(), nil, nil, links, ctrl, &clock{now: time.Unix(0, 0)})

	loop.Step(ctx)
	loop.Step(ctx)
	loop.Step(ctx)

	if len(ctrl.links) != 2 || !ctrl.links[0] || ctrl.links[1] {
		t.Fatalf("links = %v, want [true false]", ctrl.links)
	}
}

func TestNewLoopValidates(t *testing.T) {
	if _, err := NewLoop(LoopOptions{Controller: &fakeController{}}); err == nil {
		t.Fatalf("expected error without buttons")
	}
	if _, err := NewLoop(LoopOptions{Buttons: input.NewManualSource()}); err == nil {
		t.Fatalf("expected error without controller")
	}
	if _, err := NewLoop(LoopOptions{
		Buttons:    input.NewManualSource(),
		Controller: &fakeController{},
		Events:     &queueSource{},
	}); err == nil {
		t.Fatalf("expected error for events without dispatcher")
	}

	loop, err := NewLoop(LoopOptions{Buttons: input.NewManualSource(), Controller: &fakeController{}})
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}
	if loop.tick != defaultTick {
		t.Fatalf("tick = %v, want default %v", loop.tick, defaultTick)
	}
}

func TestLoopRunStopsOnCancel(t *testing.T) {
	ctrl := &fakeController{}
	loop, err := NewLoop(LoopOptions{
		Buttons:    input.NewManualSource(),
		Controller: ctrl,
		Tick:       time.Millisecond,
		Logger:     testLogger(),
	})
	if err != nil {
		t.Fatalf("NewLoop: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestLoadConfigAppliesOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nhost = \"10.1.1.1\"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	v := viper.New()
	v.Set(config.KeyServerPort, 9100)

	cfg, err := LoadConfig(path, v)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.PullURL() != "http://10.1.1.1:9100" {
		t.Fatalf("PullURL = %q", cfg.PullURL())
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[input]\nbackend = \"serial\"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := Run(context.Background(), Options{ConfigPath: path, Logger: testLogger()}); err == nil {
		t.Fatalf("Run accepted an invalid config")
	}
}
