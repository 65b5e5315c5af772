//go:build linux

package input

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	evdev "github.com/holoplot/go-evdev"
)

// keyCodes lists the key names accepted in configuration.
var keyCodes = map[string]evdev.EvCode{
	"KEY_LEFT":       evdev.KEY_LEFT,
	"KEY_RIGHT":      evdev.KEY_RIGHT,
	"KEY_UP":         evdev.KEY_UP,
	"KEY_DOWN":       evdev.KEY_DOWN,
	"KEY_ENTER":      evdev.KEY_ENTER,
	"KEY_SPACE":      evdev.KEY_SPACE,
	"KEY_PAGEUP":     evdev.KEY_PAGEUP,
	"KEY_PAGEDOWN":   evdev.KEY_PAGEDOWN,
	"KEY_POWER":      evdev.KEY_POWER,
	"KEY_VOLUMEUP":   evdev.KEY_VOLUMEUP,
	"KEY_VOLUMEDOWN": evdev.KEY_VOLUMEDOWN,
}

func resolveKeys(keys KeyNames) (map[evdev.EvCode]Button, error) {
	out := make(map[evdev.EvCode]Button, 3)
	for b, name := range map[Button]string{Left: keys.Left, Middle: keys.Middle, Right: keys.Right} {
		code, ok := keyCodes[strings.ToUpper(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unsupported key %q for %s button", name, b)
		}
		if prev, dup := out[code]; dup {
			return nil, fmt.Errorf("key %q mapped to both %s and %s", name, prev, b)
		}
		out[code] = b
	}
	return out, nil
}

// keyState tracks the held button from key events. The most recent press
// wins; releasing any other key leaves it held.
type keyState struct {
	mu   sync.Mutex
	keys map[evdev.EvCode]Button
	held Button
}

func (k *keyState) apply(ev evdev.InputEvent) {
	if ev.Type != evdev.EV_KEY {
		return
	}
	b, ok := k.keys[ev.Code]
	if !ok {
		return
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	switch ev.Value {
	case 1:
		k.held = b
	case 0:
		if k.held == b {
			k.held = None
		}
	}
}

func (k *keyState) sample() Button {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.held
}

// EvdevSource reads buttons from a Linux input device.
type EvdevSource struct {
	dev    *evdev.InputDevice
	path   string
	state  *keyState
	logger *slog.Logger
}

var _ Source = (*EvdevSource)(nil)

// OpenEvdev finds the input device called name, grabs it and maps keys to
// buttons. Call Run to start reading.
func OpenEvdev(name string, keys KeyNames, logger *slog.Logger) (*EvdevSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	codes, err := resolveKeys(keys)
	if err != nil {
		return nil, err
	}

	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return nil, fmt.Errorf("list input devices: %w", err)
	}
	var devPath string
	for _, p := range paths {
		if p.Name == name {
			devPath = p.Path
			break
		}
	}
	if devPath == "" {
		return nil, fmt.Errorf("input device %q not found", name)
	}

	dev, err := evdev.Open(devPath)
	if err != nil {
		return nil, fmt.Errorf("open input device %s: %w", devPath, err)
	}
	if err := dev.Grab(); err != nil {
		logger.Warn("input: grab failed, sharing device", "path", devPath, "error", err)
	}
	logger.Info("input: using device", "path", devPath, "name", name)

	return &EvdevSource{
		dev:    dev,
		path:   devPath,
		state:  &keyState{keys: codes},
		logger: logger,
	}, nil
}

// Run reads events until ctx is cancelled. It closes the device on return.
func (s *EvdevSource) Run(ctx context.Context) {
	stop := context.AfterFunc(ctx, func() { _ = s.dev.Close() })
	defer stop()
	defer func() { _ = s.Close() }()

	for {
		ev, err := s.dev.ReadOne()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("input: read failed", "path", s.path, "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		s.state.apply(*ev)
	}
}

// Close releases the device. Run calls it on return.
func (s *EvdevSource) Close() error {
	_ = s.dev.Ungrab()
	return s.dev.Close()
}

// Sample returns the currently held button.
func (s *EvdevSource) Sample() Button {
	return s.state.sample()
}
