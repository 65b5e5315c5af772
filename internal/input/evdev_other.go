//go:build !linux

package input

import (
	"context"
	"errors"
	"log/slog"
)

// EvdevSource is unavailable off Linux.
type EvdevSource struct{}

// OpenEvdev always fails off Linux.
func OpenEvdev(string, KeyNames, *slog.Logger) (*EvdevSource, error) {
	return nil, errors.New("evdev input requires linux")
}

func (s *EvdevSource) Run(context.Context) {}

func (s *EvdevSource) Close() error { return nil }

func (s *EvdevSource) Sample() Button { return None }
