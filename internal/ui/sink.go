package ui

import (
	"context"
	"sync"
	"time"

	"github.com/five82/inkreader/internal/pager"
	"github.com/five82/inkreader/internal/render"
)

// Screen is what the simulated panel currently shows.
type Screen struct {
	Page      render.Request
	HasPage   bool
	Indicator render.Indicator
	Indicated bool
	Updated   time.Time
}

// Sink is a render.Sink that remembers the latest page and indicator for the
// simulator view. It is written by the device loop and read by the UI.
type Sink struct {
	mu     sync.RWMutex
	screen Screen
	now    func() time.Time
}

var _ render.Sink = (*Sink)(nil)

// NewSink returns an empty Sink.
func NewSink() *Sink {
	return &Sink{now: time.Now}
}

// Render records req as the page on screen and clears any indicator.
func (s *Sink) Render(_ context.Context, req render.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req.Artifact = pager.Artifact{}
	s.screen.Page = req
	s.screen.HasPage = true
	s.screen.Indicator = render.Indicator{}
	s.screen.Indicated = false
	s.screen.Updated = s.now()
	return nil
}

// Indicate records ind as an overlay on the current page.
func (s *Sink) Indicate(_ context.Context, ind render.Indicator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screen.Indicator = ind
	s.screen.Indicated = true
	s.screen.Updated = s.now()
	return nil
}

// Screen returns a copy of what is shown.
func (s *Sink) Screen() Screen {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.screen
}
