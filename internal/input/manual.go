package input

import "sync"

// ManualSource is driven programmatically by the simulator UI, the HTTP
// button endpoint and tests.
type ManualSource struct {
	mu   sync.Mutex
	held Button
	tap  Button
}

var _ Source = (*ManualSource)(nil)

// NewManualSource returns a source with nothing held.
func NewManualSource() *ManualSource {
	return &ManualSource{}
}

// Hold keeps b held until Release.
func (m *ManualSource) Hold(b Button) {
	m.mu.Lock()
	m.held = b
	m.mu.Unlock()
}

// Release lets go of the held button.
func (m *ManualSource) Release() {
	m.mu.Lock()
	m.held = None
	m.mu.Unlock()
}

// Tap makes b appear held for exactly one sample.
func (m *ManualSource) Tap(b Button) {
	m.mu.Lock()
	m.tap = b
	m.mu.Unlock()
}

// Sample returns a pending tap first, then the held button.
func (m *ManualSource) Sample() Button {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tap != None {
		b := m.tap
		m.tap = None
		return b
	}
	return m.held
}

type anySource []Source

// Any combines sources into one that reports the first held button. Every
// source is sampled on each call so pending taps are never left behind.
func Any(sources ...Source) Source {
	var out anySource
	for _, s := range sources {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (a anySource) Sample() Button {
	held := None
	for _, s := range a {
		if b := s.Sample(); held == None {
			held = b
		}
	}
	return held
}
