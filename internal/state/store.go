package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/inkreader/internal/session"
)

// Snapshot is the latest session view published for readers outside the
// device loop.
type Snapshot struct {
	Session             session.Session
	HasSession          bool
	CachedPages         int
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive failed operations
}

// IsOffline returns true when the push channel is down or when the last
// operations kept failing.
func (s Snapshot) IsOffline() bool {
	if s.HasSession && !s.Session.Connectivity.ChannelLinkUp {
		return true
	}
	return s.ConsecutiveFailures >= 2
}

// Store coordinates the single writer (the device loop) with concurrent readers.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update publishes sess. When err is non-nil the previous session is kept but
// the error is recorded for visibility.
func (s *Store) Update(sess *session.Session, cachedPages int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	if sess != nil {
		s.snapshot.Session = *sess
		s.snapshot.HasSession = true
	} else {
		s.snapshot.HasSession = false
	}
	s.snapshot.CachedPages = cachedPages
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
