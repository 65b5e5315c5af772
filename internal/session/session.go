// Package session holds the reader's session state and its persisted subset.
//
// A Session is a plain value owned by the device loop and handed to the other
// components by pointer. Only the current page index and the page count are
// ever written to disk; connectivity, queue position, the download flag and
// the interaction timestamp are volatile and start from defaults on boot.
package session

import (
	"time"

	"github.com/five82/inkreader/internal/pager"
)

// Connectivity tracks the link flags shown in the status bar.
type Connectivity struct {
	ChannelLinkUp     bool `json:"channel_link_up"`
	ChannelRegistered bool `json:"channel_registered"`
	NetworkLinkUp     bool `json:"network_link_up"`
}

// Session is the single source of truth for what the device shows.
type Session struct {
	CurrentPage     int          `json:"current_page"`
	PageCount       int          `json:"page_count"`
	Connectivity    Connectivity `json:"connectivity"`
	QueueIndex      int          `json:"queue_index"`
	Downloading     bool         `json:"downloading"`
	LastInteraction time.Time    `json:"last_interaction"`
}

// Fresh returns the state of a device that has never received a page set.
func Fresh() Session {
	return Session{
		CurrentPage: pager.Unset,
		PageCount:   pager.Unset,
		QueueIndex:  pager.Unset,
	}
}

// HasPages reports whether a page set is known.
func (s Session) HasPages() bool {
	return s.PageCount > 0
}

// HasCurrent reports whether the current page addresses the known page set.
func (s Session) HasCurrent() bool {
	return pager.InRange(s.CurrentPage, s.PageCount)
}

// Target returns the page one step from the current page in dir.
func (s Session) Target(dir pager.Direction) int {
	return s.CurrentPage + dir.Step()
}

// Queued reports whether the device holds a position in the remote queue.
func (s Session) Queued() bool {
	return s.QueueIndex != pager.Unset
}

// Clamp restores the page invariant: with a known page set the current page is
// forced into [0, PageCount); without one both fields are unset.
func (s *Session) Clamp() {
	if s.PageCount <= 0 {
		s.PageCount = pager.Unset
		s.CurrentPage = pager.Unset
		return
	}
	switch {
	case s.CurrentPage < 0:
		s.CurrentPage = 0
	case s.CurrentPage >= s.PageCount:
		s.CurrentPage = s.PageCount - 1
	}
}

// ResetVolatile drops everything that must not survive a reboot.
func (s *Session) ResetVolatile() {
	s.Connectivity = Connectivity{}
	s.QueueIndex = pager.Unset
	s.Downloading = false
	s.LastInteraction = time.Time{}
}
