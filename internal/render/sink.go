package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/five82/inkreader/internal/pager"
	"github.com/five82/inkreader/internal/session"
)

// Request asks a sink to show a page. Artifact is a loan valid for the call.
type Request struct {
	PageIndex      int
	ShowNavigation bool
	ShowConnection bool
	Artifact       pager.Artifact
	Status         session.Session
}

// IndicatorKind enumerates overlays that do not change the page.
type IndicatorKind int

const (
	IndicatorBusy IndicatorKind = iota + 1
	IndicatorError
	IndicatorStatus
)

func (k IndicatorKind) String() string {
	switch k {
	case IndicatorBusy:
		return "busy"
	case IndicatorError:
		return "error"
	case IndicatorStatus:
		return "status"
	default:
		return fmt.Sprintf("indicator(%d)", int(k))
	}
}

// Slot is a position in the navigation column.
type Slot int

const (
	SlotMiddle Slot = iota
	SlotPrev
	SlotNext
)

// SlotFor returns the column slot of the button that moves in dir.
func SlotFor(dir pager.Direction) Slot {
	if dir == pager.Prev {
		return SlotPrev
	}
	return SlotNext
}

// Indicator is an overlay request. Slot applies to IndicatorBusy, Err to
// IndicatorError and Status to every kind.
type Indicator struct {
	Kind   IndicatorKind
	Slot   Slot
	Err    error
	Status session.Session
}

// Sink shows pages and indicators.
type Sink interface {
	Render(ctx context.Context, req Request) error
	Indicate(ctx context.Context, ind Indicator) error
}

// StatusLine is the status bar text for s.
func StatusLine(s session.Session, showConnection bool) string {
	page := "[-/-]"
	if s.HasCurrent() {
		page = fmt.Sprintf("[%d/%d]", s.CurrentPage+1, s.PageCount)
	}
	line := " Page: " + page
	if !showConnection {
		return line
	}
	wifi := "X"
	if s.Connectivity.NetworkLinkUp {
		wifi = "O"
	}
	server := "..."
	if s.Connectivity.ChannelLinkUp {
		server = "X"
		if s.Connectivity.ChannelRegistered {
			server = "O"
		}
	}
	return line + " | Wifi: [" + wifi + "] | Server: [" + server + "]"
}

type multiSink []Sink

// Multi returns a sink that forwards to every non-nil sink in order and joins
// their errors.
func Multi(sinks ...Sink) Sink {
	out := make(multiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m multiSink) Render(ctx context.Context, req Request) error {
	var errs []error
	for _, s := range m {
		if err := s.Render(ctx, req); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m multiSink) Indicate(ctx context.Context, ind Indicator) error {
	var errs []error
	for _, s := range m {
		if err := s.Indicate(ctx, ind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink records render traffic in the log.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink writing to logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (l *LogSink) Render(_ context.Context, req Request) error {
	l.logger.Info("render: page",
		"page", req.PageIndex,
		"bytes", req.Artifact.Len(),
		"navigation", req.ShowNavigation,
		"status", StatusLine(req.Status, req.ShowConnection))
	return nil
}

func (l *LogSink) Indicate(_ context.Context, ind Indicator) error {
	attrs := []any{"kind", ind.Kind.String(), "status", StatusLine(ind.Status, true)}
	if ind.Err != nil {
		attrs = append(attrs, "error", ind.Err)
	}
	l.logger.Info("render: indicator", attrs...)
	return nil
}
