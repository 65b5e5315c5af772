package realtime

import (
	"context"
	"fmt"
	"log/slog"
)

// EventKind enumerates inbound push events.
type EventKind int

const (
	EventConnected EventKind = iota + 1
	EventDisconnected
	EventRegistered
	EventDeviceIndexUpdated
	EventShowPage
	EventPagesReady
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventDisconnected:
		return "disconnected"
	case EventRegistered:
		return "registered"
	case EventDeviceIndexUpdated:
		return "device_index_updated"
	case EventShowPage:
		return "show_page"
	case EventPagesReady:
		return "pages_ready"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one inbound push event. Only the payload field matching Kind is
// meaningful: Accepted for Registered, Index for DeviceIndexUpdated and
// ShowPage, Count for PagesReady.
type Event struct {
	Kind     EventKind
	Accepted bool
	Index    int
	Count    int
}

// Handler reacts to inbound events. Implementations run on the device loop.
type Handler interface {
	OnConnected(ctx context.Context) error
	OnDisconnected(ctx context.Context) error
	OnRegistered(ctx context.Context, accepted bool) error
	OnDeviceIndexUpdated(ctx context.Context, index int) error
	OnShowPage(ctx context.Context, index int) error
	OnPagesReady(ctx context.Context, count int) error
}

// Dispatcher routes events to a Handler.
type Dispatcher struct {
	handler Handler
	logger  *slog.Logger
}

// NewDispatcher returns a dispatcher bound to h.
func NewDispatcher(h Handler, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{handler: h, logger: logger}
}

// Dispatch hands ev to the handler method for its kind and returns the
// handler's error. Unknown kinds are protocol errors.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) error {
	d.logger.Debug("realtime: dispatch", "event", ev.Kind.String(),
		"accepted", ev.Accepted, "index", ev.Index, "count", ev.Count)

	switch ev.Kind {
	case EventConnected:
		return d.handler.OnConnected(ctx)
	case EventDisconnected:
		return d.handler.OnDisconnected(ctx)
	case EventRegistered:
		return d.handler.OnRegistered(ctx, ev.Accepted)
	case EventDeviceIndexUpdated:
		return d.handler.OnDeviceIndexUpdated(ctx, ev.Index)
	case EventShowPage:
		return d.handler.OnShowPage(ctx, ev.Index)
	case EventPagesReady:
		return d.handler.OnPagesReady(ctx, ev.Count)
	default:
		return protocolErr("dispatch", fmt.Errorf("unknown event kind %d", int(ev.Kind)))
	}
}

// IntentKind enumerates outbound messages.
type IntentKind int

const (
	IntentRegister IntentKind = iota + 1
	IntentEnqueue
	IntentDequeue
	IntentUpdatePageIndex
)

func (k IntentKind) String() string {
	switch k {
	case IntentRegister:
		return "register"
	case IntentEnqueue:
		return "enqueue"
	case IntentDequeue:
		return "dequeue"
	case IntentUpdatePageIndex:
		return "updatePageIndex"
	default:
		return fmt.Sprintf("intent(%d)", int(k))
	}
}

// Resolution is a display size in pixels.
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ScreenInfo describes the display to the server.
type ScreenInfo struct {
	ColorDepth int        `json:"colorDepth"`
	DPI        int        `json:"dpi"`
	Resolution Resolution `json:"resolution"`
}

// Registration identifies the device when the channel comes up.
type Registration struct {
	DeviceID string
	Screen   ScreenInfo
}

// Intent is one outbound message. Register is set for IntentRegister and
// PageIndex for IntentUpdatePageIndex.
type Intent struct {
	Kind      IntentKind
	Register  *Registration
	PageIndex int
}

// RegisterIntent builds a register message.
func RegisterIntent(r Registration) Intent {
	return Intent{Kind: IntentRegister, Register: &r}
}

// PageIndexIntent builds an updatePageIndex message.
func PageIndexIntent(index int) Intent {
	return Intent{Kind: IntentUpdatePageIndex, PageIndex: index}
}

// Sender delivers intents without waiting for a reply.
type Sender interface {
	Send(ctx context.Context, in Intent) error
}

// Source yields at most one pending event per call without blocking.
type Source interface {
	Poll() (Event, bool)
}
