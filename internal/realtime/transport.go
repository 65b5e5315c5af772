package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/five82/inkreader/internal/pager"
)

const (
	defaultBaseBackoff = time.Second
	defaultQueueSize   = 64
	writeTimeout       = 5 * time.Second
)

// engine.io frame types.
const (
	frameOpen    = '0'
	frameClose   = '1'
	framePing    = '2'
	framePong    = '3'
	frameMessage = '4'
)

// socket.io packet types inside a message frame.
const (
	packetConnect      = '0'
	packetDisconnect   = '1'
	packetEvent        = '2'
	packetConnectError = '4'
)

// ErrNotConnected reports a send while the namespace handshake is not done.
var ErrNotConnected = errors.New("push channel not connected")

// TransportOptions configure a Transport.
type TransportOptions struct {
	URL         string
	BaseBackoff time.Duration
	QueueSize   int
	Dialer      *websocket.Dialer
	Logger      *slog.Logger
}

// Transport is the websocket push channel. Start launches the reader; Poll and
// Send may be called from the device loop concurrently with it.
type Transport struct {
	url    string
	base   time.Duration
	dialer *websocket.Dialer
	logger *slog.Logger
	events chan Event

	mu    sync.Mutex
	conn  *websocket.Conn
	ready bool
}

var (
	_ Sender = (*Transport)(nil)
	_ Source = (*Transport)(nil)
)

// NewTransport validates opts and returns an idle transport.
func NewTransport(opts TransportOptions) (*Transport, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, fmt.Errorf("push channel url required")
	}
	if !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
		return nil, fmt.Errorf("push channel url %q: scheme must be ws or wss", url)
	}
	t := &Transport{
		url:    url,
		base:   opts.BaseBackoff,
		dialer: opts.Dialer,
		logger: opts.Logger,
	}
	if t.base <= 0 {
		t.base = defaultBaseBackoff
	}
	if t.dialer == nil {
		t.dialer = websocket.DefaultDialer
	}
	if t.logger == nil {
		t.logger = slog.Default()
	}
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	t.events = make(chan Event, size)
	return t, nil
}

// Start launches the connect/read loop in the background. It returns
// immediately; the loop exits when ctx is cancelled.
func (t *Transport) Start(ctx context.Context) {
	go t.run(ctx)
}

// Poll returns the oldest queued event without blocking.
func (t *Transport) Poll() (Event, bool) {
	select {
	case ev := <-t.events:
		return ev, true
	default:
		return Event{}, false
	}
}

// Connected reports whether the namespace handshake has completed.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn != nil && t.ready
}

// Send writes in as an event packet. It fails fast when the link is down.
func (t *Transport) Send(ctx context.Context, in Intent) error {
	op := "send " + in.Kind.String()
	body, err := EncodeIntent(in)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil || !t.ready {
		return pager.NetworkError(op, ErrNotConnected)
	}
	if err := t.writeLocked(ctx, append([]byte{frameMessage, packetEvent}, body...)); err != nil {
		return pager.NetworkError(op, err)
	}
	return nil
}

func (t *Transport) writeLocked(ctx context.Context, frame []byte) error {
	deadline := time.Now().Add(writeTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = t.conn.SetWriteDeadline(deadline)
	return t.conn.WriteMessage(websocket.TextMessage, frame)
}

func (t *Transport) run(ctx context.Context) {
	failures := 0
	for {
		connected, err := t.session(ctx)
		if ctx.Err() != nil {
			return
		}
		if connected {
			failures = 0
		} else {
			failures++
		}
		wait := calculateBackoff(failures, t.base)
		t.logger.Warn("realtime: channel down", "error", err, "retry_in", wait.String(), "failures", failures)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// session runs one connection until it fails. connected reports whether the
// namespace handshake completed at least once.
func (t *Transport) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	t.logger.Info("realtime: socket open", "url", t.url)

	t.mu.Lock()
	t.conn = conn
	t.ready = false
	t.mu.Unlock()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	defer func() {
		t.mu.Lock()
		wasReady := t.ready
		t.conn = nil
		t.ready = false
		t.mu.Unlock()
		_ = conn.Close()
		if wasReady {
			t.push(Event{Kind: EventDisconnected})
		}
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return connected, fmt.Errorf("read: %w", err)
		}
		if msgType != websocket.TextMessage || len(data) == 0 {
			continue
		}
		if err := t.handleFrame(ctx, data, &connected); err != nil {
			return connected, err
		}
	}
}

func (t *Transport) handleFrame(ctx context.Context, frame []byte, connected *bool) error {
	switch frame[0] {
	case frameOpen:
		return t.write(ctx, []byte{frameMessage, packetConnect})
	case frameClose:
		return errors.New("server closed the session")
	case framePing:
		return t.write(ctx, []byte{framePong})
	case framePong:
		return nil
	case frameMessage:
		return t.handlePacket(frame[1:], connected)
	default:
		t.logger.Debug("realtime: ignoring frame", "type", string(frame[0]))
		return nil
	}
}

func (t *Transport) handlePacket(packet []byte, connected *bool) error {
	if len(packet) == 0 {
		return nil
	}
	switch packet[0] {
	case packetConnect:
		t.mu.Lock()
		t.ready = true
		t.mu.Unlock()
		*connected = true
		t.logger.Info("realtime: channel connected")
		t.push(Event{Kind: EventConnected})
	case packetDisconnect:
		return errors.New("server disconnected the namespace")
	case packetEvent:
		ev, err := DecodeEvent(packet[1:])
		if err != nil {
			t.logger.Warn("realtime: dropping event", "error", err)
			return nil
		}
		t.push(ev)
	case packetConnectError:
		return fmt.Errorf("namespace connect refused: %s", string(packet[1:]))
	default:
		t.logger.Debug("realtime: ignoring packet", "type", string(packet[0]))
	}
	return nil
}

func (t *Transport) write(ctx context.Context, frame []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return ErrNotConnected
	}
	return t.writeLocked(ctx, frame)
}

func (t *Transport) push(ev Event) {
	select {
	case t.events <- ev:
	default:
		t.logger.Warn("realtime: event queue full, dropping event", "event", ev.Kind.String())
	}
}
