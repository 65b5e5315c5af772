package realtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/inkreader/internal/pager"
)

type recordingHandler struct {
	calls []string
	args  []any
	err   error
}

func (h *recordingHandler) record(name string, arg any) error {
	h.calls = append(h.calls, name)
	h.args = append(h.args, arg)
	return h.err
}

func (h *recordingHandler) OnConnected(context.Context) error    { return h.record("connected", nil) }
func (h *recordingHandler) OnDisconnected(context.Context) error { return h.record("disconnected", nil) }
func (h *recordingHandler) OnRegistered(_ context.Context, ok bool) error {
	return h.record("registered", ok)
}
func (h *recordingHandler) OnDeviceIndexUpdated(_ context.Context, i int) error {
	return h.record("device_index", i)
}
func (h *recordingHandler) OnShowPage(_ context.Context, i int) error {
	return h.record("show_page", i)
}
func (h *recordingHandler) OnPagesReady(_ context.Context, n int) error {
	return h.record("pages_ready", n)
}

func TestDispatchRoutesEveryKind(t *testing.T) {
	t.Parallel()
	h := &recordingHandler{}
	d := NewDispatcher(h, nil)
	ctx := context.Background()

	events := []Event{
		{Kind: EventConnected},
		{Kind: EventRegistered, Accepted: true},
		{Kind: EventDeviceIndexUpdated, Index: 3},
		{Kind: EventPagesReady, Count: 9},
		{Kind: EventShowPage, Index: 4},
		{Kind: EventDisconnected},
	}
	for _, ev := range events {
		require.NoError(t, d.Dispatch(ctx, ev))
	}

	assert.Equal(t, []string{"connected", "registered", "device_index", "pages_ready", "show_page", "disconnected"}, h.calls)
	assert.Equal(t, []any{nil, true, 3, 9, 4, nil}, h.args)
}

func TestDispatchReturnsHandlerError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	d := NewDispatcher(&recordingHandler{err: boom}, nil)

	err := d.Dispatch(context.Background(), Event{Kind: EventShowPage, Index: 1})
	assert.ErrorIs(t, err, boom)
}

func TestDispatchUnknownKind(t *testing.T) {
	t.Parallel()
	h := &recordingHandler{}
	d := NewDispatcher(h, nil)

	err := d.Dispatch(context.Background(), Event{Kind: EventKind(99)})
	require.Error(t, err)
	assert.True(t, pager.IsProtocol(err))
	assert.Empty(t, h.calls)
}
