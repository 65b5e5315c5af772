package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/inkreader/internal/input"
	"github.com/five82/inkreader/internal/pager"
	"github.com/five82/inkreader/internal/session"
	"github.com/five82/inkreader/internal/state"
)

const testW, testH = 300, 600

func whitePage(t *testing.T, w, h int) pager.Artifact {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return pager.NewArtifact(buf.Bytes())
}

func darkPixels(img image.Image, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y < 128 {
				n++
			}
		}
	}
	return n
}

type recordingPanel struct {
	shown []image.Image
	err   error
}

func (p *recordingPanel) Show(_ context.Context, frame image.Image) error {
	p.shown = append(p.shown, frame)
	return p.err
}

func newTestCompositor(t *testing.T, panel Panel) *Compositor {
	t.Helper()
	c, err := NewCompositor(CompositorOptions{Width: testW, Height: testH, ColorDepth: 1, Panel: panel})
	require.NoError(t, err)
	return c
}

func pageSession() session.Session {
	s := session.Fresh()
	s.CurrentPage = 1
	s.PageCount = 4
	return s
}

func TestCompositorRenderWithAndWithoutChrome(t *testing.T) {
	t.Parallel()
	panel := &recordingPanel{}
	c := newTestCompositor(t, panel)
	ctx := context.Background()
	middle := c.layout.slotRect(SlotMiddle)

	require.NoError(t, c.Render(ctx, Request{PageIndex: 1, ShowNavigation: true, ShowConnection: true,
		Artifact: whitePage(t, 150, 300), Status: pageSession()}))
	frame, ok := c.Frame()
	require.True(t, ok)
	assert.IsType(t, &image.Paletted{}, frame)
	assert.Equal(t, image.Rect(0, 0, testW, testH), frame.Bounds())
	assert.Positive(t, darkPixels(frame, middle), "enqueue icon drawn")
	assert.Positive(t, darkPixels(frame, image.Rect(0, testH-statusHeight, testW, testH)), "status text drawn")

	require.NoError(t, c.Render(ctx, Request{PageIndex: 1, Artifact: whitePage(t, testW, testH), Status: pageSession()}))
	frame, _ = c.Frame()
	assert.Zero(t, darkPixels(frame, middle), "chrome hidden")
	assert.Len(t, panel.shown, 2)
}

func TestCompositorRenderRejectsBadArtifact(t *testing.T) {
	t.Parallel()
	c := newTestCompositor(t, nil)

	err := c.Render(context.Background(), Request{Artifact: pager.NewArtifact([]byte("not an image"))})
	assert.Error(t, err)
	err = c.Render(context.Background(), Request{})
	assert.Error(t, err)

	_, ok := c.Frame()
	assert.False(t, ok)
	_, err = c.FramePNG()
	assert.ErrorIs(t, err, ErrNoFrame)
}

func TestCompositorBusyIndicatorOverlaysSlot(t *testing.T) {
	t.Parallel()
	c := newTestCompositor(t, nil)
	ctx := context.Background()
	require.NoError(t, c.Render(ctx, Request{Artifact: whitePage(t, testW, testH), Status: pageSession()}))

	next := c.layout.slotRect(SlotNext)
	frame, _ := c.Frame()
	require.Zero(t, darkPixels(frame, next))

	require.NoError(t, c.Indicate(ctx, Indicator{Kind: IndicatorBusy, Slot: SlotFor(pager.Next)}))
	frame, _ = c.Frame()
	assert.Positive(t, darkPixels(frame, next))

	data, err := c.FramePNG()
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, frame.Bounds(), decoded.Bounds())
}

func TestCompositorIndicatorsWithoutPriorFrame(t *testing.T) {
	t.Parallel()
	c := newTestCompositor(t, nil)
	ctx := context.Background()

	require.NoError(t, c.Indicate(ctx, Indicator{Kind: IndicatorError, Err: errors.New("offline")}))
	require.NoError(t, c.Indicate(ctx, Indicator{Kind: IndicatorStatus, Status: session.Fresh()}))
	assert.Error(t, c.Indicate(ctx, Indicator{Kind: IndicatorKind(42)}))
}

func TestCompositorPanelError(t *testing.T) {
	t.Parallel()
	c := newTestCompositor(t, &recordingPanel{err: errors.New("spi busy")})
	err := c.Render(context.Background(), Request{Artifact: whitePage(t, 10, 10)})
	assert.ErrorContains(t, err, "spi busy")
}

func TestNewCompositorRejectsTinyDisplay(t *testing.T) {
	t.Parallel()
	_, err := NewCompositor(CompositorOptions{Width: 40, Height: 100})
	assert.Error(t, err)
}

func TestQuantizeDepths(t *testing.T) {
	t.Parallel()
	canvas := image.NewRGBA(image.Rect(0, 0, 4, 4))
	assert.IsType(t, &image.Paletted{}, quantize(canvas, 1))
	assert.IsType(t, &image.Gray{}, quantize(canvas, 4))
	out := quantize(canvas, 24)
	require.IsType(t, &image.RGBA{}, out)
	assert.NotSame(t, canvas, out)
}

func TestStatusLine(t *testing.T) {
	t.Parallel()
	s := pageSession()
	assert.Equal(t, " Page: [2/4]", StatusLine(s, false))
	assert.Equal(t, " Page: [2/4] | Wifi: [X] | Server: [...]", StatusLine(s, true))

	s.Connectivity = session.Connectivity{NetworkLinkUp: true, ChannelLinkUp: true}
	assert.Equal(t, " Page: [2/4] | Wifi: [O] | Server: [X]", StatusLine(s, true))
	s.Connectivity.ChannelRegistered = true
	assert.Equal(t, " Page: [2/4] | Wifi: [O] | Server: [O]", StatusLine(s, true))

	assert.Equal(t, " Page: [-/-]", StatusLine(session.Fresh(), false))
}

type failingSink struct{ err error }

func (f failingSink) Render(context.Context, Request) error     { return f.err }
func (f failingSink) Indicate(context.Context, Indicator) error { return f.err }

func TestMultiForwardsAndJoinsErrors(t *testing.T) {
	t.Parallel()
	panel := &recordingPanel{}
	c := newTestCompositor(t, panel)
	boom := errors.New("boom")
	m := Multi(NewLogSink(nil), nil, failingSink{err: boom}, c)

	err := m.Render(context.Background(), Request{Artifact: whitePage(t, 10, 10)})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, panel.shown, 1, "later sinks still run")

	err = m.Indicate(context.Background(), Indicator{Kind: IndicatorStatus})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, panel.shown, 2)
}

type tapRecorder struct{ taps []input.Button }

func (r *tapRecorder) Tap(b input.Button) { r.taps = append(r.taps, b) }

func TestServerRoutes(t *testing.T) {
	t.Parallel()
	store := &state.Store{}
	sess := pageSession()
	store.Update(&sess, 2, nil)
	c := newTestCompositor(t, nil)
	taps := &tapRecorder{}

	srv, err := NewServer(ServerOptions{Store: store, Frames: c, Buttons: taps})
	require.NoError(t, err)
	app := srv.App()

	resp, err := app.Test(httptest.NewRequest("GET", "/status", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), `"current_page":1`)
	assert.Contains(t, string(body), `"cached_pages":2`)

	resp, err = app.Test(httptest.NewRequest("GET", "/frame", nil))
	require.NoError(t, err)
	assert.Equal(t, 503, resp.StatusCode)

	require.NoError(t, c.Render(context.Background(), Request{Artifact: whitePage(t, 10, 10)}))
	resp, err = app.Test(httptest.NewRequest("GET", "/frame", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	resp, err = app.Test(httptest.NewRequest("POST", "/button/right", nil))
	require.NoError(t, err)
	assert.Equal(t, 202, resp.StatusCode)
	resp, err = app.Test(httptest.NewRequest("POST", "/button/up", nil))
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
	assert.Equal(t, []input.Button{input.Right}, taps.taps)
}

func TestServerRequiresStore(t *testing.T) {
	t.Parallel()
	_, err := NewServer(ServerOptions{})
	assert.Error(t, err)
}
