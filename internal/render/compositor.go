package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"log/slog"
	"strconv"
	"sync"

	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/five82/inkreader/internal/pager"
	"github.com/five82/inkreader/internal/session"
)

const (
	buttonSize   = 56
	guiPadding   = 4
	guiBorder    = 2
	statusHeight = 24
	indexScale   = 3
)

// ErrNoFrame is returned before anything has been shown.
var ErrNoFrame = errors.New("no frame rendered yet")

// Panel is the physical display.
type Panel interface {
	Show(ctx context.Context, frame image.Image) error
}

// CompositorOptions configure a Compositor.
type CompositorOptions struct {
	Width      int
	Height     int
	ColorDepth int
	Panel      Panel
	Logger     *slog.Logger
}

// Compositor draws frames in memory and pushes them to an optional Panel.
type Compositor struct {
	layout layout
	depth  int
	panel  Panel
	logger *slog.Logger
	icons  *iconSet

	mu    sync.RWMutex
	shown *image.RGBA
	frame image.Image
}

var _ Sink = (*Compositor)(nil)

// NewCompositor validates the panel geometry and prepares the icons.
func NewCompositor(opts CompositorOptions) (*Compositor, error) {
	if opts.Width <= buttonSize || opts.Height <= 4*buttonSize {
		return nil, fmt.Errorf("display %dx%d too small", opts.Width, opts.Height)
	}
	icons, err := newIconSet(buttonSize)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Compositor{
		layout: layout{width: opts.Width, height: opts.Height},
		depth:  opts.ColorDepth,
		panel:  opts.Panel,
		logger: logger,
		icons:  icons,
	}, nil
}

// Render decodes the page and shows it with the requested chrome.
func (c *Compositor) Render(ctx context.Context, req Request) error {
	page, err := decodePage(req.Artifact)
	if err != nil {
		return fmt.Errorf("render page %d: %w", req.PageIndex, err)
	}
	canvas := c.blank()
	drawPage(canvas, page)
	c.drawStatusLine(canvas, StatusLine(req.Status, req.ShowConnection))
	if req.ShowNavigation {
		c.drawGUI(canvas, req.Status)
	}
	return c.present(ctx, canvas)
}

// Indicate overlays ind on the last shown frame.
func (c *Compositor) Indicate(ctx context.Context, ind Indicator) error {
	c.mu.RLock()
	canvas := cloneRGBA(c.shown)
	c.mu.RUnlock()
	if canvas == nil {
		canvas = c.blank()
	}

	switch ind.Kind {
	case IndicatorBusy:
		c.drawGUIBackground(canvas)
		c.drawIcon(canvas, c.icons.hourglass, ind.Slot)
	case IndicatorError:
		msg := "unknown error"
		if ind.Err != nil {
			msg = ind.Err.Error()
		}
		c.drawStatusLine(canvas, " Error: "+msg)
	case IndicatorStatus:
		c.drawStatusLine(canvas, StatusLine(ind.Status, true))
	default:
		return fmt.Errorf("unknown indicator kind %d", int(ind.Kind))
	}
	return c.present(ctx, canvas)
}

// Frame returns the last shown frame. The image must not be modified.
func (c *Compositor) Frame() (image.Image, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frame, c.frame != nil
}

// FramePNG encodes the last shown frame.
func (c *Compositor) FramePNG() ([]byte, error) {
	frame, ok := c.Frame()
	if !ok {
		return nil, ErrNoFrame
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *Compositor) present(ctx context.Context, canvas *image.RGBA) error {
	out := quantize(canvas, c.depth)
	c.mu.Lock()
	c.shown = canvas
	c.frame = out
	c.mu.Unlock()

	if c.panel == nil {
		return nil
	}
	if err := c.panel.Show(ctx, out); err != nil {
		return fmt.Errorf("panel show: %w", err)
	}
	return nil
}

func (c *Compositor) blank() *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, c.layout.width, c.layout.height))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	return canvas
}

func decodePage(a pager.Artifact) (image.Image, error) {
	if a.IsZero() {
		return nil, errors.New("empty artifact")
	}
	img, _, err := image.Decode(bytes.NewReader(a.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// drawPage scales page to fit the canvas, keeping its aspect ratio.
func drawPage(canvas *image.RGBA, page image.Image) {
	dst := canvas.Bounds()
	src := page.Bounds()
	if src.Dx() == dst.Dx() && src.Dy() == dst.Dy() {
		draw.Draw(canvas, dst, page, src.Min, draw.Src)
		return
	}
	w, h := dst.Dx(), src.Dy()*dst.Dx()/src.Dx()
	if h > dst.Dy() {
		w, h = src.Dx()*dst.Dy()/src.Dy(), dst.Dy()
	}
	x := (dst.Dx() - w) / 2
	y := (dst.Dy() - h) / 2
	xdraw.ApproxBiLinear.Scale(canvas, image.Rect(x, y, x+w, y+h), page, src, xdraw.Src, nil)
}

func (c *Compositor) drawStatusLine(canvas *image.RGBA, text string) {
	top := c.layout.height - statusHeight
	bar := image.Rect(0, top, c.layout.width, c.layout.height)
	draw.Draw(canvas, bar, image.White, image.Point{}, draw.Src)
	face := basicfont.Face7x13
	baseline := top + (statusHeight-face.Height)/2 + face.Ascent
	drawText(canvas, text, 0, baseline, face)
}

func (c *Compositor) drawGUI(canvas *image.RGBA, s session.Session) {
	c.drawGUIBackground(canvas)
	c.drawIcon(canvas, c.icons.prev, SlotPrev)
	c.drawIcon(canvas, c.icons.next, SlotNext)
	switch {
	case s.Downloading:
		c.drawIcon(canvas, c.icons.hourglass, SlotMiddle)
	case !s.Queued():
		c.drawIcon(canvas, c.icons.enqueue, SlotMiddle)
	default:
		c.drawQueueIndex(canvas, s.QueueIndex)
	}
}

func (c *Compositor) drawGUIBackground(canvas *image.RGBA) {
	r := c.layout.guiRect()
	gc := draw2dimg.NewGraphicContext(canvas)
	gc.SetFillColor(color.White)
	gc.SetStrokeColor(color.Black)
	gc.SetLineWidth(guiBorder)
	draw2dkit.RoundedRectangle(gc,
		float64(r.Min.X)-guiBorder, float64(r.Min.Y),
		float64(r.Max.X), float64(r.Max.Y),
		guiPadding*2, guiPadding*2)
	gc.FillStroke()
}

func (c *Compositor) drawIcon(canvas *image.RGBA, icon *image.RGBA, slot Slot) {
	r := c.layout.slotRect(slot)
	draw.Draw(canvas, r, image.White, image.Point{}, draw.Src)
	draw.Draw(canvas, r, icon, image.Point{}, draw.Over)
}

func (c *Compositor) drawQueueIndex(canvas *image.RGBA, index int) {
	r := c.layout.slotRect(SlotMiddle)
	draw.Draw(canvas, r, image.White, image.Point{}, draw.Src)

	text := strconv.Itoa(index)
	face := basicfont.Face7x13
	small := image.NewRGBA(image.Rect(0, 0, face.Advance*len(text), face.Height))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	drawText(small, text, 0, face.Ascent, face)

	w := small.Bounds().Dx() * indexScale
	h := small.Bounds().Dy() * indexScale
	if w > r.Dx() {
		h = h * r.Dx() / w
		w = r.Dx()
	}
	x := r.Min.X + (r.Dx()-w)/2
	y := r.Min.Y + (r.Dy()-h)/2
	xdraw.NearestNeighbor.Scale(canvas, image.Rect(x, y, x+w, y+h), small, small.Bounds(), xdraw.Src, nil)
}

func drawText(dst *image.RGBA, text string, x, baseline int, face font.Face) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: face,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(text)
}

// quantize converts the canvas to the panel's color depth. The result never
// aliases canvas.
func quantize(canvas *image.RGBA, depth int) image.Image {
	b := canvas.Bounds()
	switch {
	case depth == 1:
		out := image.NewPaletted(b, color.Palette{color.White, color.Black})
		draw.FloydSteinberg.Draw(out, b, canvas, b.Min)
		return out
	case depth > 1 && depth <= 8:
		out := image.NewGray(b)
		draw.Draw(out, b, canvas, b.Min, draw.Src)
		return out
	default:
		return cloneRGBA(canvas)
	}
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	if src == nil {
		return nil
	}
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// layout places the navigation column the way the panel firmware always has:
// three button slots stacked around the vertical center of the left edge.
type layout struct {
	width  int
	height int
}

func (l layout) spacing() int {
	return l.height/10 - 8
}

func (l layout) slotY(s Slot, size int) int {
	mid := l.height / 2
	switch s {
	case SlotPrev:
		return mid - l.spacing() - size/2
	case SlotNext:
		return mid + l.spacing() - size/2
	default:
		return mid - size/2
	}
}

func (l layout) slotRect(s Slot) image.Rectangle {
	y := l.slotY(s, buttonSize)
	return image.Rect(0, y, buttonSize, y+buttonSize)
}

func (l layout) guiRect() image.Rectangle {
	w := buttonSize + guiPadding
	top := l.slotY(SlotPrev, w)
	h := l.slotY(SlotNext, w) - top + buttonSize + guiPadding
	return image.Rect(0, top, w, top+h)
}
