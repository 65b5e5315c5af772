package nav

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/five82/inkreader/internal/download"
	"github.com/five82/inkreader/internal/input"
	"github.com/five82/inkreader/internal/pager"
	"github.com/five82/inkreader/internal/realtime"
	"github.com/five82/inkreader/internal/render"
	"github.com/five82/inkreader/internal/session"
	"github.com/five82/inkreader/internal/state"
)

// DefaultAwakeTime is how long navigation chrome stays up without input.
const DefaultAwakeTime = 60 * time.Second

// Persister saves the persisted subset of the session.
type Persister interface {
	Save(s session.Session) error
}

// Cache is the page store the controller reads through.
type Cache interface {
	Get(index int) (pager.Artifact, bool, error)
	Store(index int, a pager.Artifact) error
	Prefetch(ctx context.Context, dir pager.Direction) error
	TakeIfMatches(target int, dir pager.Direction) (pager.Artifact, bool)
	Invalidate()
	ClearAll() error
	Len() int
}

// Options wire a Controller. Sender, Status and Notify are optional.
type Options struct {
	Session      *session.Session
	Persister    Persister
	Cache        Cache
	Fetcher      download.Fetcher
	Sender       realtime.Sender
	Sink         render.Sink
	Status       *state.Store
	Notify       func()
	Registration realtime.Registration
	AwakeTime    time.Duration
	Logger       *slog.Logger
	Now          func() time.Time
}

// Controller owns no state of its own beyond chrome visibility; the session
// and cache are shared with the device loop by pointer.
type Controller struct {
	sess      *session.Session
	persister Persister
	cache     Cache
	fetcher   download.Fetcher
	sender    realtime.Sender
	sink      render.Sink
	status    *state.Store
	notify    func()
	reg       realtime.Registration
	awake     time.Duration
	logger    *slog.Logger
	now       func() time.Time

	chromeShown bool
	chromeSince time.Time
}

var _ realtime.Handler = (*Controller)(nil)

// New validates opts and returns a controller.
func New(opts Options) (*Controller, error) {
	switch {
	case opts.Session == nil:
		return nil, errors.New("nav: session required")
	case opts.Persister == nil:
		return nil, errors.New("nav: persister required")
	case opts.Cache == nil:
		return nil, errors.New("nav: cache required")
	case opts.Fetcher == nil:
		return nil, errors.New("nav: fetcher required")
	case opts.Sink == nil:
		return nil, errors.New("nav: render sink required")
	}
	c := &Controller{
		sess:      opts.Session,
		persister: opts.Persister,
		cache:     opts.Cache,
		fetcher:   opts.Fetcher,
		sender:    opts.Sender,
		sink:      opts.Sink,
		status:    opts.Status,
		notify:    opts.Notify,
		reg:       opts.Registration,
		awake:     opts.AwakeTime,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if c.awake == 0 {
		c.awake = DefaultAwakeTime
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// Session returns a copy of the current session.
func (c *Controller) Session() session.Session {
	return *c.sess
}

// ChromeShown reports whether navigation chrome is on screen.
func (c *Controller) ChromeShown() bool {
	return c.chromeShown
}

// Navigate steps one page in dir.
func (c *Controller) Navigate(ctx context.Context, dir pager.Direction) error {
	target := c.sess.Target(dir)
	if !pager.InRange(target, c.sess.PageCount) {
		c.logger.Debug("nav: step out of range", "direction", dir.String(),
			"page", c.sess.CurrentPage, "page_count", c.sess.PageCount)
		return pager.ErrOutOfRange
	}

	a, ok := c.cache.TakeIfMatches(target, dir)
	if ok {
		c.logger.Debug("nav: read-ahead hit", "page", target, "direction", dir.String())
	} else {
		var err error
		a, err = c.load(ctx, target, render.SlotFor(dir))
		if err != nil {
			c.fail(ctx, fmt.Sprintf("navigate %s", dir), err)
			return err
		}
	}

	saveErr := c.commit(ctx, target, a)
	c.prefetch(ctx, dir)
	c.publish(saveErr)
	return nil
}

// NavigateTo jumps to target. The read-ahead slot is dropped and nothing is
// prefetched.
func (c *Controller) NavigateTo(ctx context.Context, target int) error {
	if !pager.InRange(target, c.sess.PageCount) {
		c.logger.Info("nav: jump target out of range", "target", target, "page_count", c.sess.PageCount)
		return pager.ErrOutOfRange
	}
	c.cache.Invalidate()

	a, err := c.load(ctx, target, render.SlotMiddle)
	if err != nil {
		c.fail(ctx, fmt.Sprintf("navigate to %d", target), err)
		return err
	}
	c.publish(c.commit(ctx, target, a))
	return nil
}

// ShowCurrent renders the current page with chrome. Without a valid current
// page it only refreshes the status line.
func (c *Controller) ShowCurrent(ctx context.Context) error {
	c.sess.LastInteraction = c.now()
	if !c.sess.HasCurrent() {
		c.indicate(ctx, c.statusIndicator())
		c.publish(nil)
		return nil
	}
	a, err := c.load(ctx, c.sess.CurrentPage, render.SlotMiddle)
	if err != nil {
		c.fail(ctx, "show current page", err)
		return err
	}
	c.render(ctx, a, true)
	c.publish(nil)
	return nil
}

// HandlePress reacts to one debounced button press. A press that wakes the
// display only brings the chrome back.
func (c *Controller) HandlePress(ctx context.Context, b input.Button) error {
	wake := !c.chromeShown && c.sess.HasCurrent()
	c.sess.LastInteraction = c.now()
	if wake {
		c.logger.Debug("nav: waking display", "button", b.String())
		return c.ShowCurrent(ctx)
	}

	var err error
	switch b {
	case input.Left:
		err = c.Navigate(ctx, pager.Prev)
	case input.Right:
		err = c.Navigate(ctx, pager.Next)
	case input.Middle:
		err = c.toggleQueue(ctx)
	default:
		return nil
	}
	if errors.Is(err, pager.ErrOutOfRange) {
		return nil
	}
	return err
}

// Tick hides the chrome once the device has been idle for the awake time.
func (c *Controller) Tick(ctx context.Context, now time.Time) {
	if !c.chromeShown || !c.sess.HasCurrent() || c.awake < 0 {
		return
	}
	idleSince := c.sess.LastInteraction
	if c.chromeSince.After(idleSince) {
		idleSince = c.chromeSince
	}
	if now.Sub(idleSince) < c.awake {
		return
	}

	a, ok, err := c.cache.Get(c.sess.CurrentPage)
	if err != nil || !ok {
		c.logger.Debug("nav: current page not cached, leaving chrome on panel", "page", c.sess.CurrentPage, "error", err)
		return
	}
	c.chromeShown = false
	c.logger.Debug("nav: hiding chrome", "idle", now.Sub(idleSince).String())
	req := render.Request{PageIndex: c.sess.CurrentPage, Artifact: a, Status: *c.sess}
	if err := c.sink.Render(ctx, req); err != nil {
		c.logger.Warn("nav: render failed", "page", c.sess.CurrentPage, "error", err)
	}
}

// SetNetworkLink records the network probe result.
func (c *Controller) SetNetworkLink(ctx context.Context, up bool) {
	if c.sess.Connectivity.NetworkLinkUp == up {
		return
	}
	c.sess.Connectivity.NetworkLinkUp = up
	c.logger.Info("nav: network link changed", "up", up)
	c.connectivityChanged(ctx)
}

func (c *Controller) toggleQueue(ctx context.Context) error {
	in := realtime.Intent{Kind: realtime.IntentEnqueue}
	if c.sess.Queued() {
		in.Kind = realtime.IntentDequeue
	}
	if err := c.send(ctx, in); err != nil {
		c.fail(ctx, in.Kind.String(), err)
		return err
	}
	return nil
}

// load returns the stored page or downloads and stores it.
func (c *Controller) load(ctx context.Context, index int, slot render.Slot) (pager.Artifact, error) {
	a, ok, err := c.cache.Get(index)
	if err != nil {
		c.logger.Warn("nav: cached page unreadable, downloading", "page", index, "error", err)
	}
	if ok {
		return a, nil
	}

	c.sess.Downloading = true
	c.publish(nil)
	c.indicate(ctx, render.Indicator{Kind: render.IndicatorBusy, Slot: slot, Status: *c.sess})

	a, err = c.fetcher.Fetch(ctx, index)
	c.sess.Downloading = false
	if err != nil {
		return pager.Artifact{}, err
	}
	if err := c.cache.Store(index, a); err != nil {
		c.logger.Warn("nav: page not cached", "page", index, "error", err)
	}
	return a, nil
}

// commit makes target current and shows a. It returns the state save error,
// which does not undo the transition.
func (c *Controller) commit(ctx context.Context, target int, a pager.Artifact) error {
	c.sess.CurrentPage = target
	saveErr := c.persist()
	c.render(ctx, a, true)
	if c.sess.Connectivity.ChannelRegistered {
		if err := c.send(ctx, realtime.PageIndexIntent(target)); err != nil {
			c.logger.Warn("nav: page index not sent", "page", target, "error", err)
		}
	}
	return saveErr
}

func (c *Controller) prefetch(ctx context.Context, dir pager.Direction) {
	if err := c.cache.Prefetch(ctx, dir); err != nil {
		c.logger.Warn("nav: read-ahead failed", "direction", dir.String(), "error", err)
	}
}

func (c *Controller) render(ctx context.Context, a pager.Artifact, chrome bool) {
	req := render.Request{
		PageIndex:      c.sess.CurrentPage,
		ShowNavigation: chrome,
		ShowConnection: chrome,
		Artifact:       a,
		Status:         *c.sess,
	}
	if err := c.sink.Render(ctx, req); err != nil {
		c.logger.Warn("nav: render failed", "page", c.sess.CurrentPage, "error", err)
	}
	c.chromeShown = chrome
	if chrome {
		c.chromeSince = c.now()
	}
}

func (c *Controller) persist() error {
	if err := c.persister.Save(*c.sess); err != nil {
		c.logger.Warn("nav: state save failed", "page", c.sess.CurrentPage, "page_count", c.sess.PageCount, "error", err)
		return err
	}
	return nil
}

func (c *Controller) send(ctx context.Context, in realtime.Intent) error {
	if c.sender == nil {
		c.logger.Debug("nav: no push channel, intent dropped", "intent", in.Kind.String())
		return nil
	}
	return c.sender.Send(ctx, in)
}

func (c *Controller) fail(ctx context.Context, op string, err error) {
	c.logger.Warn("nav: "+op+" failed", "page", c.sess.CurrentPage, "kind", pager.KindOf(err).String(), "error", err)
	c.indicate(ctx, render.Indicator{Kind: render.IndicatorError, Err: err, Status: *c.sess})
	c.publish(err)
}

func (c *Controller) indicate(ctx context.Context, ind render.Indicator) {
	if err := c.sink.Indicate(ctx, ind); err != nil {
		c.logger.Warn("nav: indicator failed", "kind", ind.Kind.String(), "error", err)
	}
}

func (c *Controller) statusIndicator() render.Indicator {
	return render.Indicator{Kind: render.IndicatorStatus, Status: *c.sess}
}

func (c *Controller) connectivityChanged(ctx context.Context) {
	c.indicate(ctx, c.statusIndicator())
	c.publish(nil)
}

// publish pushes the session to the status store. A non-nil err is recorded
// on top of the fresh snapshot.
func (c *Controller) publish(err error) {
	if c.status != nil {
		c.status.Update(c.sess, c.cache.Len(), nil)
		if err != nil {
			c.status.Update(nil, 0, err)
		}
	}
	if c.notify != nil {
		c.notify()
	}
}
