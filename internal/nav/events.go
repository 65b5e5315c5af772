package nav

import (
	"context"
	"errors"
	"fmt"

	"github.com/five82/inkreader/internal/pager"
	"github.com/five82/inkreader/internal/realtime"
)

// OnConnected marks the channel up and registers the device.
func (c *Controller) OnConnected(ctx context.Context) error {
	c.sess.Connectivity.ChannelLinkUp = true
	c.logger.Info("nav: channel up, registering", "device_id", c.reg.DeviceID)
	err := c.send(ctx, realtime.RegisterIntent(c.reg))
	if err != nil {
		c.logger.Warn("nav: register failed", "error", err)
	}
	c.connectivityChanged(ctx)
	return err
}

// OnDisconnected clears both channel flags.
func (c *Controller) OnDisconnected(ctx context.Context) error {
	c.sess.Connectivity.ChannelLinkUp = false
	c.sess.Connectivity.ChannelRegistered = false
	c.logger.Info("nav: channel down")
	c.connectivityChanged(ctx)
	return nil
}

// OnRegistered records a positive acknowledgement. A refusal leaves the flag
// alone.
func (c *Controller) OnRegistered(ctx context.Context, accepted bool) error {
	if !accepted {
		c.logger.Warn("nav: server refused registration", "device_id", c.reg.DeviceID)
		return nil
	}
	c.sess.Connectivity.ChannelRegistered = true
	c.logger.Info("nav: registered")
	c.connectivityChanged(ctx)
	return nil
}

// OnDeviceIndexUpdated stores the queue position. Negative positions mean the
// device left the queue.
func (c *Controller) OnDeviceIndexUpdated(ctx context.Context, index int) error {
	if index < 0 {
		index = pager.Unset
	}
	c.sess.QueueIndex = index
	c.logger.Info("nav: queue position changed", "queue_index", index)
	c.refreshChrome(ctx)
	c.publish(nil)
	return nil
}

// OnShowPage jumps to a page chosen by the server. Out-of-range targets are
// ignored.
func (c *Controller) OnShowPage(ctx context.Context, index int) error {
	err := c.NavigateTo(ctx, index)
	if errors.Is(err, pager.ErrOutOfRange) {
		return nil
	}
	return err
}

// OnPagesReady starts a new page set of count pages. The cache is emptied and
// nothing is rendered until a page is requested.
func (c *Controller) OnPagesReady(ctx context.Context, count int) error {
	if count < 1 {
		err := pager.ProtocolError("pages ready", fmt.Errorf("invalid page count %d", count))
		c.logger.Warn("nav: ignoring page set", "page_count", count, "error", err)
		return err
	}
	if err := c.cache.ClearAll(); err != nil {
		c.fail(ctx, "clear page cache", err)
		return err
	}

	c.sess.PageCount = count
	if c.sess.CurrentPage == pager.Unset {
		c.sess.CurrentPage = 0
	}
	c.sess.Clamp()
	saveErr := c.persist()
	c.logger.Info("nav: new page set", "page_count", count, "page", c.sess.CurrentPage)

	c.indicate(ctx, c.statusIndicator())
	c.publish(saveErr)
	return nil
}

// refreshChrome redraws the chrome from the stored copy of the current page.
func (c *Controller) refreshChrome(ctx context.Context) {
	if !c.chromeShown || !c.sess.HasCurrent() {
		return
	}
	a, ok, err := c.cache.Get(c.sess.CurrentPage)
	if err != nil || !ok {
		c.indicate(ctx, c.statusIndicator())
		return
	}
	c.render(ctx, a, true)
}
