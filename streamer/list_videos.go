package streamer

import (
	"context"

	"github.com/kinetoscope/streamer/fetch"
	"github.com/kinetoscope/streamer/sram"
)

// cmdListVideos fetches the whole catalog file (no Range header) into
// bank 0 and clears CMD_TOKEN when the transfer finishes (spec.md
// section 4.4). Unlike START_VIDEO's chain, this is a single stage.
func (c *Context) cmdListVideos() {
	c.bank.StartBank(sram.Bank0)

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.otherTimeout)
	c.beginFetch(func(ok bool, err error) {
		cancel()
		c.bank.FlushAndRelease()
		if !ok {
			if c.handleCancelled(err) {
				return
			}
			if c.fetchTimedOut(ctx) {
				return
			}
			c.reportError(errDownloadCatalog)
			c.finishAsync()
			return
		}
		c.finishAsync()
	})

	c.fetcher.Fetch(ctx, c.catalogURL(), 0, fetch.NoLimit,
		func(p []byte) bool {
			if c.isCancelled() {
				return false
			}
			if _, err := c.bank.Write(p); err != nil {
				return false
			}
			return true
		},
		func(ok bool, err error) {
			c.completeFetch(ok, err)
		},
	)
}
