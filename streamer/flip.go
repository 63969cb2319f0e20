package streamer

import (
	"context"

	"github.com/kinetoscope/streamer/sram"
)

// cmdFlipRegion starts the next chunk's fetch without waiting for it
// to complete (spec.md section 4.4: "does NOT wait for completion;
// dispatch itself completes immediately"). The console alternates
// banks each call: chunk 0 -> bank 0 and chunk 1 -> bank 1 were
// already requested by START_VIDEO, so FLIP_REGION's first call
// requests chunk 2 into bank 0.
//
// If every chunk has already been requested this is a no-op (Open
// Question decision: the chunkNum >= totalChunks guard runs before
// the in-flight check, so a FLIP_REGION received after the stream end
// never raises underflow). Otherwise, if a fetch is still in flight,
// the console asked for more video than the network could deliver in
// time: that is underflow.
func (c *Context) cmdFlipRegion() {
	c.mu.Lock()
	if !c.video.active {
		c.mu.Unlock()
		return
	}
	chunkNum := c.video.chunksRequested
	if chunkNum >= c.video.totalChunks {
		c.mu.Unlock()
		return
	}
	if c.fetchBusy {
		c.mu.Unlock()
		c.reportError(errUnderflow)
		return
	}
	videoURL := c.video.videoURL
	c.video.chunksRequested = chunkNum + 1
	c.mu.Unlock()

	bank := sram.Bank0
	if chunkNum%2 == 1 {
		bank = sram.Bank1
	}
	c.bank.StartBank(bank)
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.otherTimeout)
	c.fetchChunk(ctx, videoURL, chunkNum, func(ok bool, err error) {
		cancel()
		if !ok {
			if c.handleCancelled(err) {
				return
			}
			if c.fetchTimedOut(ctx) {
				return
			}
			c.reportError(fetchVideoChunkError(chunkNum))
		}
	})
}
