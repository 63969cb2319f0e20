package streamer

import (
	"context"

	"github.com/kinetoscope/streamer/container"
	"github.com/kinetoscope/streamer/sram"
)

// startVideoState is the tagged-continuation context threaded through
// the START_VIDEO algorithm's stages (spec.md design notes: "Model as
// tagged continuations ... carrying its own small state object").
// Exactly one exists at a time, since only one command dispatch runs
// at a time.
type startVideoState struct {
	index            int
	catalogHeaderBuf []byte
	videoURL         string
	header           container.VideoHeader
	compressed       bool
	chunkSize        int64
	videoIndex       container.VideoIndex
}

// cmdStartVideo begins the START_VIDEO algorithm (spec.md section
// 4.4). Index bounds are checked synchronously; everything past that
// runs through the async stage chain, which clears CMD_TOKEN itself
// when done (stage 3's final step).
func (c *Context) cmdStartVideo(index int) {
	if index < 0 || index >= container.MaxCatalogEntries {
		c.reportError(invalidVideoIndexError(index))
		c.finishSync()
		return
	}

	sv := &startVideoState{index: index}
	c.startVideoStage0(sv)
}

// startVideoStage0 range-fetches one catalog header (spec.md step 1).
func (c *Context) startVideoStage0(sv *startVideoState) {
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.otherTimeout)
	c.beginFetch(func(ok bool, err error) {
		cancel()
		if !ok {
			if c.handleCancelled(err) {
				return
			}
			if c.fetchTimedOut(ctx) {
				return
			}
			c.reportError(fetchCatalogIndexError(sv.index))
			c.finishAsync()
			return
		}
		c.startVideoStage1(sv)
	})

	var buf []byte
	url := c.catalogURL()
	c.fetcher.Fetch(ctx, url, container.CatalogOffset(sv.index), int64(container.HeaderSize),
		func(p []byte) bool {
			if c.isCancelled() {
				return false
			}
			buf = append(buf, p...)
			return true
		},
		func(ok bool, err error) {
			if ok {
				sv.catalogHeaderBuf = buf
			}
			c.completeFetch(ok, err)
		},
	)
}

// startVideoStage1 validates the catalog header, builds the video URL,
// and range-fetches the video's own header (spec.md steps 2-3).
func (c *Context) startVideoStage1(sv *startVideoState) {
	if err := container.ValidateHeader(sv.catalogHeaderBuf); err != nil {
		c.reportError(invalidCatalogDataError(sv.index))
		c.finishAsync()
		return
	}
	relURL, err := container.RelativeURLField(sv.catalogHeaderBuf)
	if err != nil {
		c.reportError(invalidCatalogDataError(sv.index))
		c.finishAsync()
		return
	}
	sv.videoURL = c.originURL(relURL)

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.otherTimeout)
	c.beginFetch(func(ok bool, err error) {
		cancel()
		if !ok {
			if c.handleCancelled(err) {
				return
			}
			if c.fetchTimedOut(ctx) {
				return
			}
			c.reportError(errFetchHeader)
			c.finishAsync()
			return
		}
		c.startVideoStage2(sv)
	})

	var buf []byte
	c.fetcher.Fetch(ctx, sv.videoURL, 0, int64(container.HeaderSize),
		func(p []byte) bool {
			if c.isCancelled() {
				return false
			}
			buf = append(buf, p...)
			return true
		},
		func(ok bool, err error) {
			if ok {
				if verr := container.ValidateHeader(buf); verr != nil {
					ok = false
					err = verr
				} else if h, perr := container.ParseHeader(buf); perr != nil {
					ok = false
					err = perr
				} else {
					sv.header = h
				}
			}
			c.completeFetch(ok, err)
		},
	)
}

// startVideoStage2 optionally range-fetches the VideoIndex, then writes
// the (compression-forced-to-0) header into bank 0 (spec.md steps 4-6).
func (c *Context) startVideoStage2(sv *startVideoState) {
	sv.compressed = sv.header.Compression != 0
	sv.chunkSize = int64(sv.header.ChunkSize)

	writeHeaderAndStartChunks := func() {
		written := sv.header
		written.Compression = 0

		// The header and chunk 0 share bank 0 (scenario C: "bank 0 starts
		// with the header then chunk 0's chunk header, audio, frames"), so
		// the bank is started once here and chunk 0's fetch below must
		// keep appending rather than starting the bank again.
		c.bank.StartBank(sram.Bank0)
		c.bank.Write(container.EncodeHeader(written))

		c.mu.Lock()
		c.video = videoState{
			active:        true,
			videoURL:      sv.videoURL,
			compressed:    sv.compressed,
			chunkSize:     sv.chunkSize,
			totalChunks:   int(sv.header.TotalChunks),
			rawBodyOffset: int64(container.HeaderSize),
			index:         sv.videoIndex,
		}
		if sv.compressed {
			c.video.rawBodyOffset += int64(container.IndexSize)
		}
		c.mu.Unlock()

		c.startVideoStage3(sv, 0)
	}

	if !sv.compressed {
		writeHeaderAndStartChunks()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.opts.otherTimeout)
	c.beginFetch(func(ok bool, err error) {
		cancel()
		if !ok {
			if c.handleCancelled(err) {
				return
			}
			if c.fetchTimedOut(ctx) {
				return
			}
			c.reportError(errFetchIndex)
			c.finishAsync()
			return
		}
		writeHeaderAndStartChunks()
	})

	var buf []byte
	c.fetcher.Fetch(ctx, sv.videoURL, int64(container.HeaderSize), int64(container.IndexSize),
		func(p []byte) bool {
			if c.isCancelled() {
				return false
			}
			buf = append(buf, p...)
			return true
		},
		func(ok bool, err error) {
			if ok {
				idx, perr := container.ParseIndex(buf)
				if perr != nil {
					ok = false
					err = perr
				} else {
					sv.videoIndex = idx
				}
			}
			c.completeFetch(ok, err)
		},
	)
}

// startVideoStage3 fetches chunk i (spec.md steps 7-8: wait for chunk 0
// into bank 0, then, if more chunks exist, chunk 1 into bank 1). Chunk
// 0 continues appending onto the bank 0 session writeHeaderAndStartChunks
// already opened; chunk 1 opens bank 1 fresh. After the last requested
// chunk of this pair completes, it clears CMD_TOKEN (step 9).
func (c *Context) startVideoStage3(sv *startVideoState, chunkNum int) {
	if chunkNum == 1 {
		c.bank.StartBank(sram.Bank1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.otherTimeout)
	c.fetchChunk(ctx, sv.videoURL, chunkNum, func(ok bool, err error) {
		cancel()
		if !ok {
			if c.handleCancelled(err) {
				return
			}
			if c.fetchTimedOut(ctx) {
				return
			}
			c.reportError(fetchVideoChunkError(chunkNum))
			c.finishAsync()
			return
		}

		c.mu.Lock()
		c.video.chunksRequested = chunkNum + 1
		more := c.video.chunksRequested < c.video.totalChunks
		c.mu.Unlock()

		if more && chunkNum == 0 {
			c.startVideoStage3(sv, 1)
			return
		}
		c.finishAsync()
	})
}

// fetchChunk computes chunk i's source byte range (raw or compressed,
// spec.md section 4.4) and streams it into the bank the caller has
// already start_bank'd, through either write_sram directly or
// rle_decode_into(write_sram), calling onDone(ok, err) exactly once.
// ctx governs the fetch; the caller owns its deadline and timeout
// detection, since START_VIDEO's chunk 0/1 fetch and FLIP_REGION's
// single-chunk fetch finish the command differently on failure.
func (c *Context) fetchChunk(ctx context.Context, videoURL string, i int, onDone func(bool, error)) {
	c.mu.Lock()
	v := c.video
	c.mu.Unlock()

	var first, size int64
	if v.compressed {
		start, end, ok := v.index.ChunkByteRange(i)
		if !ok {
			onDone(false, container.ErrTruncated)
			return
		}
		first, size = start, end-start
	} else {
		first = v.rawBodyOffset + int64(i)*v.chunkSize
		size = v.chunkSize
	}

	var decoder *container.Decoder
	if v.compressed {
		decoder = container.NewDecoder()
	}

	c.beginFetch(func(ok bool, err error) {
		c.bank.FlushAndRelease()
		onDone(ok, err)
	})

	c.fetcher.Fetch(ctx, videoURL, first, size,
		func(p []byte) bool {
			if c.isCancelled() {
				return false
			}
			if decoder != nil {
				if err := decoder.Decode(p, c.bank); err != nil {
					return false
				}
			} else {
				if _, err := c.bank.Write(p); err != nil {
					return false
				}
			}
			return true
		},
		func(ok bool, err error) {
			c.completeFetch(ok, err)
		},
	)
}

// --- fetch-busy / cancellation plumbing shared by every stage ---

// beginFetch records fetchBusy=true and the continuation to invoke
// when the in-flight fetch completes.
func (c *Context) beginFetch(onDone func(ok bool, err error)) {
	c.mu.Lock()
	c.fetchBusy = true
	c.onFetchDone = onDone
	c.mu.Unlock()
}

// completeFetch clears fetchBusy and invokes the recorded continuation.
func (c *Context) completeFetch(ok bool, err error) {
	c.mu.Lock()
	c.fetchBusy = false
	done := c.onFetchDone
	c.onFetchDone = nil
	c.mu.Unlock()
	if done != nil {
		done(ok, err)
	}
}

// isCancelled reports whether STOP_VIDEO has requested cancellation of
// the in-flight fetch (spec.md section 5).
func (c *Context) isCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelRequested
}

// handleCancelled finishes the command cleanly (no ERR raised) if
// cancellation was requested, matching scenario F: "fetch_busy clears,
// CMD_TOKEN clears, ERR unset". Spec.md section 4.3: the dispatcher
// distinguishes a user cancel from a genuine transport error by this
// flag, not by the error value the fetch happened to return. Returns
// true if it handled the completion as a cancellation.
func (c *Context) handleCancelled(err error) bool {
	c.mu.Lock()
	cancelled := c.cancelRequested
	if cancelled {
		c.cancelRequested = false
		c.video = videoState{}
	}
	c.mu.Unlock()
	if cancelled {
		c.finishAsync()
	}
	return cancelled
}
