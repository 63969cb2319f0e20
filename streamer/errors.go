package streamer

import (
	"context"
	"fmt"
)

// The fixed error-string vocabulary surfaced to the console (spec.md
// section 7). Each is formatted with fmt.Sprintf where it takes a
// parameter.
const (
	errFmtFetchVideoChunk  = "Failed to fetch video! (chunk %d)"
	errDownloadCatalog     = "Failed to download video catalog!"
	errFetchHeader         = "Failed to fetch header!"
	errFetchIndex          = "Failed to fetch index!"
	errFmtFetchCatalogIdx  = "Failed to fetch catalog index! (%d)"
	errFmtInvalidVideoIdx  = "Invalid video index requested! (%d)"
	errFmtInvalidCatalog   = "Invalid catalog data at index! (%d)"
	errFmtUnrecognizedCmd  = "Unrecognized command 0x%02X!"
	errUnderflow           = "Underflow detected! Internet too slow?"
	errCommandConflict     = "Command conflict! Busy!"
	errCommandTimeout      = "Command timed out!"
)

// reportError sets the current error string and raises ERR_TOKEN.
// Sticky: once ERR is set, further calls are dropped until the console
// clears it (spec.md section 4.4 and section 8 property 7).
func (c *Context) reportError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reportErrorLocked(msg)
}

func (c *Context) reportErrorLocked(msg string) {
	if c.errSet && c.win.ReadErrToken() {
		return
	}
	c.currentError = msg
	c.errSet = true
	c.state = StateEmittingError
	c.win.SetErrToken()
	c.log.Error("%s", msg)
}

// fetchTimedOut reports whether ctx's deadline, not a transport failure
// or a user cancel, is why the fetch it governed just failed, raising
// the Timeout ERR and finishing the command if so (spec.md section 5:
// "Expiry produces a Timeout error surfaced as ERR"). Mirrors
// handleCancelled's shape: callers check it right alongside
// handleCancelled, in the same !ok branch.
func (c *Context) fetchTimedOut(ctx context.Context) bool {
	if ctx.Err() != context.DeadlineExceeded {
		return false
	}
	c.reportError(errCommandTimeout)
	c.finishAsync()
	return true
}

// CurrentError returns the streamer's current error string, for tests.
func (c *Context) CurrentError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentError
}

func fetchVideoChunkError(chunk int) string  { return fmt.Sprintf(errFmtFetchVideoChunk, chunk) }
func fetchCatalogIndexError(i int) string    { return fmt.Sprintf(errFmtFetchCatalogIdx, i) }
func invalidVideoIndexError(i int) string    { return fmt.Sprintf(errFmtInvalidVideoIdx, i) }
func invalidCatalogDataError(i int) string   { return fmt.Sprintf(errFmtInvalidCatalog, i) }
func unrecognizedCommandError(cmd byte) string { return fmt.Sprintf(errFmtUnrecognizedCmd, cmd) }
