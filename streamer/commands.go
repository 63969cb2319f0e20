package streamer

import (
	"context"
	"time"

	"github.com/kinetoscope/streamer/sram"
)

// Command byte values (spec.md section 4.4).
const (
	CmdEcho        uint8 = 0x00
	CmdListVideos  uint8 = 0x01
	CmdStartVideo  uint8 = 0x02
	CmdStopVideo   uint8 = 0x03
	CmdFlipRegion  uint8 = 0x04
	CmdGetError    uint8 = 0x05
	CmdConnectNet  uint8 = 0x06
	CmdMarchTest   uint8 = 0x07
)

// Run polls CMD_TOKEN at firmware granularity (spec.md section 5:
// "~1 ms granularity in firmware") until ctx is done. This is the
// worker-loop half of the command context; emulated callers that want
// to drive dispatch directly from a port write should call
// NotifyCmdReady instead (spec.md design notes: "in emulation, invoked
// directly from the port-write handler").
func (c *Context) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// CMD_TOKEN stays set until the dispatched command finishes,
			// so a token seen while Busy is the command already running.
			if c.State() != StateBusy && c.win.ReadCmdToken() {
				c.handleCmdReady()
			}
		}
	}
}

// NotifyCmdReady synchronously services a command that has just been
// posted (CMD_TOKEN set, COMMAND/ARG written). Intended for the
// emulation harness, where the console side can call this right after
// setting the token instead of waiting for Run's poll.
func (c *Context) NotifyCmdReady() {
	c.handleCmdReady()
}

// handleCmdReady is the single entry point both Run and NotifyCmdReady
// funnel through: simulate the processing delay, then dispatch
// exactly once (spec.md section 4.4: "Only one dispatch runs at a
// time; re-entry is forbidden"). A command posted while the streamer
// is still busy with a prior one raises errCommandConflict rather than
// silently dropping it -- the console otherwise has no way to learn
// why its new CMD_TOKEN never got serviced.
func (c *Context) handleCmdReady() {
	c.mu.Lock()
	if c.state == StateBusy {
		c.mu.Unlock()
		c.reportError(errCommandConflict)
		c.win.ClearCmdToken()
		return
	}
	c.state = StateBusy
	c.mu.Unlock()

	time.Sleep(c.opts.processingDelay)

	cmd, arg := c.win.ReadCommandAndArg()
	c.log.Debug("dispatch cmd=0x%02X arg=%d", cmd, arg)
	c.dispatch(cmd, arg)
}

// dispatch routes one command to its handler. Synchronous handlers
// clear CMD_TOKEN themselves via finishSync before returning; the
// asynchronous handlers (LIST_VIDEOS, START_VIDEO) clear it from their
// final continuation stage instead (spec.md section 4.4).
func (c *Context) dispatch(cmd uint8, arg uint16) {
	switch cmd {
	case CmdEcho:
		c.cmdEcho(arg)
		c.finishSync()
	case CmdListVideos:
		c.cmdListVideos()
	case CmdStartVideo:
		c.cmdStartVideo(int(arg))
	case CmdStopVideo:
		c.cmdStopVideo()
	case CmdFlipRegion:
		c.cmdFlipRegion()
		c.finishSync()
	case CmdGetError:
		c.cmdGetError()
		c.finishSync()
	case CmdConnectNet:
		c.cmdConnectNet()
		c.finishSync()
	case CmdMarchTest:
		c.cmdMarchTest(int(arg))
		c.finishSync()
	default:
		c.reportError(unrecognizedCommandError(cmd))
		c.finishSync()
	}
}

// finishSync clears CMD_TOKEN and returns the streamer to Idle. Used by
// every command whose work is complete by the time dispatch returns.
func (c *Context) finishSync() {
	c.mu.Lock()
	if c.state != StateEmittingError {
		c.state = StateIdle
	}
	c.mu.Unlock()
	c.win.ClearCmdToken()
}

// finishAsync is the equivalent used by the final stage of an
// asynchronous command's continuation chain.
func (c *Context) finishAsync() {
	c.finishSync()
}

// cmdEcho writes arg at SRAM offset 0 in bank 0, low byte first (spec.md
// section 4.4 and section 10 scenario A: ARG=0x00AA reads back as 0xAA
// at byte 0, the low byte).
func (c *Context) cmdEcho(arg uint16) {
	c.bank.StartBank(sram.Bank0)
	c.bank.Write([]byte{byte(arg), byte(arg >> 8)})
	c.bank.FlushAndRelease()
}

// cmdGetError writes the current error message, nul-terminated ASCII,
// into bank 0 at offset 0.
func (c *Context) cmdGetError() {
	c.mu.Lock()
	msg := c.currentError
	c.mu.Unlock()

	c.bank.StartBank(sram.Bank0)
	c.bank.Write([]byte(msg))
	c.bank.Write([]byte{0})
	c.bank.FlushAndRelease()
}

// cmdConnectNet attempts (re)connection. In this emulation there is no
// real link layer to bring up; success is unconditional unless a
// caller has configured the origin unreachable, in which case the
// fetcher itself will surface the failure on the next command. This
// matches spec.md section 4.4's "attempts (re)connection; sets ERR on
// failure" -- failure here is reported the same way a stalled fetch
// would be, rather than invented.
func (c *Context) cmdConnectNet() {
	// No-op success path: nothing to connect to at this abstraction
	// level. A firmware build replaces this with real link bring-up.
}

// cmdStopVideo cancels any in-flight fetch and returns control to the
// console (spec.md section 4.4 and section 5's cancellation model).
func (c *Context) cmdStopVideo() {
	c.mu.Lock()
	busy := c.fetchBusy
	if busy {
		c.cancelRequested = true
	} else {
		c.video = videoState{}
	}
	c.mu.Unlock()
	c.log.Info("stop_video: cancelling in-flight fetch=%v", busy)

	if !busy {
		c.finishSync()
	}
	// If a fetch is in flight, the cancellation flag above causes its
	// onBytes callback to return false; the stage's completion
	// continuation (start_video.go's handleCancelled) observes
	// cancelRequested and finishes the command there instead.
}

// cmdMarchTest writes a deterministic pattern to bank pass&1 (spec.md
// section 4.4).
func (c *Context) cmdMarchTest(pass int) {
	b := sram.Bank0
	if pass&1 == 1 {
		b = sram.Bank1
	}
	c.bank.StartBank(b)
	pattern := make([]byte, 256)
	for i := range pattern {
		pattern[i] = byte((pass*31 + i) & 0xFF)
	}
	c.bank.Write(pattern)
	c.bank.FlushAndRelease()
}
