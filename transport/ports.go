package transport

import "sync"

// Port offsets, relative to the 256-byte control window (spec.md
// section 4.4 and section 6).
const (
	PortCmdToken Port = 0x08
	PortErrToken Port = 0x0A
	PortCommand  Port = 0x10
	PortArg      Port = 0x12
)

// Port is a 16-bit-aligned offset within the 256-byte control window.
type Port uint16

// ControlWindow is the shared, memory-visible register file between
// the console and the streamer. COMMAND and ARG are write-only from
// the console's perspective (reads return 0, matching real hardware
// registers that never latch a readback path); CMD_TOKEN and ERR_TOKEN
// are single-bit values readable from both sides. Writes to the token
// addresses ignore their data payload -- the write itself is the
// event (spec.md section 4.6).
//
// A single mutex guards the whole window: every real access is a
// single register-sized operation, so this is never a point of
// contention, and it gives the emulated cross-goroutine window the
// same "strongly ordered bus" guarantee spec.md section 5 assumes of
// real hardware.
type ControlWindow struct {
	mu sync.Mutex

	command  uint16
	arg      uint16
	cmdToken bool
	errToken bool
}

// NewControlWindow returns a ControlWindow with both tokens clear.
func NewControlWindow() *ControlWindow {
	return &ControlWindow{}
}

// --- console-side access ---

// WriteCommand is the console's COMMAND register write.
func (w *ControlWindow) WriteCommand(cmd uint8) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.command = uint16(cmd)
}

// WriteArg is the console's ARG register write.
func (w *ControlWindow) WriteArg(arg uint16) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.arg = arg
}

// SetCmdToken is the console's CMD_TOKEN write: "cmd_ready = 1
// transfers control to the streamer" (spec.md section 3). This also
// acts as the release fence spec.md section 5 describes: all prior
// COMMAND/ARG writes from this goroutine happen-before the streamer
// observes the token, because both live behind the same mutex.
func (w *ControlWindow) SetCmdToken() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cmdToken = true
}

// ClearErrToken is the console's acknowledgement of a reported error.
func (w *ControlWindow) ClearErrToken() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errToken = false
}

// ReadErrToken reads ERR_TOKEN from the console side.
func (w *ControlWindow) ReadErrToken() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.errToken
}

// ReadCmdToken reads CMD_TOKEN; the console uses this to poll for
// command completion.
func (w *ControlWindow) ReadCmdToken() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cmdToken
}

// --- streamer-side access ---

// ReadCommandAndArg is the streamer's dispatch-time read of COMMAND and
// ARG, performed once CMD_TOKEN is observed set.
func (w *ControlWindow) ReadCommandAndArg() (cmd uint8, arg uint16) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return uint8(w.command), w.arg
}

// ClearCmdToken is the streamer's completion signal: "after the
// streamer clears CMD_TOKEN, all SRAM writes produced by the dispatched
// command are observable to the console" (spec.md section 8, property
// 6) -- again guaranteed here by the shared mutex.
func (w *ControlWindow) ClearCmdToken() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cmdToken = false
}

// SetErrToken is the streamer's error report. Sticky: once set, it
// stays set until the console clears it (spec.md section 3).
func (w *ControlWindow) SetErrToken() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.errToken = true
}

// --- raw register-style access, exercising the byte/word addressing
// rules of spec.md section 4.6 directly (used by transport's own
// tests) ---

// ReadPort16 reads a 16-bit port. COMMAND and ARG always read back 0;
// the token ports read back {0,1}.
func (w *ControlWindow) ReadPort16(p Port) uint16 {
	switch p {
	case PortCmdToken:
		if w.ReadCmdToken() {
			return 1
		}
		return 0
	case PortErrToken:
		if w.ReadErrToken() {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// WritePort16 writes a 16-bit port. Writing PortCommand or PortArg
// updates the corresponding register; writing either token port
// ignores the value: a PortCmdToken write raises CMD_TOKEN and a
// PortErrToken write clears ERR_TOKEN, per spec.md section 4.6.
func (w *ControlWindow) WritePort16(p Port, value uint16) {
	switch p {
	case PortCommand:
		w.WriteCommand(uint8(value))
	case PortArg:
		w.WriteArg(value)
	case PortCmdToken:
		w.SetCmdToken()
	case PortErrToken:
		w.ClearErrToken()
	}
}

// ReadPort8 reads one byte of a 16-bit port: the even address is the
// high byte, the odd address is the low byte (spec.md section 4.6 and
// section 6).
func (w *ControlWindow) ReadPort8(addr uint16) uint8 {
	word := w.ReadPort16(Port(addr &^ 1))
	if addr&1 == 0 {
		return uint8(word >> 8)
	}
	return uint8(word)
}
