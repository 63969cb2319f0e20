package player

import "sync"

// AudioDriver is the console's PCM audio DMA engine: an external
// collaborator explicitly out of scope for this module (spec.md
// section 1, "the PCM audio driver"). The player only needs to read
// its current position and rewrite its loop target, so that is the
// whole boundary this interface exposes.
type AudioDriver interface {
	// Pointer returns the DMA read pointer as an absolute address, in
	// the same address space as the start/end values passed to
	// StartLooping and SetLoopTarget (the player passes cartridge
	// addresses from transport.AddressForBank, which are never 0).
	// 0 means playback has stopped (spec.md section 4.5 step 2).
	Pointer() uint32

	// StartLooping begins playback, looping the DMA engine over the
	// sample range [start, end).
	StartLooping(start, end uint32)

	// SetLoopTarget rewrites the range the hardware jumps to once it
	// reaches the current loop's end, so playback continues seamlessly
	// into the next chunk's audio (spec.md section 4.5 step 8).
	SetLoopTarget(start, end uint32)

	// ClearLoop disables auto-loop, so playback stops at the current
	// loop's end instead of wrapping (used when there is no next
	// chunk).
	ClearLoop()
}

// FakeAudioDriver is an in-memory AudioDriver for the emulation harness
// and tests, advanced explicitly by calling Advance instead of by a
// real sample clock. Grounded on sram.Emulated's role in this repo:
// a host-side stand-in for a piece of hardware the console side owns.
type FakeAudioDriver struct {
	mu sync.Mutex

	pointer  uint32
	start    uint32
	end      uint32
	running  bool
	hasNext  bool
	nextSrt  uint32
	nextEnd  uint32
}

// NewFakeAudioDriver returns a stopped FakeAudioDriver.
func NewFakeAudioDriver() *FakeAudioDriver {
	return &FakeAudioDriver{}
}

// Pointer implements AudioDriver.
func (f *FakeAudioDriver) Pointer() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return 0
	}
	return f.pointer
}

// StartLooping implements AudioDriver.
func (f *FakeAudioDriver) StartLooping(start, end uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.start, f.end = start, end
	f.pointer = start
	f.running = true
	f.hasNext = false
}

// SetLoopTarget implements AudioDriver.
func (f *FakeAudioDriver) SetLoopTarget(start, end uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextSrt, f.nextEnd = start, end
	f.hasNext = true
}

// ClearLoop implements AudioDriver.
func (f *FakeAudioDriver) ClearLoop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hasNext = false
}

// Advance simulates samples worth of DMA progress, wrapping into the
// pending loop target (or stopping) at the loop boundary exactly the
// way the real hardware's auto-loop would. Test code and the CLI
// harness call this in place of a real sample clock.
func (f *FakeAudioDriver) Advance(samples uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return
	}
	f.pointer += samples
	if f.pointer < f.end {
		return
	}
	overshoot := f.pointer - f.end
	if f.hasNext {
		f.start, f.end = f.nextSrt, f.nextEnd
		f.pointer = f.start + overshoot
		f.hasNext = false
		return
	}
	f.running = false
	f.pointer = 0
}
