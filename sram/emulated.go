package sram

// Emulated is an in-memory BankWriter standing in for the real
// cartridge SRAM, used by unit tests and the CLI emulation harness
// (spec.md section 1: "emulation of the streamer for offline testing
// ... bytes written to a host buffer instead of hardware pins").
// Emulated is grounded on the teacher's pooled-byte-buffer shape
// (device/frame_pool.go), minus pooling: a fixed 2 MiB backing array
// plays the role of the hardware window.
type Emulated struct {
	storage [2][BankSize]byte
	current Bank
	cursor  int64
	started bool
}

// NewEmulated returns a ready-to-use emulated SRAM with both banks
// zeroed.
func NewEmulated() *Emulated {
	return &Emulated{}
}

// StartBank implements BankWriter.
func (e *Emulated) StartBank(b Bank) {
	e.FlushAndRelease()
	e.current = b
	e.cursor = 0
	e.started = true
}

// Write implements BankWriter.
func (e *Emulated) Write(p []byte) (int, error) {
	if !e.started {
		return 0, ErrNoBankStarted
	}
	if e.cursor+int64(len(p)) > BankSize {
		return 0, ErrOverflow
	}
	bank := &e.storage[e.current]
	for _, c := range p {
		bank[swapLowBit(e.cursor)] = c
		e.cursor++
	}
	return len(p), nil
}

// WriteByte implements BankWriter and container.Sink.
func (e *Emulated) WriteByte(c byte) error {
	_, err := e.Write([]byte{c})
	return err
}

// FlushAndRelease implements BankWriter. If an odd number of bytes was
// written since StartBank, one zero byte is appended to complete the
// final 16-bit word (spec.md section 4.2). Idempotent.
func (e *Emulated) FlushAndRelease() {
	if !e.started {
		return
	}
	if e.cursor%2 != 0 && e.cursor < BankSize {
		e.storage[e.current][swapLowBit(e.cursor)] = 0
		e.cursor++
	}
	e.started = false
}

// Cursor implements BankWriter.
func (e *Emulated) Cursor() int64 { return e.cursor }

// CurrentBank implements BankWriter.
func (e *Emulated) CurrentBank() Bank { return e.current }

// ReadAt returns a copy of n bytes at offset within bank b, as the
// console would observe them (i.e. with the low-address-bit swap
// already resolved). It is always safe to call between commands; test
// code and the player emulation use it to assert on written contents
// and to read frame/audio payloads.
func (e *Emulated) ReadAt(b Bank, offset int64, n int) []byte {
	out := make([]byte, n)
	bank := &e.storage[b]
	for i := 0; i < n; i++ {
		out[i] = bank[swapLowBit(offset+int64(i))]
	}
	return out
}
