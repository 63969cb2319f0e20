package sram

import (
	"fmt"
	"os"

	sys "golang.org/x/sys/unix"
)

// Hardware is a BankWriter backed by the real cartridge SRAM window,
// mmap'd from a device file exposing the 2 MiB window at
// spec.md section 6's 0x200000..0x400000 cartridge-relative offset.
// Grounded on the teacher's MapMemoryBuffer/UnmapMemoryBuffer shape
// (v4l2/streaming.go), which mmaps V4L2 capture buffers the same way.
type Hardware struct {
	file    *os.File
	window  []byte // mmap'd view of the full 2 MiB SRAM window
	current Bank
	cursor  int64
	started bool
}

// sramWindowOffset is the cartridge-relative byte offset of the SRAM
// window (spec.md section 6).
const sramWindowOffset = 0x200000

// sramWindowSize is the full two-bank SRAM window size.
const sramWindowSize = 2 * BankSize

// OpenHardware mmaps the SRAM window out of the memory-mapped device
// file at path (a /dev/mem-style character device exposing the
// cartridge's address space on the firmware build).
func OpenHardware(path string) (*Hardware, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("sram: open %s: %w", path, err)
	}

	window, err := sys.Mmap(int(f.Fd()), sramWindowOffset, sramWindowSize, sys.PROT_READ|sys.PROT_WRITE, sys.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sram: mmap: %w", err)
	}

	return &Hardware{file: f, window: window}, nil
}

// Close unmaps the SRAM window and closes the backing device file.
func (h *Hardware) Close() error {
	if err := sys.Munmap(h.window); err != nil {
		return fmt.Errorf("sram: munmap: %w", err)
	}
	return h.file.Close()
}

// StartBank implements BankWriter.
func (h *Hardware) StartBank(b Bank) {
	h.FlushAndRelease()
	h.current = b
	h.cursor = 0
	h.started = true
}

func (h *Hardware) bankOffset() int64 {
	return int64(h.current) * BankSize
}

// Write implements BankWriter.
func (h *Hardware) Write(p []byte) (int, error) {
	if !h.started {
		return 0, ErrNoBankStarted
	}
	if h.cursor+int64(len(p)) > BankSize {
		return 0, ErrOverflow
	}
	base := h.bankOffset()
	for _, c := range p {
		h.window[base+swapLowBit(h.cursor)] = c
		h.cursor++
	}
	return len(p), nil
}

// WriteByte implements BankWriter and container.Sink.
func (h *Hardware) WriteByte(c byte) error {
	_, err := h.Write([]byte{c})
	return err
}

// FlushAndRelease implements BankWriter: pads an odd tail byte with a
// zero byte to complete the final 16-bit word, then drops the
// bank-write-enable line. Idempotent.
func (h *Hardware) FlushAndRelease() {
	if !h.started {
		return
	}
	if h.cursor%2 != 0 && h.cursor < BankSize {
		h.window[h.bankOffset()+swapLowBit(h.cursor)] = 0
		h.cursor++
	}
	h.started = false
}

// Cursor implements BankWriter.
func (h *Hardware) Cursor() int64 { return h.cursor }

// CurrentBank implements BankWriter.
func (h *Hardware) CurrentBank() Bank { return h.current }

// ReadAt returns a copy of n bytes at offset within bank b, as the
// console CPU reading the same mmap'd window would observe them (i.e.
// with the low-address-bit swap already resolved). Mirrors Emulated's
// ReadAt so player.Machine can run identically against either backend.
func (h *Hardware) ReadAt(b Bank, offset int64, n int) []byte {
	out := make([]byte, n)
	base := int64(b) * BankSize
	for i := 0; i < n; i++ {
		out[i] = h.window[base+swapLowBit(offset+int64(i))]
	}
	return out
}
