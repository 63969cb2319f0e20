package sram

import (
	"bytes"
	"os"
	"testing"
)

// newTestHardware backs a Hardware with a regular temp file instead of
// the real /dev/mem-style cartridge device: mmap does not care that the
// fd isn't a character device, so this exercises the real mmap/munmap
// path without needing actual hardware.
func newTestHardware(t *testing.T) *Hardware {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "sram-window")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	if err := f.Truncate(sramWindowOffset + sramWindowSize); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	f.Close()

	h, err := OpenHardware(f.Name())
	if err != nil {
		t.Fatalf("OpenHardware: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestHardwareWriteAndReadBack(t *testing.T) {
	h := newTestHardware(t)
	h.StartBank(Bank0)
	payload := []byte("cartridge")
	if n, err := h.Write(payload); err != nil || n != len(payload) {
		t.Fatalf("Write = (%d, %v), want (%d, nil)", n, err, len(payload))
	}
	h.FlushAndRelease()

	got := h.ReadAt(Bank0, 0, len(payload))
	if !bytes.Equal(got, payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestHardwareMatchesEmulatedByteLayout(t *testing.T) {
	h := newTestHardware(t)
	e := NewEmulated()

	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	for _, w := range []BankWriter{h, e} {
		w.StartBank(Bank1)
		w.Write(payload)
		w.FlushAndRelease()
	}

	hGot := h.ReadAt(Bank1, 0, len(payload))
	eGot := e.ReadAt(Bank1, 0, len(payload))
	if !bytes.Equal(hGot, eGot) {
		t.Errorf("Hardware and Emulated disagree on byte layout: %v vs %v", hGot, eGot)
	}
}

func TestHardwareWriteRequiresStartBank(t *testing.T) {
	h := newTestHardware(t)
	if _, err := h.Write([]byte{1}); err != ErrNoBankStarted {
		t.Errorf("got %v, want ErrNoBankStarted", err)
	}
}

func TestHardwareOverflow(t *testing.T) {
	h := newTestHardware(t)
	h.StartBank(Bank0)
	if _, err := h.Write(make([]byte, BankSize+1)); err != ErrOverflow {
		t.Errorf("got %v, want ErrOverflow", err)
	}
}
