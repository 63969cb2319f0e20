package transport

import "github.com/kinetoscope/streamer/sram"

// Cartridge-relative address constants for the SRAM window (spec.md
// section 6).
const (
	SRAMWindowStart = 0x200000
	SRAMWindowEnd   = 0x400000
	SRAMBankSize    = sram.BankSize
)

// BankForAddress translates a cartridge-relative address within the
// SRAM window into a (bank, offset) pair. ok is false if addr falls
// outside the window.
func BankForAddress(addr uint32) (bank sram.Bank, offset int64, ok bool) {
	if addr < SRAMWindowStart || addr >= SRAMWindowEnd {
		return 0, 0, false
	}
	rel := addr - SRAMWindowStart
	if rel < SRAMBankSize {
		return sram.Bank0, int64(rel), true
	}
	return sram.Bank1, int64(rel - SRAMBankSize), true
}

// AddressForBank is the inverse of BankForAddress.
func AddressForBank(b sram.Bank, offset int64) uint32 {
	return uint32(SRAMWindowStart) + uint32(b)*uint32(SRAMBankSize) + uint32(offset)
}
