// Package sram implements the bank-scoped, append-only SRAM write
// abstraction described in spec.md section 4.2: start_bank, write, and
// flush_and_release, plus the big-endian/low-address-bit-XOR byte
// placement quirk of the real hardware bus (spec.md section 9). Two
// implementations are provided: Emulated, an in-memory buffer used by
// tests and the CLI emulator, and Hardware, which mmaps the real
// cartridge SRAM and control windows.
package sram
