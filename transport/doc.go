// Package transport implements the memory-mapped control window
// (spec.md section 4.6): four 16-bit ports plus the sync tokens that
// hand control between the console and the streamer, with the
// big-endian byte/word access semantics spec.md section 6 requires.
// It also carries the address arithmetic for the 2 MiB SRAM window
// shared with package sram.
package transport
