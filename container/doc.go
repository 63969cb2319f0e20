// Package container implements the Kinetoscope video container format:
// the video header, the optional chunk index, chunk framing, and the
// RLE codec used to compress chunk payloads. Every function here is a
// pure transform over byte slices; nothing in this package touches
// SRAM, HTTP, or hardware.
package container
