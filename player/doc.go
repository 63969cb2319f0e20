// Package player implements the console-side half of Kinetoscope: the
// Idle/Setup/Menu/Player/Error state machine that drives the streamer
// over the memory-mapped transport and synchronizes frame display to
// the audio DMA pointer.
package player
