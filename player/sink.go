package player

// FrameSink is the console's tile/palette upload pipeline: an external
// collaborator explicitly out of scope for this module (spec.md
// section 1, "the console-side rendering pipeline"). The player's only
// obligation is to call the three uploads in the order spec.md section
// 4.5 step 7 requires — tiles, then palette, then tile map — so a
// partial frame is never visible.
type FrameSink interface {
	// UploadTiles uploads the frame's raw 8x8, 4-bit-per-pixel tile
	// pixel data (896 tiles * 32 bytes, spec.md section 3).
	UploadTiles(tiles []byte)

	// UploadPalette uploads the frame's 16 ABGR4444 palette words.
	UploadPalette(palette [16]uint16)

	// UploadTileMap commits the uploaded tiles and palette to the
	// screen. Kinetoscope frames always cover the same fixed tile
	// positions, so there is no per-frame tile-map payload to pass —
	// this call is the "go live" signal the hardware's scan-out needs
	// after the first two uploads land.
	UploadTileMap()
}

// NullFrameSink discards every upload. Used by tests that only care
// about the player's state transitions and timing, not pixels.
type NullFrameSink struct {
	TilesUploaded   int
	PalettesUploaded int
	Committed       int
}

// UploadTiles implements FrameSink.
func (s *NullFrameSink) UploadTiles(tiles []byte) { s.TilesUploaded++ }

// UploadPalette implements FrameSink.
func (s *NullFrameSink) UploadPalette(palette [16]uint16) { s.PalettesUploaded++ }

// UploadTileMap implements FrameSink.
func (s *NullFrameSink) UploadTileMap() { s.Committed++ }
