package container

import "encoding/binary"

const (
	// ChunkHeaderSize is the fixed, exact size of one ChunkHeader.
	ChunkHeaderSize = 4 + 2 + 2 + 2 + 2

	// TileSize is the byte size of one 8x8, 4-bits-per-pixel tile.
	TileSize = 32

	// TilesPerFrame is the number of tiles in one Frame's 32x28 tile grid.
	TilesPerFrame = 896

	// FramePaletteWords is the number of ABGR4444 palette words in a Frame.
	FramePaletteWords = 16

	// FrameSize is the exact byte size of one Frame. See SPEC_FULL.md
	// Open Question Decision 5 for why this is 28704, not the 28688
	// figure in spec.md's prose total.
	FrameSize = FramePaletteWords*2 + TilesPerFrame*TileSize

	// SRAMBankSize is the size of one of the two SRAM banks.
	SRAMBankSize = 1 << 20 // 1 MiB

	// BankAlignment is the byte boundary chunk padding must respect.
	BankAlignment = 256
)

// ChunkHeader precedes every chunk's audio+frame payload in SRAM.
type ChunkHeader struct {
	AudioSampleCount uint32
	FrameCount       uint16
	Reserved         uint16
	PrePaddingBytes  uint16
	PostPaddingBytes uint16
}

// ParseChunkHeader decodes a ChunkHeaderSize-byte big-endian buffer.
func ParseChunkHeader(buf []byte) (ChunkHeader, error) {
	var h ChunkHeader
	if len(buf) < ChunkHeaderSize {
		return h, ErrTruncated
	}
	h.AudioSampleCount = binary.BigEndian.Uint32(buf[0:])
	h.FrameCount = binary.BigEndian.Uint16(buf[4:])
	h.Reserved = binary.BigEndian.Uint16(buf[6:])
	h.PrePaddingBytes = binary.BigEndian.Uint16(buf[8:])
	h.PostPaddingBytes = binary.BigEndian.Uint16(buf[10:])
	return h, nil
}

// EncodeChunkHeader is the inverse of ParseChunkHeader.
func EncodeChunkHeader(h ChunkHeader) []byte {
	buf := make([]byte, ChunkHeaderSize)
	binary.BigEndian.PutUint32(buf[0:], h.AudioSampleCount)
	binary.BigEndian.PutUint16(buf[4:], h.FrameCount)
	binary.BigEndian.PutUint16(buf[6:], h.Reserved)
	binary.BigEndian.PutUint16(buf[8:], h.PrePaddingBytes)
	binary.BigEndian.PutUint16(buf[10:], h.PostPaddingBytes)
	return buf
}

// byteRange is a half-open [Start, End) byte range, relative to the
// start of a chunk's decompressed layout in SRAM.
type byteRange struct {
	Start, End int64
}

// Len reports the length of the range.
func (r byteRange) Len() int64 { return r.End - r.Start }

// ChunkInfo is the decoded layout of one chunk, as produced by
// ParseChunk.
type ChunkInfo struct {
	Header     ChunkHeader
	AudioRange byteRange
	FrameRange byteRange
	TotalLen   int64
}

// ParseChunk decodes a chunk's header and derives the audio and frame
// byte ranges within the chunk's decompressed layout, per spec.md
// section 4.1: audio_range begins at sizeof(ChunkHeader)+pre_padding;
// frame_range begins at the end of audio; total_len accounts for both
// paddings.
func ParseChunk(buf []byte) (ChunkInfo, error) {
	h, err := ParseChunkHeader(buf)
	if err != nil {
		return ChunkInfo{}, err
	}

	audioStart := int64(ChunkHeaderSize) + int64(h.PrePaddingBytes)
	audioEnd := audioStart + int64(h.AudioSampleCount)
	frameStart := audioEnd
	frameEnd := frameStart + int64(h.FrameCount)*FrameSize
	totalLen := frameEnd + int64(h.PostPaddingBytes)

	return ChunkInfo{
		Header:     h,
		AudioRange: byteRange{audioStart, audioEnd},
		FrameRange: byteRange{frameStart, frameEnd},
		TotalLen:   totalLen,
	}, nil
}

// AlignUp rounds n up to the next multiple of BankAlignment.
func AlignUp(n int64) int64 {
	rem := n % BankAlignment
	if rem == 0 {
		return n
	}
	return n + (BankAlignment - rem)
}
