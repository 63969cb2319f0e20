package container

import (
	"bytes"
	"encoding/binary"
)

// Wire-format constants for VideoHeader. All multibyte fields are
// big-endian; see spec section 3 and section 9 ("byte order").
const (
	magicSize       = 16
	titleSize       = 128
	urlSize         = 128
	reservedSize    = 696
	paletteWords    = 16
	thumbTileCount  = 8 * 16 * 14 // 1792

	// ThumbTileWordSize is 4, not the 2 bytes a "word" would normally
	// imply, so that the fixed fields below sum to exactly HeaderSize.
	// See SPEC_FULL.md Open Question Decision 4.
	ThumbTileWordSize = 4

	// HeaderSize is the fixed, exact size of one VideoHeader on the wire.
	HeaderSize = magicSize + 2 + 2 + 2 + 4 + 4 + 4 + 4 + titleSize + urlSize +
		2 + reservedSize + paletteWords*2 + thumbTileCount*ThumbTileWordSize

	// FormatVersion is the only version byte this package understands.
	FormatVersion = 3

	// MaxCatalogEntries is the largest number of headers a catalog may hold.
	MaxCatalogEntries = 127
)

// Magic is the 16-byte literal every VideoHeader must begin with.
var Magic = [magicSize]byte{'w', 'h', 'a', 't', ' ', 'n', 'i', 'n', 't', 'e', 'n', 'd', 'o', 'n', '\'', 't'}

func init() {
	if HeaderSize != 8192 {
		panic("container: VideoHeader layout does not sum to 8 KiB")
	}
}

// VideoHeader is the decoded form of the fixed 8 KiB header that
// precedes every video, and that is concatenated (up to
// MaxCatalogEntries times) to form the catalog.
type VideoHeader struct {
	FormatVersion uint16
	FrameRate     uint16
	SampleRate    uint16
	TotalFrames   uint32
	TotalSamples  uint32
	ChunkSize     uint32
	TotalChunks   uint32

	// Title is the nul-padded ASCII title, trimmed of trailing nul bytes.
	Title string

	// RelativeURL is the nul-padded relative URL, trimmed of trailing nul
	// bytes. Only meaningful when the header was read out of a catalog.
	RelativeURL string

	// Compression is 0 for raw chunks, nonzero for RLE-compressed chunks.
	Compression uint16

	// ThumbPalette holds the 16 ABGR4444 palette words for the thumbnail.
	ThumbPalette [paletteWords]uint16

	// ThumbTiles holds the raw thumbnail tilemap words, each
	// ThumbTileWordSize bytes, still in on-wire byte order concerns
	// resolved (host uint32 here).
	ThumbTiles [thumbTileCount]uint32
}

// IsZero reports whether h is the all-zero catalog terminator header.
func (h *VideoHeader) IsZero() bool {
	return *h == VideoHeader{}
}

// ValidateHeader checks the 16-byte magic and the format version field
// of a raw header buffer. It does not touch any other field, per
// spec.md section 4.1.
func ValidateHeader(buf []byte) error {
	if len(buf) < magicSize+2 {
		return ErrTruncated
	}
	if !bytes.Equal(buf[:magicSize], Magic[:]) {
		return ErrMalformedMagic
	}
	version := binary.BigEndian.Uint16(buf[magicSize : magicSize+2])
	if version != FormatVersion {
		return ErrUnsupportedFormat
	}
	return nil
}

// ParseHeader decodes a HeaderSize-byte big-endian buffer into a
// VideoHeader. Callers must call ValidateHeader first if they want the
// MalformedMagic/UnsupportedFormat distinction; ParseHeader itself only
// checks length.
func ParseHeader(buf []byte) (VideoHeader, error) {
	var h VideoHeader
	if len(buf) < HeaderSize {
		return h, ErrTruncated
	}

	off := magicSize
	h.FormatVersion = binary.BigEndian.Uint16(buf[off:])
	off += 2
	h.FrameRate = binary.BigEndian.Uint16(buf[off:])
	off += 2
	h.SampleRate = binary.BigEndian.Uint16(buf[off:])
	off += 2
	h.TotalFrames = binary.BigEndian.Uint32(buf[off:])
	off += 4
	h.TotalSamples = binary.BigEndian.Uint32(buf[off:])
	off += 4
	h.ChunkSize = binary.BigEndian.Uint32(buf[off:])
	off += 4
	h.TotalChunks = binary.BigEndian.Uint32(buf[off:])
	off += 4

	h.Title = trimNuls(buf[off : off+titleSize])
	off += titleSize
	h.RelativeURL = trimNuls(buf[off : off+urlSize])
	off += urlSize

	h.Compression = binary.BigEndian.Uint16(buf[off:])
	off += 2
	off += reservedSize

	for i := 0; i < paletteWords; i++ {
		h.ThumbPalette[i] = binary.BigEndian.Uint16(buf[off:])
		off += 2
	}
	for i := 0; i < thumbTileCount; i++ {
		h.ThumbTiles[i] = beUint(buf[off : off+ThumbTileWordSize])
		off += ThumbTileWordSize
	}

	return h, nil
}

// EncodeHeader writes h as a HeaderSize-byte big-endian buffer, the
// inverse of ParseHeader. Used by tests and by the emulation harness
// that serves a synthetic catalog/header.
func EncodeHeader(h VideoHeader) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf, Magic[:])
	off := magicSize
	binary.BigEndian.PutUint16(buf[off:], h.FormatVersion)
	off += 2
	binary.BigEndian.PutUint16(buf[off:], h.FrameRate)
	off += 2
	binary.BigEndian.PutUint16(buf[off:], h.SampleRate)
	off += 2
	binary.BigEndian.PutUint32(buf[off:], h.TotalFrames)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], h.TotalSamples)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], h.ChunkSize)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], h.TotalChunks)
	off += 4

	copy(buf[off:off+titleSize], h.Title)
	off += titleSize
	copy(buf[off:off+urlSize], h.RelativeURL)
	off += urlSize

	binary.BigEndian.PutUint16(buf[off:], h.Compression)
	off += 2
	off += reservedSize

	for i := 0; i < paletteWords; i++ {
		binary.BigEndian.PutUint16(buf[off:], h.ThumbPalette[i])
		off += 2
	}
	for i := 0; i < thumbTileCount; i++ {
		putBeUint(buf[off:off+ThumbTileWordSize], h.ThumbTiles[i])
		off += ThumbTileWordSize
	}

	return buf
}

// RelativeURLField extracts and validates the relative_url field out of
// a raw HeaderSize-byte buffer, returning ErrNoURLTerminator if the
// 128-byte field has no nul terminator (spec.md section 4.4 step 2).
func RelativeURLField(buf []byte) (string, error) {
	if len(buf) < HeaderSize {
		return "", ErrTruncated
	}
	field := buf[magicSize+2+2+2+4+4+4+4+titleSize : magicSize+2+2+2+4+4+4+4+titleSize+urlSize]
	i := bytes.IndexByte(field, 0)
	if i < 0 {
		return "", ErrNoURLTerminator
	}
	return string(field[:i]), nil
}

func trimNuls(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

// beUint reads a big-endian unsigned integer of 1-4 bytes.
func beUint(b []byte) uint32 {
	var v uint32
	for _, c := range b {
		v = v<<8 | uint32(c)
	}
	return v
}

// putBeUint writes v into b (1-4 bytes) in big-endian order.
func putBeUint(b []byte, v uint32) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
