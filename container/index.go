package container

import "encoding/binary"

const (
	// IndexEntryCount is the number of chunk offsets in a VideoIndex.
	IndexEntryCount = 36032

	// IndexSize is the exact on-wire size of a VideoIndex.
	IndexSize = IndexEntryCount * 4

	// IndexEndOfStream is the sentinel offset value marking end-of-stream.
	IndexEndOfStream = 0xFFFFFFFF
)

func init() {
	if IndexSize != 144128 {
		panic("container: VideoIndex layout does not sum to the spec size")
	}
}

// VideoIndex holds the per-chunk byte offsets of a compressed video,
// already byte-swapped to host order (spec.md section 9: "The
// VideoIndex is byte-swapped in place on load so downstream code uses
// host-order").
type VideoIndex struct {
	Offsets [IndexEntryCount]uint32
}

// ParseIndex decodes a big-endian IndexSize-byte buffer into host-order
// offsets.
func ParseIndex(buf []byte) (VideoIndex, error) {
	var idx VideoIndex
	if len(buf) < IndexSize {
		return idx, ErrTruncated
	}
	for i := 0; i < IndexEntryCount; i++ {
		idx.Offsets[i] = binary.BigEndian.Uint32(buf[i*4:])
	}
	return idx, nil
}

// EncodeIndex is the inverse of ParseIndex, used by tests to build
// compressed video fixtures.
func EncodeIndex(idx VideoIndex) []byte {
	buf := make([]byte, IndexSize)
	for i, v := range idx.Offsets {
		binary.BigEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

// ChunkByteRange returns the [start, end) compressed byte range of
// chunk i within the video file, per spec.md section 4.4: "offset[i+1]
// - offset[i] is the compressed byte length of chunk i". It reports ok
// = false once chunk i hits the end-of-stream sentinel.
func (idx *VideoIndex) ChunkByteRange(i int) (start, end int64, ok bool) {
	if i < 0 || i+1 >= IndexEntryCount {
		return 0, 0, false
	}
	start64 := idx.Offsets[i]
	end64 := idx.Offsets[i+1]
	if start64 == IndexEndOfStream || end64 == IndexEndOfStream {
		return 0, 0, false
	}
	return int64(start64), int64(end64), true
}
