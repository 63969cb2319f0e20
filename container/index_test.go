package container

import "testing"

func TestIndexEncodeParseRoundTrip(t *testing.T) {
	var idx VideoIndex
	idx.Offsets[0] = 0
	idx.Offsets[1] = 1000
	idx.Offsets[2] = 2500
	idx.Offsets[3] = IndexEndOfStream

	buf := EncodeIndex(idx)
	if len(buf) != IndexSize {
		t.Fatalf("EncodeIndex produced %d bytes, want %d", len(buf), IndexSize)
	}

	got, err := ParseIndex(buf)
	if err != nil {
		t.Fatalf("ParseIndex: %v", err)
	}
	if got != idx {
		t.Error("round trip mismatch")
	}
}

func TestParseIndexTruncated(t *testing.T) {
	if _, err := ParseIndex(make([]byte, IndexSize-1)); err != ErrTruncated {
		t.Errorf("got %v, want ErrTruncated", err)
	}
}

func TestChunkByteRange(t *testing.T) {
	var idx VideoIndex
	idx.Offsets[0] = 0
	idx.Offsets[1] = 1500
	idx.Offsets[2] = 3200
	idx.Offsets[3] = IndexEndOfStream

	t.Run("chunk 0", func(t *testing.T) {
		start, end, ok := idx.ChunkByteRange(0)
		if !ok || start != 0 || end != 1500 {
			t.Errorf("got (%d, %d, %v), want (0, 1500, true)", start, end, ok)
		}
	})

	t.Run("chunk 1", func(t *testing.T) {
		start, end, ok := idx.ChunkByteRange(1)
		if !ok || start != 1500 || end != 3200 {
			t.Errorf("got (%d, %d, %v), want (1500, 3200, true)", start, end, ok)
		}
	})

	t.Run("at end-of-stream sentinel", func(t *testing.T) {
		if _, _, ok := idx.ChunkByteRange(2); ok {
			t.Error("expected ok=false once the range touches the end-of-stream sentinel")
		}
	})

	t.Run("out of bounds", func(t *testing.T) {
		if _, _, ok := idx.ChunkByteRange(-1); ok {
			t.Error("expected ok=false for a negative index")
		}
		if _, _, ok := idx.ChunkByteRange(IndexEntryCount); ok {
			t.Error("expected ok=false for an index at the entry count")
		}
	})
}
