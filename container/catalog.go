package container

// ParseCatalog splits the byte-concatenation of up to MaxCatalogEntries
// headers into individual VideoHeader values, stopping at the first
// all-zero header (the terminator) or at MaxCatalogEntries, whichever
// comes first. It mirrors the teacher's "enumerate up to a bound, stop
// at a sentinel" shape (device.GetAllDevicePaths), applied to catalog
// slots instead of device directory entries.
func ParseCatalog(buf []byte) ([]VideoHeader, error) {
	var headers []VideoHeader
	for i := 0; i < MaxCatalogEntries; i++ {
		start := i * HeaderSize
		end := start + HeaderSize
		if end > len(buf) {
			break
		}
		h, err := ParseHeader(buf[start:end])
		if err != nil {
			return headers, err
		}
		if h.IsZero() {
			break
		}
		headers = append(headers, h)
	}
	return headers, nil
}

// BuildCatalog is the inverse of ParseCatalog: it concatenates headers
// and, if requested, appends a zero-header terminator. Used by tests
// and the emulation harness's synthetic origin.
func BuildCatalog(headers []VideoHeader, terminate bool) []byte {
	buf := make([]byte, 0, (len(headers)+1)*HeaderSize)
	for _, h := range headers {
		buf = append(buf, EncodeHeader(h)...)
	}
	if terminate {
		buf = append(buf, EncodeHeader(VideoHeader{})...)
	}
	return buf
}

// CatalogOffset returns the byte offset of catalog entry index within
// the catalog, as used by streamer.START_VIDEO step 1
// (index * HeaderSize).
func CatalogOffset(index int) int64 {
	return int64(index) * int64(HeaderSize)
}
