package player

import "github.com/kinetoscope/streamer/container"

// Entry is one menu-visible catalog item.
type Entry struct {
	Title string
	Index int
}

// parseCatalog decodes a catalog read back from SRAM bank 0 (spec.md
// section 4.5: "parses it as a sequence of 8 KiB headers terminated by
// a zero header or hitting 127 entries").
func parseCatalog(buf []byte) ([]Entry, error) {
	headers, err := container.ParseCatalog(buf)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(headers))
	for i, h := range headers {
		entries[i] = Entry{Title: h.Title, Index: i}
	}
	return entries, nil
}
