package ocr

// Entry pairs a stored image (PNG) with the text extracted from it.
type Entry struct {
	Image []byte
	Text  string
}

// History is an append-only log of successful extractions for one session.
//
// There is no eviction: it grows for as long as the owning session lives.
// Whoever hosts sessions decides how long that is.
type History struct {
	entries []Entry
}

// Append records an extraction. Duplicates are kept.
func (h *History) Append(image []byte, text string) {
	h.entries = append(h.entries, Entry{Image: image, Text: text})
}

// List returns a snapshot of all entries in insertion order.
func (h *History) List() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}
