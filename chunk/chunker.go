package chunk

import (
	"strings"
	"unicode"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// Span is one chunk of source text. Start and End are rune offsets into the
// input, so a span can always be traced back to its origin.
type Span struct {
	Text  string
	Start int
	End   int
}

// Chunker cuts text into bounded, overlapping spans. Splitting prefers
// sentence endings, then word boundaries, then a hard cut when a single run
// of text exceeds the chunk size. Same input and parameters always produce
// the same spans.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{size: size, overlap: overlap}
}

func (c *Chunker) Split(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)

	var spans []Span
	start := 0
	for start < len(runes) {
		end := start + c.size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = c.boundary(runes, start, end)
		}

		if s, e := trim(runes, start, end); e > s {
			spans = append(spans, Span{Text: string(runes[s:e]), Start: s, End: e})
		}

		if end == len(runes) {
			break
		}
		next := end - c.overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return spans
}

// boundary picks a cut position at or before end: a sentence ending within
// the last fifth of the window, a whitespace within the last tenth, or end
// itself.
func (c *Chunker) boundary(runes []rune, start, end int) int {
	sentenceFloor := end - c.size/5
	for i := end - 1; i > start && i >= sentenceFloor; i-- {
		switch runes[i] {
		case '.', '!', '?', '\n':
			return i + 1
		}
	}
	wordFloor := end - c.size/10
	for i := end - 1; i > start && i >= wordFloor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return end
}

func trim(runes []rune, start, end int) (int, int) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	return start, end
}
