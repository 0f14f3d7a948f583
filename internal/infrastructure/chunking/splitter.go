// Package chunking cuts a document into upload chunks whose in-order
// concatenation reproduces the input byte for byte.
package chunking

import "unicode/utf8"

const DefaultMaxBytes = 64 << 10

type Splitter struct {
	MaxBytes int
}

func NewSplitter(maxBytes int) *Splitter {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if maxBytes < utf8.UTFMax {
		maxBytes = utf8.UTFMax
	}
	return &Splitter{MaxBytes: maxBytes}
}

// Split never cuts inside a UTF-8 sequence, so every chunk is valid text when
// the input is. Chunks are not trimmed.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	out := make([]string, 0, len(text)/s.MaxBytes+1)
	for start := 0; start < len(text); {
		end := start + s.MaxBytes
		if end >= len(text) {
			out = append(out, text[start:])
			break
		}
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			// Invalid encoding with no rune start in range.
			end = start + s.MaxBytes
		}
		out = append(out, text[start:end])
		start = end
	}
	return out
}
