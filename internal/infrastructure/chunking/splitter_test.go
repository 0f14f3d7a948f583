package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSplitRoundTripsAndRespectsRuneBoundaries(t *testing.T) {
	text := strings.Repeat("şifrə gizli ", 50) + "  trailing  "
	s := NewSplitter(7)

	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != text {
		t.Fatalf("chunks do not reassemble the input")
	}
	for i, chunk := range chunks {
		if len(chunk) > 7 {
			t.Fatalf("chunk %d has %d bytes, limit 7", i, len(chunk))
		}
		if !utf8.ValidString(chunk) {
			t.Fatalf("chunk %d splits a rune: %q", i, chunk)
		}
	}
}

func TestSplitEdgeCases(t *testing.T) {
	if got := NewSplitter(10).Split(""); got != nil {
		t.Fatalf("expected nil for empty text, got %v", got)
	}
	if got := NewSplitter(10).Split("short"); len(got) != 1 || got[0] != "short" {
		t.Fatalf("expected single chunk, got %v", got)
	}
	if s := NewSplitter(0); s.MaxBytes != DefaultMaxBytes {
		t.Fatalf("expected default max bytes, got %d", s.MaxBytes)
	}
	if s := NewSplitter(1); s.MaxBytes != utf8.UTFMax {
		t.Fatalf("expected max bytes raised to %d, got %d", utf8.UTFMax, s.MaxBytes)
	}
}
