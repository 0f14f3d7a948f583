// Package similarity scores how alike two normalized strings are.
//
// Every metric is case-insensitive and symmetric, and returns a score in
// [0,1]. Case-insensitive equality, including two empty strings, scores 1.
// An empty string against a non-empty one scores 0.
package similarity

import (
	"fmt"
	"strings"

	"github.com/kirillkom/content-filter/internal/core/domain"
)

type Metric interface {
	Similarity(a, b string) float64
}

const (
	NameJaroWinkler = "jaro-winkler"
	NameLevenshtein = "levenshtein"
)

// Parse resolves a configured metric name.
func Parse(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameJaroWinkler, "jarowinkler", "jaro_winkler":
		return JaroWinkler{}, nil
	case NameLevenshtein:
		return Levenshtein{}, nil
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse metric", fmt.Errorf("unknown similarity metric %q", name))
	}
}

// prepare handles the shared edge cases. When done is true the score is final.
// Otherwise the lower-cased rune slices are returned in a canonical order so
// that metrics stay symmetric regardless of argument order.
func prepare(a, b string) (ra, rb []rune, score float64, done bool) {
	if strings.EqualFold(a, b) {
		return nil, nil, 1, true
	}
	if a == "" || b == "" {
		return nil, nil, 0, true
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a > b {
		a, b = b, a
	}
	return []rune(a), []rune(b), 0, false
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
