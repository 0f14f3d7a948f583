package filter

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// normalizeTerm maps a banned term or a candidate token onto the form used for
// comparison: NFKC, trimmed, case-folded, enclosing punctuation stripped and
// inner dots and commas dropped ("A.P.I" and "api" compare equal).
func normalizeTerm(s string) string {
	s = strings.TrimSpace(norm.NFKC.String(s))
	if s == "" {
		return ""
	}
	// cases.Caser is stateful, one per call.
	s = cases.Fold().String(s)
	s = trimPunct(s)
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, unicode.IsPunct)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

type token struct {
	text  string
	space bool
}

// tokenize splits text into alternating whitespace and non-whitespace runs.
func tokenize(text string) []token {
	var tokens []token
	start := 0
	inSpace := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if i == 0 {
			inSpace = space
			continue
		}
		if space != inSpace {
			tokens = append(tokens, token{text: text[start:i], space: inSpace})
			start = i
			inSpace = space
		}
	}
	if start < len(text) {
		tokens = append(tokens, token{text: text[start:], space: inSpace})
	}
	return tokens
}
