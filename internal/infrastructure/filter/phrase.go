package filter

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const nonWordRun = `[^\p{L}\p{M}\p{N}_]+`

// phrase matches a multi-word banned term with any run of non-word characters
// between its words. A match must not start or end inside a larger word, and
// swallows the punctuation run that follows it.
type phrase struct {
	raw string
	re  *regexp.Regexp
}

func compilePhrase(words []string) (phrase, error) {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	re, err := regexp.Compile(`(?is)` + strings.Join(quoted, nonWordRun))
	if err != nil {
		return phrase{}, err
	}
	return phrase{raw: strings.Join(words, " "), re: re}, nil
}

// replace substitutes every boundary-respecting match with a single space.
func (p phrase) replace(text string) string {
	var b strings.Builder
	matched := false
	last := 0
	from := 0
	for from <= len(text) {
		loc := p.re.FindStringIndex(text[from:])
		if loc == nil {
			break
		}
		start, end := from+loc[0], from+loc[1]
		if !wordBoundaryBefore(text, start) || !wordBoundaryAfter(text, end) {
			_, size := utf8.DecodeRuneInString(text[start:])
			if size == 0 {
				break
			}
			from = start + size
			continue
		}
		end = skipPunct(text, end)

		if !matched {
			b.Grow(len(text))
			matched = true
		}
		b.WriteString(text[last:start])
		b.WriteByte(' ')
		last = end
		from = end
	}
	if !matched {
		return text
	}
	b.WriteString(text[last:])
	return b.String()
}

func wordBoundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func wordBoundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

func skipPunct(text string, i int) int {
	for i < len(text) {
		r, size := utf8.DecodeRuneInString(text[i:])
		if !unicode.IsPunct(r) {
			break
		}
		i += size
	}
	return i
}
