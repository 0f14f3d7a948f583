// Package filter removes banned words and phrases from text using exact
// phrase matching followed by a fuzzy per-token scan.
package filter

import (
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/content-filter/internal/infrastructure/filter/similarity"
)

// Below this many tokens the scan stays on the calling goroutine.
const parallelMinTokens = 512

type Options struct {
	// Parallelism caps the goroutines used for one token scan. Zero means GOMAXPROCS.
	Parallelism int
	Logger      *slog.Logger
}

// Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	metric      similarity.Metric
	tokens      []string
	phrases     []phrase
	parallelism int
	logger      *slog.Logger
}

type Stats struct {
	Tokens  int `json:"tokens"`
	Phrases int `json:"phrases"`
}

func New(terms []string, metric similarity.Metric) (*Engine, error) {
	return NewWithOptions(terms, metric, Options{})
}

func NewWithOptions(terms []string, metric similarity.Metric, options Options) (*Engine, error) {
	if metric == nil {
		metric = similarity.JaroWinkler{}
	}
	parallelism := options.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		metric:      metric,
		parallelism: parallelism,
		logger:      logger,
	}

	seenTokens := make(map[string]struct{})
	seenPhrases := make(map[string]struct{})
	for _, raw := range terms {
		term := normalizeTerm(raw)
		if term == "" {
			continue
		}
		rawWords := strings.Fields(raw)
		if len(rawWords) == 1 {
			if _, ok := seenTokens[term]; ok {
				continue
			}
			seenTokens[term] = struct{}{}
			e.tokens = append(e.tokens, term)
			continue
		}

		// Phrases match the term as written; the normalized spelling is added
		// when it differs so both forms are caught.
		for _, words := range [][]string{rawWords, strings.Fields(term)} {
			if len(words) < 2 {
				continue
			}
			key := strings.ToLower(strings.Join(words, " "))
			if _, ok := seenPhrases[key]; ok {
				continue
			}
			seenPhrases[key] = struct{}{}
			p, err := compilePhrase(words)
			if err != nil {
				return nil, fmt.Errorf("compile phrase %q: %w", raw, err)
			}
			e.phrases = append(e.phrases, p)
		}
	}
	return e, nil
}

func (e *Engine) Stats() Stats {
	return Stats{Tokens: len(e.tokens), Phrases: len(e.phrases)}
}

// Filter returns text with banned phrases and near-duplicates of banned
// tokens removed. Surviving tokens are joined by single spaces.
//
// Passes repeat until the output is stable, so removing a token can never
// expose a phrase that a second call would catch.
func (e *Engine) Filter(text string, threshold float64) string {
	if text == "" {
		return ""
	}
	threshold = clampThreshold(threshold)

	out := e.filterOnce(text, threshold)
	for {
		next := e.filterOnce(out, threshold)
		if next == out {
			return out
		}
		out = next
	}
}

func (e *Engine) filterOnce(text string, threshold float64) string {
	for _, p := range e.phrases {
		text = p.replace(text)
	}

	tokens := tokenize(text)
	removed := make([]bool, len(tokens))
	e.scan(tokens, removed, threshold)

	var b strings.Builder
	b.Grow(len(text))
	for i, tok := range tokens {
		if tok.space || removed[i] {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(tok.text)
	}
	return strings.TrimSpace(b.String())
}

// scan marks removed tokens. Each goroutine owns a disjoint index range of
// removed, so no synchronization is needed beyond the final Wait.
func (e *Engine) scan(tokens []token, removed []bool, threshold float64) {
	n := len(tokens)
	if n < parallelMinTokens || e.parallelism == 1 {
		e.scanRange(tokens, removed, 0, n, threshold)
		return
	}

	size := (n + e.parallelism - 1) / e.parallelism
	var g errgroup.Group
	g.SetLimit(e.parallelism)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		g.Go(func() error {
			e.scanRange(tokens, removed, lo, hi, threshold)
			return nil
		})
	}
	_ = g.Wait()
}

func (e *Engine) scanRange(tokens []token, removed []bool, lo, hi int, threshold float64) {
	for i := lo; i < hi; i++ {
		if tokens[i].space {
			continue
		}
		removed[i] = e.isBanned(tokens[i].text, threshold)
	}
}

func (e *Engine) isBanned(raw string, threshold float64) bool {
	candidate := normalizeTerm(raw)
	if candidate == "" {
		return true
	}
	for _, term := range e.tokens {
		score, ok := e.score(candidate, term)
		if !ok {
			// fail-open: keep the token
			return false
		}
		if score >= threshold {
			return true
		}
	}
	return false
}

func (e *Engine) score(candidate, term string) (score float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("similarity_failed", "token", candidate, "term", term, "panic", fmt.Sprint(r))
			score, ok = 0, false
		}
	}()
	score = e.metric.Similarity(candidate, term)
	if math.IsNaN(score) {
		e.logger.Warn("similarity_failed", "token", candidate, "term", term, "error", "NaN score")
		return 0, false
	}
	return score, true
}

func clampThreshold(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 1
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
