package similarity

// Levenshtein is unit-cost edit distance normalized by the longer input.
type Levenshtein struct{}

func (Levenshtein) Similarity(a, b string) float64 {
	ra, rb, score, done := prepare(a, b)
	if done {
		return score
	}
	dist := editDistance(ra, rb)
	return clamp01(1 - float64(dist)/float64(max(len(ra), len(rb))))
}

func editDistance(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
