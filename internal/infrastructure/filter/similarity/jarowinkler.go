package similarity

const (
	winklerPrefixLimit = 4
	winklerBoost       = 0.1
)

// JaroWinkler is the Jaro score with a common-prefix boost.
type JaroWinkler struct{}

func (JaroWinkler) Similarity(a, b string) float64 {
	ra, rb, score, done := prepare(a, b)
	if done {
		return score
	}

	jaro := jaroScore(ra, rb)
	if jaro == 0 {
		return 0
	}

	prefix := 0
	for i := 0; i < min(winklerPrefixLimit, len(ra), len(rb)); i++ {
		if ra[i] != rb[i] {
			break
		}
		prefix++
	}

	return clamp01(jaro + float64(prefix)*winklerBoost*(1-jaro))
}

func jaroScore(a, b []rune) float64 {
	window := max(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))

	matches := 0
	for i := range a {
		lo := max(0, i-window)
		hi := min(i+window+1, len(b))
		for j := lo; j < hi; j++ {
			if bMatched[j] || a[i] != b[j] {
				continue
			}
			aMatched[i] = true
			bMatched[j] = true
			matches++
			break
		}
	}
	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := range a {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2
	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3
}
