// Package similarity scores free-text field agreement between records
// from different sources.
package similarity

import (
	"regexp"
	"strings"
)

var punctuation = regexp.MustCompile(`[^\w\s]`)

// WordOverlap returns the fraction of a's distinct words found in b, in
// [0,1]. Both inputs are lowercased and stripped of punctuation first.
// Returns 0 when either input is empty. Direction matters: the score
// always counts words of a in b, so WordOverlap(a, b) and
// WordOverlap(b, a) agree only when both strings carry the same words.
func WordOverlap(a, b string) float64 {
	wordsA := tokenize(a)
	wordsB := tokenize(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setB := make(map[string]struct{}, len(wordsB))
	for _, w := range wordsB {
		setB[w] = struct{}{}
	}

	matched := 0
	seen := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		if _, ok := setB[w]; ok {
			matched++
		}
	}

	return float64(matched) / float64(len(seen))
}

func tokenize(s string) []string {
	cleaned := punctuation.ReplaceAllString(strings.ToLower(s), "")
	return strings.Fields(cleaned)
}
