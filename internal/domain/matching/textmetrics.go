package matching

import (
	"math"

	"github.com/hbollon/go-edlib"
)

// BigramSet returns the set of adjacent character pairs of s.  Strings shorter
// than two runes yield an empty set.
func BigramSet(s string) map[string]bool {
	runes := []rune(s)
	if len(runes) < 2 {
		return map[string]bool{}
	}
	set := make(map[string]bool, len(runes)-1)
	for i := 0; i < len(runes)-1; i++ {
		set[string(runes[i:i+2])] = true
	}
	return set
}

// JaccardSets computes |a∩b| / |a∪b| for two string sets, returning 1.0 when
// both are empty.
func JaccardSets(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	inter := 0
	for k := range a {
		if b[k] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// BigramJaccard is the Jaccard similarity over character bigrams.
func BigramJaccard(a, b string) float64 {
	return JaccardSets(BigramSet(a), BigramSet(b))
}

// LevenshteinSimilarity returns 1 - distance/maxLen in [0,1].  Two empty
// strings are identical (1.0).  When the lengths differ by more than half of
// the longer string the function short-circuits to 0; the full edit distance
// for such pairs is guaranteed to be at least the length difference, so the
// early exit agrees with the full computation on dissimilarity.
func LevenshteinSimilarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 && lb == 0 {
		return 1.0
	}
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	diff := la - lb
	if diff < 0 {
		diff = -diff
	}
	if float64(diff) > 0.5*float64(maxLen) {
		return 0
	}
	dist := edlib.LevenshteinDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}

// Sigmoid is the logistic function 1/(1+e^-x).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
