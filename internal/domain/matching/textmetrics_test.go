package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBigramSet(t *testing.T) {
	assert.Empty(t, BigramSet(""))
	assert.Empty(t, BigramSet("a"))
	assert.Equal(t, map[string]bool{"mi": true, "il": true, "lk": true}, BigramSet("milk"))
}

func TestBigramJaccard(t *testing.T) {
	assert.Equal(t, 1.0, BigramJaccard("milk", "milk"))
	assert.Equal(t, 1.0, BigramJaccard("", ""))
	assert.Equal(t, 0.0, BigramJaccard("milk", "soda"))
	sim := BigramJaccard("chocolate", "chocolate bar")
	assert.Greater(t, sim, 0.5)
	assert.Less(t, sim, 1.0)
}

func TestLevenshteinSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, LevenshteinSimilarity("", ""))
	assert.Equal(t, 1.0, LevenshteinSimilarity("milk", "milk"))
	assert.InDelta(t, 0.75, LevenshteinSimilarity("milk", "mill"), 1e-9)
	assert.Equal(t, 0.0, LevenshteinSimilarity("milk", ""))
}

func TestLevenshteinSimilarity_EarlyExitAgreesOnSign(t *testing.T) {
	// Length mismatch beyond half the longer string short-circuits; the edit
	// distance for such pairs is at least the length gap, so the full result
	// would also report strong dissimilarity.
	a, b := "oz", "great value whole milk one gallon"
	assert.Equal(t, 0.0, LevenshteinSimilarity(a, b))

	dist := len(b) - len(a)
	full := 1.0 - float64(dist)/float64(len(b))
	assert.Less(t, full, 0.5)
}

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid(0))
	assert.Greater(t, Sigmoid(2), 0.85)
	assert.Less(t, Sigmoid(-2), 0.15)
	assert.Greater(t, Sigmoid(100), 0.999)
}
