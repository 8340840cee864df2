package nextword

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOracle_NearestNeighbors_RanksBySimilarity(t *testing.T) {
	vocab := []string{"king", "queen", "car"}
	embeddings := [][]float64{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 0, 1},
	}
	o := New(vocab, embeddings)

	neighbors := o.NearestNeighbors("king", 2)
	assert.Equal(t, []string{"queen", "car"}, neighbors, "queen is closer to king than car by cosine similarity")
}

func TestOracle_NearestNeighbors_UnknownWord(t *testing.T) {
	o := New([]string{"king"}, [][]float64{{1, 0}})
	assert.Nil(t, o.NearestNeighbors("unknown", 2))
}

func TestOracle_NearestNeighbors_ZeroK(t *testing.T) {
	o := New([]string{"king", "queen"}, [][]float64{{1, 0}, {0, 1}})
	assert.Nil(t, o.NearestNeighbors("king", 0))
}

func TestNew_PanicsOnMismatchedLengths(t *testing.T) {
	assert.Panics(t, func() {
		New([]string{"a", "b"}, [][]float64{{1, 0}})
	})
}
