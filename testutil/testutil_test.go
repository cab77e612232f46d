package testutil

import (
	"testing"

	"github.com/hupe1980/vecbucket/distance"
	"github.com/hupe1980/vecbucket/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformMatrix(t *testing.T) {
	rng := NewRNG(4711)

	m := rng.UniformMatrix(8, 32)

	assert.Equal(t, 8, m.Rows())
	assert.Equal(t, 32, m.Dim)
	for _, v := range m.Data {
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestUnitMatrix(t *testing.T) {
	rng := NewRNG(4711)

	m := rng.UnitMatrix(8, 32)

	for i := 0; i < m.Rows(); i++ {
		assert.InDelta(t, 1.0, distance.Dot(m.Row(i), m.Row(i)), 1e-4)
	}
}

func TestClusteredMatrix(t *testing.T) {
	rng := NewRNG(1)

	m := rng.ClusteredMatrix(40, 16, 4, 0.05)
	require.Equal(t, 40, m.Rows())

	// Rows of the same cluster are closer to each other than to other clusters.
	same := distance.Dot(m.Row(0), m.Row(4))
	assert.Greater(t, same, float32(0.8))
}

func TestDeterminism(t *testing.T) {
	a := NewRNG(99).UnitMatrix(4, 8)
	b := NewRNG(99).UnitMatrix(4, 8)
	assert.Equal(t, a, b)
}

func TestExactTopK(t *testing.T) {
	data, err := model.MatrixFromRows([][]float32{
		{1, 0},
		{0, 1},
		{0.6, 0.8},
		{-1, 0},
	})
	require.NoError(t, err)
	queries, err := model.MatrixFromRows([][]float32{{1, 0}})
	require.NoError(t, err)

	assert.Equal(t, [][]int{{0, 2, 1}}, ExactTopK(data, queries, 3))
	assert.Equal(t, [][]int{{0, 2, 1, 3}}, ExactTopK(data, queries, 10))
}

func TestSequence(t *testing.T) {
	assert.Equal(t, []int64{5, 6, 7}, Sequence(3, 5))
}
