package bucket

import (
	"context"
	"testing"

	"github.com/hupe1980/vecbucket/model"
	"github.com/hupe1980/vecbucket/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBruteForce_HandComputedRanking(t *testing.T) {
	ctx := context.Background()
	data, err := model.MatrixFromRows([][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{0.5, 0.5, 0},
		{0.25, 0, 0.75},
	})
	require.NoError(t, err)
	queries, err := model.MatrixFromRows([][]float32{
		{1, 0, 0},
		{0, 0, 1},
	})
	require.NoError(t, err)

	b, err := NewBruteForce()
	require.NoError(t, err)
	_, err = b.Build(ctx, data, []int64{10, 11, 12, 13, 14}, TrainOptions{})
	require.NoError(t, err)

	res, err := b.Search(ctx, queries, 3, SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 13, 14, 12, 14, 10}, res.IDs)
	assert.Equal(t, []int{0, 3, 4, 2, 4, 0}, res.Rows)
	assert.Equal(t, []float32{0, 0.5, 0.75, 0, 0.25, 1}, res.Distances)
	assert.Equal(t, model.Computations(2*5), res.DistanceComputations)
}

func TestBruteForce_MatchesExact(t *testing.T) {
	f := newFixture(t, 300, 20, 16)
	b := f.build(t, KindBruteForce, 0)

	res, err := b.Search(context.Background(), f.queries, 10, SearchOptions{})
	require.NoError(t, err)

	truth := testutil.ExactTopK(f.data, f.queries, 10)
	for q := range truth {
		assert.Equal(t, truth[q], res.QueryRows(q))
		for i, row := range truth[q] {
			assert.Equal(t, f.ids[row], res.QueryIDs(q)[i])
		}
	}
}

func TestBruteForce_RoutingIgnored(t *testing.T) {
	f := newFixture(t, 50, 6, 8)
	b := f.build(t, KindBruteForce, 0)

	routing := []int{7, 1, 7, 3, 1, 99}
	res, err := b.SearchWithRouting(context.Background(), f.queries, 4, routing, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, routing, res.Applied)

	plain, err := b.Search(context.Background(), f.queries, 4, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, plain.IDs, res.IDs)
	assert.Equal(t, plain.Distances, res.Distances)
	assert.Equal(t, model.Computations(6*50), res.DistanceComputations)
}

func TestBruteForce_PadsWhenKExceedsCollection(t *testing.T) {
	data, err := model.MatrixFromRows([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	b, err := NewBruteForce()
	require.NoError(t, err)
	_, err = b.Add(context.Background(), data, []int64{5, 6}, AddOptions{})
	require.NoError(t, err)

	res, err := b.Search(context.Background(), data.Select([]int{1}), 3, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 5, model.NoID}, res.IDs)
}

func TestBruteForce_Preconditions(t *testing.T) {
	ctx := context.Background()
	b, err := NewBruteForce()
	require.NoError(t, err)

	t.Run("SearchBeforeAdd", func(t *testing.T) {
		_, err := b.Search(ctx, model.NewMatrix(1, 3), 1, SearchOptions{})
		assert.ErrorIs(t, err, ErrNotAdded)
		assert.ErrorIs(t, err, ErrPrecondition)
	})

	t.Run("IdentifierLength", func(t *testing.T) {
		_, err := b.Add(ctx, model.NewMatrix(3, 2), []int64{1, 2}, AddOptions{})
		var lm *ErrLengthMismatch
		require.ErrorAs(t, err, &lm)
		assert.Equal(t, "identifiers", lm.What)
		assert.ErrorIs(t, err, ErrPrecondition)
	})

	t.Run("QueryDimension", func(t *testing.T) {
		_, err := b.Add(ctx, model.NewMatrix(3, 2), []int64{1, 2, 3}, AddOptions{})
		require.NoError(t, err)
		_, err = b.Search(ctx, model.NewMatrix(1, 3), 1, SearchOptions{})
		var dm *ErrDimensionMismatch
		assert.ErrorAs(t, err, &dm)
	})

	t.Run("InvalidK", func(t *testing.T) {
		_, err := b.Search(ctx, model.NewMatrix(1, 2), 0, SearchOptions{})
		assert.ErrorIs(t, err, ErrInvalidK)
	})
}

func TestBruteForce_Reset(t *testing.T) {
	f := newFixture(t, 30, 2, 8)
	b := f.build(t, KindBruteForce, 0)

	b.Reset()
	assert.Equal(t, 0, b.Len())

	_, err := b.Search(context.Background(), f.queries, 3, SearchOptions{})
	assert.ErrorIs(t, err, ErrNotAdded)

	_, err = b.SearchWithRouting(context.Background(), f.queries, 3, []int{1, 1}, SearchOptions{})
	assert.ErrorIs(t, err, ErrNotAdded)

	// Reset before any add is safe.
	fresh, err := NewBruteForce()
	require.NoError(t, err)
	fresh.Reset()
}

func TestBruteForce_AddReplaces(t *testing.T) {
	ctx := context.Background()
	b, err := NewBruteForce()
	require.NoError(t, err)

	first, err := model.MatrixFromRows([][]float32{{1, 0}, {0, 1}})
	require.NoError(t, err)
	second, err := model.MatrixFromRows([][]float32{{0, 1}})
	require.NoError(t, err)

	_, err = b.Add(ctx, first, []int64{1, 2}, AddOptions{})
	require.NoError(t, err)
	_, err = b.Add(ctx, second, []int64{9}, AddOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, b.Len())

	res, err := b.Search(ctx, first.Select([]int{0}), 2, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, []int64{9, model.NoID}, res.IDs)
}
