package bucket

import (
	"context"
	"testing"

	"github.com/hupe1980/vecbucket/distance"
	"github.com/hupe1980/vecbucket/model"
	"github.com/hupe1980/vecbucket/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIVF_NListClampedToTrainingSize(t *testing.T) {
	f := newFixture(t, 12, 1, 4)
	b := NewIVF(WithSeed(3))

	_, err := b.Train(context.Background(), f.data, TrainOptions{NList: 100})
	require.NoError(t, err)
	assert.Equal(t, 12, b.NList())

	_, err = b.Train(context.Background(), f.data, TrainOptions{})
	require.NoError(t, err)
	assert.Equal(t, DefaultNList, b.NList())
}

func TestIVF_ProbeClamping(t *testing.T) {
	f := newFixture(t, 200, 10, 8)
	b := f.build(t, KindIVF, 4)

	res, err := b.SearchWithRouting(context.Background(), f.queries, 5, constant(10, 50), SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, constant(10, 4), res.Applied)

	res, err = b.SearchWithRouting(context.Background(), f.queries, 5, constant(10, 0), SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, constant(10, 1), res.Applied)
}

func TestIVF_DispatchMatchesSearch(t *testing.T) {
	f := newFixture(t, 400, 25, 16)
	b := f.build(t, KindIVF, 10)

	for _, nprobe := range []int{1, 3, 10} {
		plain, err := b.Search(context.Background(), f.queries, 7, SearchOptions{NProbe: nprobe})
		require.NoError(t, err)
		routed, err := b.SearchWithRouting(context.Background(), f.queries, 7, constant(25, nprobe), SearchOptions{})
		require.NoError(t, err)

		assert.Equal(t, plain.IDs, routed.IDs)
		assert.Equal(t, plain.Distances, routed.Distances)
		assert.Equal(t, plain.DistanceComputations, routed.DistanceComputations)
	}
}

func TestIVF_MixedRouting(t *testing.T) {
	f := newFixture(t, 400, 12, 16)
	b := f.build(t, KindIVF, 8)

	routing := []int{1, 8, 2, 1, 8, 2, 1, 8, 2, 1, 8, 2}
	routed, err := b.SearchWithRouting(context.Background(), f.queries, 5, routing, SearchOptions{Parallelism: 3})
	require.NoError(t, err)

	var total model.Computations
	for q := 0; q < f.queries.Rows(); q++ {
		single, err := b.Search(context.Background(), f.queries.Select([]int{q}), 5, SearchOptions{NProbe: routing[q]})
		require.NoError(t, err)
		assert.Equal(t, single.IDs, routed.QueryIDs(q))
		total = total.Add(single.DistanceComputations)
	}
	assert.Equal(t, total, routed.DistanceComputations)
	assert.Equal(t, routing, routed.Applied)
}

func TestIVF_FullProbeIsExact(t *testing.T) {
	f := newFixture(t, 250, 10, 8)
	b := f.build(t, KindIVF, 5)

	res, err := b.Search(context.Background(), f.queries, 10, SearchOptions{NProbe: 5})
	require.NoError(t, err)

	truth := testutil.ExactTopK(f.data, f.queries, 10)
	for q := range truth {
		assert.Equal(t, truth[q], res.QueryRows(q))
	}
	// Each query ranks 5 centroids and scans all 250 rows.
	assert.Equal(t, model.Computations(10*(5+250)), res.DistanceComputations)
}

func TestIVF_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 60, 3, 8)
	b := NewIVF()

	_, err := b.Add(ctx, f.data, f.ids, AddOptions{})
	assert.ErrorIs(t, err, ErrNotTrained)

	_, err = b.Search(ctx, f.queries, 1, SearchOptions{})
	assert.ErrorIs(t, err, ErrNotTrained)

	_, err = b.Train(ctx, model.Matrix{}, TrainOptions{})
	assert.ErrorIs(t, err, ErrEmptyTrainingSet)

	_, err = b.Train(ctx, f.data, TrainOptions{NList: 4})
	require.NoError(t, err)

	_, err = b.Search(ctx, f.queries, 1, SearchOptions{})
	assert.ErrorIs(t, err, ErrNotAdded)

	_, err = b.Add(ctx, f.data, f.ids[:10], AddOptions{})
	assert.ErrorIs(t, err, ErrPrecondition)

	_, err = b.Add(ctx, f.data, f.ids, AddOptions{})
	require.NoError(t, err)
	assert.Equal(t, 60, b.Len())

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, 4, b.NList())
	_, err = b.Search(ctx, f.queries, 1, SearchOptions{})
	assert.ErrorIs(t, err, ErrNotAdded)

	// Trained structure survives reset.
	_, err = b.Add(ctx, f.data, f.ids, AddOptions{})
	require.NoError(t, err)
	res, err := b.Search(ctx, f.queries, 1, SearchOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, model.NoID, res.IDs[0])
	assert.Positive(t, b.TotalComputations())
}

func TestIVF_OverflowingVectors(t *testing.T) {
	ctx := context.Background()
	ids := []int64{1, 2, 3}

	tests := []struct {
		name   string
		metric distance.Metric
		rows   [][]float32
	}{
		{"L2", distance.MetricL2, [][]float32{{1e20, 0}, {-1e20, 0}, {1e20, 1}}},
		{"InnerProduct", distance.MetricInnerProduct, [][]float32{{-1e20, 0}, {1e20, 0}, {0, 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := model.MatrixFromRows(tt.rows)
			require.NoError(t, err)

			for _, nlist := range []int{1, 3} {
				b := NewIVF(WithMetric(tt.metric), WithSeed(1))
				_, err := b.Build(ctx, data, ids, TrainOptions{NList: nlist})
				require.NoError(t, err)
				assert.Equal(t, 3, b.Len())

				res, err := b.Search(ctx, data, 1, SearchOptions{NProbe: nlist})
				require.NoError(t, err)
				assert.Equal(t, 3, res.Len())
			}
		})
	}
}

func TestIVF_FailedAddKeepsContents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 60, 3, 8)
	b := f.build(t, KindIVF, 4)

	before, err := b.Search(ctx, f.queries, 3, SearchOptions{NProbe: 4})
	require.NoError(t, err)

	partial := model.Matrix{Data: make([]float32, 3*8+5), Dim: 8}
	_, err = b.Add(ctx, partial, []int64{1, 2, 3}, AddOptions{})
	var dimErr *ErrDimensionMismatch
	require.ErrorAs(t, err, &dimErr)

	assert.Equal(t, 60, b.Len())
	after, err := b.Search(ctx, f.queries, 3, SearchOptions{NProbe: 4})
	require.NoError(t, err)
	assert.Equal(t, before.IDs, after.IDs)
}
