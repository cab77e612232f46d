package bucket

import (
	"context"
	"testing"

	"github.com/hupe1980/vecbucket/model"
	"github.com/hupe1980/vecbucket/quantization"
	"github.com/hupe1980/vecbucket/testutil"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	data     model.Matrix
	ids      []int64
	sketches model.SketchMatrix

	queries model.Matrix
	qSketch model.SketchMatrix
}

func newFixture(t *testing.T, n, nq, dim int) fixture {
	t.Helper()
	rng := testutil.NewRNG(42)
	data := rng.ClusteredMatrix(n, dim, 8, 0.2)
	queries := rng.ClusteredMatrix(nq, dim, 8, 0.2)

	enc := quantization.NewHyperplaneSketcher(dim, 64, 7)
	sk, err := enc.EncodeMatrix(data)
	require.NoError(t, err)
	qsk, err := enc.EncodeMatrix(queries)
	require.NoError(t, err)

	return fixture{
		data:     data,
		ids:      testutil.Sequence(n, 1000),
		sketches: sk,
		queries:  queries,
		qSketch:  qsk,
	}
}

func (f fixture) build(t *testing.T, kind Kind, nlist int) Bucket {
	t.Helper()
	b, err := New(kind, WithSeed(1))
	require.NoError(t, err)
	_, err = b.Build(context.Background(), f.data, f.ids, TrainOptions{NList: nlist, Sketches: f.sketches})
	require.NoError(t, err)
	return b
}

func constant(n, v int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestPartialRowsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 80, 4, 8)
	partial := model.Matrix{Data: make([]float32, 2*8+3), Dim: 8}

	for _, kind := range []Kind{KindBruteForce, KindIVF, KindSketch} {
		t.Run(string(kind), func(t *testing.T) {
			b := f.build(t, kind, 4)

			_, err := b.Add(ctx, partial, []int64{1, 2}, AddOptions{Sketches: f.sketches})
			var dimErr *ErrDimensionMismatch
			require.ErrorAs(t, err, &dimErr)
			require.ErrorIs(t, err, ErrPrecondition)
			require.Equal(t, 3, dimErr.Actual)
			require.Equal(t, 80, b.Len())

			_, err = b.Search(ctx, partial, 1, SearchOptions{Sketches: f.qSketch})
			require.ErrorAs(t, err, &dimErr)

			_, err = b.SearchWithRouting(ctx, partial, 1, []int{1, 1}, SearchOptions{Sketches: f.qSketch})
			require.ErrorAs(t, err, &dimErr)
		})
	}

	_, err := NewIVF().Train(ctx, partial, TrainOptions{NList: 1})
	require.ErrorIs(t, err, ErrPrecondition)
}
