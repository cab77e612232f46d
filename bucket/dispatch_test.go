package bucket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vecbucket/model"
)

// MockPartitionSearcher is a mock of PartitionSearcher.
type MockPartitionSearcher struct {
	mock.Mock
}

func (m *MockPartitionSearcher) SearchPartition(ctx context.Context, queries model.Matrix, k, routing int, sketches model.SketchMatrix) (*Partial, error) {
	args := m.Called(ctx, queries, k, routing, sketches)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Partial), args.Error(1)
}

// echoSearcher returns, for each query, ids derived from the query's first
// component and the routing value, and clamps routing to max.
type echoSearcher struct {
	max int
}

func (e echoSearcher) SearchPartition(_ context.Context, queries model.Matrix, k, routing int, sketches model.SketchMatrix) (*Partial, error) {
	applied := min(routing, e.max)
	res := model.NewResult(queries.Rows(), k)
	for q := 0; q < queries.Rows(); q++ {
		tag := int64(queries.Row(q)[0])
		if !sketches.IsZero() {
			// Sketch byte must travel with its query.
			if int64(sketches.Row(q)[0]) != tag {
				return nil, errors.New("sketch does not match query")
			}
		}
		for i := 0; i < k; i++ {
			res.QueryIDs(q)[i] = tag*1000 + int64(applied)*10 + int64(i)
			res.QueryRows(q)[i] = int(tag)
			res.QueryDistances(q)[i] = float32(i)
		}
	}
	res.Elapsed = time.Millisecond
	res.DistanceComputations = model.Computations(queries.Rows())
	return &Partial{Result: *res, Applied: applied}, nil
}

func taggedQueries(tags []int) (model.Matrix, model.SketchMatrix) {
	m := model.NewMatrix(len(tags), 2)
	s := model.NewSketchMatrix(len(tags), 1)
	for i, tag := range tags {
		m.Row(i)[0] = float32(tag)
		s.Row(i)[0] = byte(tag)
	}
	return m, s
}

func TestGroupByRouting(t *testing.T) {
	groups := groupByRouting([]int{5, 1, 5, 3, 1})
	require.Len(t, groups, 3)
	assert.Equal(t, routingGroup{value: 1, rows: []int{1, 4}}, groups[0])
	assert.Equal(t, routingGroup{value: 3, rows: []int{3}}, groups[1])
	assert.Equal(t, routingGroup{value: 5, rows: []int{0, 2}}, groups[2])
}

func TestDispatch_PreservesOrder(t *testing.T) {
	ctx := context.Background()
	tags := []int{0, 1, 2, 3, 4, 5, 6, 7}
	routing := []int{3, 1, 3, 9, 1, 2, 9, 3}
	queries, sketches := taggedQueries(tags)

	res, err := Dispatch(ctx, echoSearcher{max: 5}, queries, 2, routing, SearchOptions{Sketches: sketches})
	require.NoError(t, err)

	for pos, tag := range tags {
		applied := min(routing[pos], 5)
		assert.Equal(t, []int64{int64(tag)*1000 + int64(applied)*10, int64(tag)*1000 + int64(applied)*10 + 1}, res.QueryIDs(pos))
		assert.Equal(t, applied, res.Applied[pos])
	}

	t.Run("Permutation", func(t *testing.T) {
		perm := []int{7, 2, 5, 0, 3, 6, 1, 4}
		permTags := make([]int, len(perm))
		permRouting := make([]int, len(perm))
		for i, p := range perm {
			permTags[i] = tags[p]
			permRouting[i] = routing[p]
		}
		pq, ps := taggedQueries(permTags)

		permuted, err := Dispatch(ctx, echoSearcher{max: 5}, pq, 2, permRouting, SearchOptions{Sketches: ps})
		require.NoError(t, err)

		for i, p := range perm {
			assert.Equal(t, res.QueryIDs(p), permuted.QueryIDs(i))
			assert.Equal(t, res.QueryDistances(p), permuted.QueryDistances(i))
			assert.Equal(t, res.Applied[p], permuted.Applied[i])
		}
	})

	t.Run("Parallel", func(t *testing.T) {
		par, err := Dispatch(ctx, echoSearcher{max: 5}, queries, 2, routing, SearchOptions{Sketches: sketches, Parallelism: 4})
		require.NoError(t, err)
		assert.Equal(t, res, par)
	})
}

func TestDispatch_Additivity(t *testing.T) {
	ctx := context.Background()
	queries, _ := taggedQueries([]int{0, 1, 2, 3, 4})
	routing := []int{2, 4, 2, 4, 2}

	m := new(MockPartitionSearcher)
	p2 := &Partial{Result: *model.NewResult(3, 1), Applied: 2}
	p2.Elapsed = 3 * time.Millisecond
	p2.DistanceComputations = 30
	p4 := &Partial{Result: *model.NewResult(2, 1), Applied: 4}
	p4.Elapsed = 5 * time.Millisecond
	p4.DistanceComputations = 12

	m.On("SearchPartition", mock.Anything, mock.MatchedBy(func(q model.Matrix) bool { return q.Rows() == 3 }), 1, 2, mock.Anything).Return(p2, nil).Once()
	m.On("SearchPartition", mock.Anything, mock.MatchedBy(func(q model.Matrix) bool { return q.Rows() == 2 }), 1, 4, mock.Anything).Return(p4, nil).Once()

	res, err := Dispatch(ctx, m, queries, 1, routing, SearchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 8*time.Millisecond, res.Elapsed)
	assert.Equal(t, model.Computations(42), res.DistanceComputations)
	assert.Equal(t, []int{2, 4, 2, 4, 2}, res.Applied)
	m.AssertExpectations(t)
}

func TestDispatch_UnmeasuredPropagates(t *testing.T) {
	ctx := context.Background()
	queries, _ := taggedQueries([]int{0, 1})

	m := new(MockPartitionSearcher)
	measured := &Partial{Result: *model.NewResult(1, 1), Applied: 1}
	measured.DistanceComputations = 10
	unmeasured := &Partial{Result: *model.NewResult(1, 1), Applied: 2}
	unmeasured.DistanceComputations = model.Unmeasured

	m.On("SearchPartition", mock.Anything, mock.Anything, 1, 1, mock.Anything).Return(measured, nil)
	m.On("SearchPartition", mock.Anything, mock.Anything, 1, 2, mock.Anything).Return(unmeasured, nil)

	res, err := Dispatch(ctx, m, queries, 1, []int{1, 2}, SearchOptions{})
	require.NoError(t, err)
	assert.False(t, res.DistanceComputations.Measured())
}

func TestDispatch_Errors(t *testing.T) {
	ctx := context.Background()
	queries, sketches := taggedQueries([]int{0, 1, 2})

	t.Run("RoutingLength", func(t *testing.T) {
		_, err := Dispatch(ctx, echoSearcher{max: 5}, queries, 1, []int{1, 2}, SearchOptions{})
		var lm *ErrLengthMismatch
		require.ErrorAs(t, err, &lm)
		assert.Equal(t, "routing", lm.What)
	})

	t.Run("SketchLength", func(t *testing.T) {
		short := model.SketchMatrix{Data: sketches.Data[:2], Width: 1}
		_, err := Dispatch(ctx, echoSearcher{max: 5}, queries, 1, []int{1, 1, 1}, SearchOptions{Sketches: short})
		assert.ErrorIs(t, err, ErrPrecondition)
	})

	t.Run("SearcherFailure", func(t *testing.T) {
		m := new(MockPartitionSearcher)
		m.On("SearchPartition", mock.Anything, mock.Anything, 1, mock.Anything, mock.Anything).Return(nil, ErrNotAdded)
		_, err := Dispatch(ctx, m, queries, 1, []int{1, 1, 1}, SearchOptions{})
		assert.ErrorIs(t, err, ErrNotAdded)
	})
}

func TestDispatch_OptionsUntouched(t *testing.T) {
	ctx := context.Background()
	queries, sketches := taggedQueries([]int{0, 1, 2, 3})
	opts := SearchOptions{Sketches: sketches, NProbe: 3}
	before := append([]byte(nil), sketches.Data...)

	_, err := Dispatch(ctx, echoSearcher{max: 5}, queries, 1, []int{2, 1, 2, 1}, opts)
	require.NoError(t, err)
	_, err = Dispatch(ctx, echoSearcher{max: 5}, queries, 1, []int{2, 1, 2, 1}, opts)
	require.NoError(t, err)

	assert.Equal(t, before, opts.Sketches.Data)
	assert.Equal(t, 4, opts.Sketches.Rows())
	assert.Equal(t, 3, opts.NProbe)
}

func TestDispatch_EmptyBatch(t *testing.T) {
	res, err := Dispatch(context.Background(), echoSearcher{max: 5}, model.NewMatrix(0, 2), 3, nil, SearchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Len())
	assert.Equal(t, model.Computations(0), res.DistanceComputations)
}
