package bucket

import (
	"context"
	"time"

	"github.com/hupe1980/vecbucket/distance"
	"github.com/hupe1980/vecbucket/internal/searcher"
	"github.com/hupe1980/vecbucket/model"
)

// BruteForce answers queries by exhaustive exact scan. The routing value has
// no effect and is reported back unchanged.
type BruteForce struct {
	cfg  config
	dist distance.Func
	collection
	data model.Matrix
}

var _ Bucket = (*BruteForce)(nil)

// NewBruteForce creates an empty brute-force bucket.
func NewBruteForce(opts ...Option) (*BruteForce, error) {
	cfg := newConfig(opts)
	fn, err := distance.Provider(cfg.metric)
	if err != nil {
		return nil, err
	}
	return &BruteForce{cfg: cfg, dist: fn}, nil
}

func (b *BruteForce) Kind() Kind { return KindBruteForce }

func (b *BruteForce) Len() int { return b.data.Rows() }

// Train is a no-op.
func (b *BruteForce) Train(context.Context, model.Matrix, TrainOptions) (time.Duration, error) {
	return 0, nil
}

func (b *BruteForce) Add(_ context.Context, data model.Matrix, ids []int64, opts AddOptions) (time.Duration, error) {
	if err := validateAdd(data, ids, opts.Sketches); err != nil {
		return 0, err
	}
	start := time.Now()
	b.set(ids)
	b.data = data
	return time.Since(start), nil
}

func (b *BruteForce) Build(ctx context.Context, data model.Matrix, ids []int64, opts TrainOptions) (time.Duration, error) {
	return build(ctx, b, data, ids, opts)
}

func (b *BruteForce) Reset() {
	b.collection.reset()
	b.data = model.Matrix{}
}

// Routing returns 0; brute force has no routing parameter.
func (b *BruteForce) Routing(int, SearchOptions) int { return 0 }

func (b *BruteForce) Search(ctx context.Context, queries model.Matrix, k int, opts SearchOptions) (*model.Result, error) {
	return search(ctx, b, queries, k, opts)
}

func (b *BruteForce) SearchWithRouting(ctx context.Context, queries model.Matrix, k int, routing []int, opts SearchOptions) (*model.RoutedResult, error) {
	return Dispatch(ctx, b, queries, k, routing, opts)
}

// SearchPartition scans every stored vector. Distance computations are
// exactly queries x stored.
func (b *BruteForce) SearchPartition(ctx context.Context, queries model.Matrix, k, routing int, _ model.SketchMatrix) (*Partial, error) {
	if !b.added {
		return nil, ErrNotAdded
	}
	if err := checkDim("query", b.data.Dim, queries.Dim); err != nil {
		return nil, err
	}

	start := time.Now()
	res := model.NewResult(queries.Rows(), k)
	heap := searcher.NewTopK(k)
	buf := make([]searcher.Candidate, k)
	for q := 0; q < queries.Rows(); q++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scan(heap, b.dist, queries.Row(q), b.data, nil)
		drainInto(heap, buf, res, q)
	}
	res.Elapsed = time.Since(start)
	res.DistanceComputations = model.Computations(queries.Rows() * b.data.Rows())
	b.resolve(res)

	return &Partial{Result: *res, Applied: routing}, nil
}

// scan pushes the distance from query to every row of data into heap. When
// rows is non-nil only those rows are scanned and pushed under their own
// index in rows' source collection.
func scan(heap *searcher.TopK, dist distance.Func, query []float32, data model.Matrix, rows []int) {
	if rows == nil {
		for i := 0; i < data.Rows(); i++ {
			heap.Push(int32(i), dist(query, data.Row(i)))
		}
		return
	}
	for _, r := range rows {
		heap.Push(int32(r), dist(query, data.Row(r)))
	}
}

// drainInto empties heap into query q of res and resets it for the next query.
func drainInto(heap *searcher.TopK, buf []searcher.Candidate, res *model.Result, q int) {
	n := heap.Drain(buf)
	rowsOut := res.QueryRows(q)
	distsOut := res.QueryDistances(q)
	for i := 0; i < n; i++ {
		rowsOut[i] = int(buf[i].Row)
		distsOut[i] = buf[i].Dist
	}
	heap.Reset(res.K)
}
