package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/vecbucket/distance"
	"github.com/hupe1980/vecbucket/internal/binaryflat"
	"github.com/hupe1980/vecbucket/internal/searcher"
	"github.com/hupe1980/vecbucket/model"
)

// Sketch is a two-stage bucket. Stage one finds the c nearest stored
// sketches of each query sketch by Hamming distance; stage two reranks
// exactly those c candidates by exact distance and keeps the best k.
//
// The routing value is c, clamped to [1, Len()]. Distance computations count
// the reranked candidates only; Hamming comparisons are free.
type Sketch struct {
	cfg  config
	dist distance.Func
	collection
	data  model.Matrix
	index *binaryflat.Index
}

var _ Bucket = (*Sketch)(nil)

// NewSketch creates an untrained sketch bucket.
func NewSketch(opts ...Option) (*Sketch, error) {
	cfg := newConfig(opts)
	fn, err := distance.Provider(cfg.metric)
	if err != nil {
		return nil, err
	}
	return &Sketch{cfg: cfg, dist: fn}, nil
}

func (b *Sketch) Kind() Kind { return KindSketch }

func (b *Sketch) Len() int { return b.data.Rows() }

// Train sizes the binary index from the sketch width. Sketches are required
// and must pair one-to-one with data.
func (b *Sketch) Train(_ context.Context, data model.Matrix, opts TrainOptions) (time.Duration, error) {
	if err := CheckShape("vector", data); err != nil {
		return 0, err
	}
	if opts.Sketches.IsZero() {
		return 0, ErrSketchesRequired
	}
	if err := checkLength("sketches", data.Rows(), opts.Sketches.Rows()); err != nil {
		return 0, err
	}
	index, err := binaryflat.New(opts.Sketches.Bits())
	if err != nil {
		return 0, fmt.Errorf("bucket: %w", err)
	}
	b.index = index
	b.data = model.Matrix{}
	b.collection.reset()
	return 0, nil
}

func (b *Sketch) Add(_ context.Context, data model.Matrix, ids []int64, opts AddOptions) (time.Duration, error) {
	if opts.Sketches.IsZero() {
		return 0, ErrSketchesRequired
	}
	if err := validateAdd(data, ids, opts.Sketches); err != nil {
		return 0, err
	}
	if b.index == nil {
		return 0, ErrNotTrained
	}
	if err := checkDim("sketch", b.index.Bits()/8, opts.Sketches.Width); err != nil {
		return 0, err
	}

	start := time.Now()
	b.index.Reset()
	if err := b.index.Add(opts.Sketches); err != nil {
		return 0, err
	}
	b.data = data
	b.set(ids)
	return time.Since(start), nil
}

func (b *Sketch) Build(ctx context.Context, data model.Matrix, ids []int64, opts TrainOptions) (time.Duration, error) {
	return build(ctx, b, data, ids, opts)
}

func (b *Sketch) Reset() {
	if b.index != nil {
		b.index.Reset()
	}
	b.data = model.Matrix{}
	b.collection.reset()
}

// Routing returns opts.C or DefaultCandidateFactor*k.
func (b *Sketch) Routing(k int, opts SearchOptions) int { return opts.candidates(k) }

func (b *Sketch) Search(ctx context.Context, queries model.Matrix, k int, opts SearchOptions) (*model.Result, error) {
	return search(ctx, b, queries, k, opts)
}

func (b *Sketch) SearchWithRouting(ctx context.Context, queries model.Matrix, k int, routing []int, opts SearchOptions) (*model.RoutedResult, error) {
	return Dispatch(ctx, b, queries, k, routing, opts)
}

func (b *Sketch) SearchPartition(ctx context.Context, queries model.Matrix, k, routing int, sketches model.SketchMatrix) (*Partial, error) {
	if b.index == nil {
		return nil, ErrNotTrained
	}
	if !b.added {
		return nil, ErrNotAdded
	}
	if sketches.IsZero() {
		return nil, ErrSketchesRequired
	}
	if err := checkLength("sketches", queries.Rows(), sketches.Rows()); err != nil {
		return nil, err
	}
	if err := checkDim("query", b.data.Dim, queries.Dim); err != nil {
		return nil, err
	}
	if err := checkDim("sketch", b.index.Bits()/8, sketches.Width); err != nil {
		return nil, err
	}

	c := clamp(routing, b.Len())

	start := time.Now()
	candidates, err := b.index.Search(sketches, c)
	if err != nil {
		return nil, err
	}

	res := model.NewResult(queries.Rows(), k)
	heap := searcher.NewTopK(k)
	buf := make([]searcher.Candidate, k)
	var dc int64
	for q := 0; q < queries.Rows(); q++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scan(heap, b.dist, queries.Row(q), b.data, candidates[q])
		drainInto(heap, buf, res, q)
		dc += int64(len(candidates[q]))
	}
	res.Elapsed = time.Since(start)
	res.DistanceComputations = model.Computations(dc)
	b.resolve(res)

	return &Partial{Result: *res, Applied: c}, nil
}
