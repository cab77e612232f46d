package bucket

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/vecbucket/internal/ivf"
	"github.com/hupe1980/vecbucket/model"
)

// IVF is a partitioned bucket backed by the in-process inverted-file index.
// The routing value is nprobe, clamped to [1, nlist]. Distance computations
// are counted by the index for every call, covering both centroid ranking
// and list scanning.
type IVF struct {
	cfg config
	collection
	index *ivf.Index
}

var _ Bucket = (*IVF)(nil)

// NewIVF creates an untrained inverted-file bucket.
func NewIVF(opts ...Option) *IVF {
	return &IVF{cfg: newConfig(opts)}
}

func (b *IVF) Kind() Kind { return KindIVF }

func (b *IVF) Len() int {
	if b.index == nil {
		return 0
	}
	return b.index.Len()
}

// NList returns the trained partition count, or 0 before Train.
func (b *IVF) NList() int {
	if b.index == nil {
		return 0
	}
	return b.index.NList()
}

// TotalComputations returns the cumulative distance computations of all searches.
func (b *IVF) TotalComputations() int64 {
	if b.index == nil {
		return 0
	}
	return b.index.Computations()
}

// Train learns min(opts.NList, rows) partitions. Previously added vectors
// are dropped.
func (b *IVF) Train(ctx context.Context, data model.Matrix, opts TrainOptions) (time.Duration, error) {
	if err := CheckShape("vector", data); err != nil {
		return 0, err
	}
	if data.Rows() == 0 {
		return 0, ErrEmptyTrainingSet
	}
	start := time.Now()
	index := ivf.New(data.Dim, opts.nlist(data.Rows()),
		ivf.WithMetric(b.cfg.metric),
		ivf.WithSeed(b.cfg.seed),
		ivf.WithMaxIterations(b.cfg.maxIter),
	)
	if err := index.Train(ctx, data); err != nil {
		return 0, fmt.Errorf("bucket: train ivf: %w", err)
	}
	b.index = index
	b.collection.reset()
	return time.Since(start), nil
}

func (b *IVF) Add(_ context.Context, data model.Matrix, ids []int64, opts AddOptions) (time.Duration, error) {
	if b.index == nil {
		return 0, ErrNotTrained
	}
	if err := validateAdd(data, ids, opts.Sketches); err != nil {
		return 0, err
	}
	if err := checkDim("vector", b.index.Dim(), data.Dim); err != nil {
		return 0, err
	}

	start := time.Now()
	if err := b.index.Replace(data); err != nil {
		return 0, err
	}
	b.set(ids)
	return time.Since(start), nil
}

func (b *IVF) Build(ctx context.Context, data model.Matrix, ids []int64, opts TrainOptions) (time.Duration, error) {
	return build(ctx, b, data, ids, opts)
}

// Reset empties the lists; the coarse quantizer stays trained.
func (b *IVF) Reset() {
	if b.index != nil {
		b.index.Reset()
	}
	b.collection.reset()
}

// Routing returns opts.NProbe or DefaultNProbe.
func (b *IVF) Routing(_ int, opts SearchOptions) int { return opts.nprobe() }

func (b *IVF) Search(ctx context.Context, queries model.Matrix, k int, opts SearchOptions) (*model.Result, error) {
	return search(ctx, b, queries, k, opts)
}

func (b *IVF) SearchWithRouting(ctx context.Context, queries model.Matrix, k int, routing []int, opts SearchOptions) (*model.RoutedResult, error) {
	return Dispatch(ctx, b, queries, k, routing, opts)
}

func (b *IVF) SearchPartition(ctx context.Context, queries model.Matrix, k, routing int, _ model.SketchMatrix) (*Partial, error) {
	if b.index == nil {
		return nil, ErrNotTrained
	}
	if !b.added {
		return nil, ErrNotAdded
	}
	if err := checkDim("query", b.index.Dim(), queries.Dim); err != nil {
		return nil, err
	}

	nprobe := clamp(routing, b.index.NList())

	start := time.Now()
	rows, dists, dc, err := b.index.Search(ctx, queries, k, nprobe)
	if err != nil {
		return nil, err
	}
	res := model.NewResult(queries.Rows(), k)
	copy(res.Rows, rows)
	copy(res.Distances, dists)
	res.Elapsed = time.Since(start)
	res.DistanceComputations = model.Computations(dc)
	b.resolve(res)

	return &Partial{Result: *res, Applied: nprobe}, nil
}
