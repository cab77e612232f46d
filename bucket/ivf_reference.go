//go:build faiss

package bucket

import (
	"context"
	"fmt"
	"sync"
	"time"

	faiss "github.com/blevesearch/go-faiss"

	"github.com/hupe1980/vecbucket/distance"
	"github.com/hupe1980/vecbucket/model"
)

// IVFReference is a partitioned bucket backed by a FAISS IndexIVFFlat. It is
// a baseline for IVF: same structural semantics, independent implementation.
// FAISS does not expose its distance counter, so DistanceComputations is
// always model.Unmeasured.
type IVFReference struct {
	cfg config
	collection

	// mu serializes nprobe updates with the search that depends on them.
	mu     sync.Mutex
	index  faiss.Index
	params *faiss.ParameterSpace
	dim    int
	nlist  int
	ntotal int
}

var _ Bucket = (*IVFReference)(nil)

// NewIVFReference creates an untrained FAISS-backed bucket.
func NewIVFReference(opts ...Option) (*IVFReference, error) {
	cfg := newConfig(opts)
	if _, err := faissMetric(cfg.metric); err != nil {
		return nil, err
	}
	return &IVFReference{cfg: cfg}, nil
}

func newIVFReference(opts ...Option) (Bucket, error) {
	return NewIVFReference(opts...)
}

func faissMetric(m distance.Metric) (int, error) {
	switch m {
	case distance.MetricInnerProduct:
		return faiss.MetricInnerProduct, nil
	case distance.MetricL2:
		return faiss.MetricL2, nil
	default:
		return 0, fmt.Errorf("bucket: metric %v not supported by faiss", m)
	}
}

func (b *IVFReference) Kind() Kind { return KindIVFReference }

func (b *IVFReference) Len() int { return b.ntotal }

// NList returns the trained partition count, or 0 before Train.
func (b *IVFReference) NList() int { return b.nlist }

// Close releases the native index.
func (b *IVFReference) Close() error {
	b.release()
	return nil
}

func (b *IVFReference) release() {
	if b.index != nil {
		b.index.Delete()
		b.index = nil
	}
	if b.params != nil {
		b.params.Delete()
		b.params = nil
	}
}

func (b *IVFReference) Train(_ context.Context, data model.Matrix, opts TrainOptions) (time.Duration, error) {
	if err := CheckShape("vector", data); err != nil {
		return 0, err
	}
	if data.Rows() == 0 {
		return 0, ErrEmptyTrainingSet
	}
	metric, err := faissMetric(b.cfg.metric)
	if err != nil {
		return 0, err
	}
	nlist := opts.nlist(data.Rows())

	start := time.Now()
	index, err := faiss.IndexFactory(data.Dim, fmt.Sprintf("IVF%d,Flat", nlist), metric)
	if err != nil {
		return 0, fmt.Errorf("bucket: create faiss index: %w", err)
	}
	if err := index.Train(data.Data); err != nil {
		index.Delete()
		return 0, fmt.Errorf("bucket: train faiss index: %w", err)
	}
	params, err := faiss.NewParameterSpace()
	if err != nil {
		index.Delete()
		return 0, err
	}

	b.release()
	b.index = index
	b.params = params
	b.dim = data.Dim
	b.nlist = nlist
	b.ntotal = 0
	b.collection.reset()
	return time.Since(start), nil
}

func (b *IVFReference) Add(_ context.Context, data model.Matrix, ids []int64, opts AddOptions) (time.Duration, error) {
	if b.index == nil {
		return 0, ErrNotTrained
	}
	if err := validateAdd(data, ids, opts.Sketches); err != nil {
		return 0, err
	}
	if err := checkDim("vector", b.dim, data.Dim); err != nil {
		return 0, err
	}

	// faiss cannot roll back, so a library failure leaves the bucket empty.
	start := time.Now()
	if err := b.index.Reset(); err != nil {
		b.ntotal = 0
		b.collection.reset()
		return 0, fmt.Errorf("bucket: reset faiss index: %w", err)
	}
	if err := b.index.Add(data.Data); err != nil {
		b.Reset()
		return 0, fmt.Errorf("bucket: add to faiss index: %w", err)
	}
	b.ntotal = data.Rows()
	b.set(ids)
	return time.Since(start), nil
}

func (b *IVFReference) Build(ctx context.Context, data model.Matrix, ids []int64, opts TrainOptions) (time.Duration, error) {
	return build(ctx, b, data, ids, opts)
}

func (b *IVFReference) Reset() {
	if b.index != nil {
		_ = b.index.Reset()
	}
	b.ntotal = 0
	b.collection.reset()
}

// Routing returns opts.NProbe or DefaultNProbe.
func (b *IVFReference) Routing(_ int, opts SearchOptions) int { return opts.nprobe() }

func (b *IVFReference) Search(ctx context.Context, queries model.Matrix, k int, opts SearchOptions) (*model.Result, error) {
	return search(ctx, b, queries, k, opts)
}

func (b *IVFReference) SearchWithRouting(ctx context.Context, queries model.Matrix, k int, routing []int, opts SearchOptions) (*model.RoutedResult, error) {
	return Dispatch(ctx, b, queries, k, routing, opts)
}

func (b *IVFReference) SearchPartition(_ context.Context, queries model.Matrix, k, routing int, _ model.SketchMatrix) (*Partial, error) {
	if b.index == nil {
		return nil, ErrNotTrained
	}
	if !b.added {
		return nil, ErrNotAdded
	}
	if err := checkDim("query", b.dim, queries.Dim); err != nil {
		return nil, err
	}

	nprobe := clamp(routing, b.nlist)
	res := model.NewResult(queries.Rows(), k)
	if queries.Rows() == 0 {
		res.DistanceComputations = model.Unmeasured
		return &Partial{Result: *res, Applied: nprobe}, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.params.SetIndexParameter(b.index, "nprobe", float64(nprobe)); err != nil {
		return nil, fmt.Errorf("bucket: set nprobe: %w", err)
	}

	start := time.Now()
	dists, labels, err := b.index.Search(queries.Data, int64(k))
	if err != nil {
		return nil, fmt.Errorf("bucket: faiss search: %w", err)
	}
	res.Elapsed = time.Since(start)

	for i, label := range labels {
		if label < 0 {
			continue
		}
		res.Rows[i] = int(label)
		if b.cfg.metric == distance.MetricInnerProduct {
			res.Distances[i] = 1 - dists[i]
		} else {
			res.Distances[i] = dists[i]
		}
	}
	res.DistanceComputations = model.Unmeasured
	b.resolve(res)

	return &Partial{Result: *res, Applied: nprobe}, nil
}
