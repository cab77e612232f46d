package ivf

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/vecbucket/distance"
	"github.com/hupe1980/vecbucket/internal/kmeans"
	"github.com/hupe1980/vecbucket/internal/searcher"
	"github.com/hupe1980/vecbucket/model"
)

var (
	// ErrNotTrained is returned by Add and Search before Train.
	ErrNotTrained = errors.New("ivf: index not trained")

	// ErrTooFewVectors is returned when the training set is smaller than nlist.
	ErrTooFewVectors = errors.New("ivf: fewer training vectors than partitions")
)

const defaultMaxIterations = 25

type options struct {
	metric  distance.Metric
	seed    int64
	maxIter int
}

// Option configures an Index.
type Option func(*options)

// WithMetric sets the distance metric (default inner product).
func WithMetric(m distance.Metric) Option {
	return func(o *options) { o.metric = m }
}

// WithSeed sets the k-means seed.
func WithSeed(seed int64) Option {
	return func(o *options) { o.seed = seed }
}

// WithMaxIterations bounds the number of Lloyd iterations.
func WithMaxIterations(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxIter = n
		}
	}
}

// Index is an inverted-file index. Train and Add must not run concurrently
// with Search; concurrent searches are safe.
type Index struct {
	dim   int
	nlist int
	opts  options

	centroids []float32
	lists     []*roaring.Bitmap
	vectors   []float32

	// computations accumulates every evaluation across searches.
	computations atomic.Int64
}

// New creates an untrained index for dim-dimensional vectors with nlist partitions.
func New(dim, nlist int, optFns ...Option) *Index {
	o := options{metric: distance.MetricInnerProduct, maxIter: defaultMaxIterations}
	for _, fn := range optFns {
		fn(&o)
	}
	return &Index{dim: dim, nlist: nlist, opts: o}
}

// Dim returns the vector dimension.
func (ix *Index) Dim() int { return ix.dim }

// NList returns the number of partitions.
func (ix *Index) NList() int { return ix.nlist }

// Trained reports whether the coarse quantizer is ready.
func (ix *Index) Trained() bool { return ix.centroids != nil }

// Len returns the number of stored vectors.
func (ix *Index) Len() int { return len(ix.vectors) / ix.dim }

// Computations returns the cumulative distance evaluations of all searches.
func (ix *Index) Computations() int64 { return ix.computations.Load() }

// Centroids returns the flattened partition centroids.
func (ix *Index) Centroids() []float32 { return ix.centroids }

// ListSizes returns the number of rows in every partition.
func (ix *Index) ListSizes() []int {
	sizes := make([]int, len(ix.lists))
	for i, l := range ix.lists {
		sizes[i] = int(l.GetCardinality())
	}
	return sizes
}

// Train learns the coarse quantizer. Any stored vectors are discarded.
func (ix *Index) Train(ctx context.Context, data model.Matrix) error {
	if data.Dim != ix.dim {
		return fmt.Errorf("ivf: dimension %d, expected %d", data.Dim, ix.dim)
	}
	if ix.dim <= 0 || len(data.Data)%ix.dim != 0 {
		return fmt.Errorf("ivf: %d values do not form rows of dimension %d", len(data.Data), ix.dim)
	}
	if ix.nlist <= 0 {
		return fmt.Errorf("ivf: invalid partition count %d", ix.nlist)
	}
	if data.Rows() < ix.nlist {
		return fmt.Errorf("%w: %d < %d", ErrTooFewVectors, data.Rows(), ix.nlist)
	}

	centroids, err := kmeans.TrainKMeans(ctx, data.Data, ix.dim, ix.nlist, ix.opts.metric, ix.opts.maxIter, ix.opts.seed)
	if err != nil {
		return fmt.Errorf("ivf: train coarse quantizer: %w", err)
	}

	ix.centroids = centroids
	ix.lists = make([]*roaring.Bitmap, ix.nlist)
	for i := range ix.lists {
		ix.lists[i] = roaring.New()
	}
	ix.vectors = nil
	return nil
}

// Add appends vectors, assigning each to its nearest partition. Rows are
// numbered in insertion order starting at Len(). On error the index is
// unchanged.
func (ix *Index) Add(data model.Matrix) error {
	parts, err := ix.assign(data)
	if err != nil {
		return err
	}
	ix.insert(data, parts)
	return nil
}

// Replace swaps the stored vectors for data. On error the previous contents
// are kept.
func (ix *Index) Replace(data model.Matrix) error {
	parts, err := ix.assign(data)
	if err != nil {
		return err
	}
	ix.Reset()
	ix.insert(data, parts)
	return nil
}

func (ix *Index) assign(data model.Matrix) ([]int, error) {
	if !ix.Trained() {
		return nil, ErrNotTrained
	}
	if data.Dim != ix.dim {
		return nil, fmt.Errorf("ivf: dimension %d, expected %d", data.Dim, ix.dim)
	}
	if len(data.Data)%ix.dim != 0 {
		return nil, fmt.Errorf("ivf: %d values do not form rows of dimension %d", len(data.Data), ix.dim)
	}

	parts := make([]int, data.Rows())
	for i := range parts {
		p, err := kmeans.AssignPartition(data.Row(i), ix.centroids, ix.dim, ix.opts.metric)
		if err != nil {
			return nil, err
		}
		parts[i] = p
	}
	return parts, nil
}

func (ix *Index) insert(data model.Matrix, parts []int) {
	base := ix.Len()
	for i, p := range parts {
		ix.lists[p].Add(uint32(base + i))
	}
	ix.vectors = append(ix.vectors, data.Data...)
}

// Reset removes all stored vectors but keeps the trained quantizer.
func (ix *Index) Reset() {
	ix.vectors = nil
	for _, l := range ix.lists {
		l.Clear()
	}
}

type centroidDist struct {
	id   int
	dist float32
}

// Search returns, for each query, the k nearest stored rows among the nprobe
// closest partitions, together with the number of distance evaluations the
// call performed. Missing slots hold row -1 and +Inf distance. nprobe is
// clamped to [1, NList()].
func (ix *Index) Search(ctx context.Context, queries model.Matrix, k, nprobe int) ([]int, []float32, int64, error) {
	if !ix.Trained() {
		return nil, nil, 0, ErrNotTrained
	}
	if queries.Dim != ix.dim {
		return nil, nil, 0, fmt.Errorf("ivf: query dimension %d, expected %d", queries.Dim, ix.dim)
	}
	nprobe = min(max(nprobe, 1), ix.nlist)

	dc, err := NewDistanceComputer(ix.opts.metric)
	if err != nil {
		return nil, nil, 0, err
	}

	res := model.NewResult(queries.Rows(), k)
	heap := searcher.NewTopK(k)
	ranked := make([]centroidDist, ix.nlist)
	out := make([]searcher.Candidate, k)

	for q := 0; q < queries.Rows(); q++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, 0, err
		}
		query := queries.Row(q)

		for c := range ranked {
			ranked[c] = centroidDist{id: c, dist: dc.Distance(query, ix.centroids[c*ix.dim:(c+1)*ix.dim])}
		}
		slices.SortFunc(ranked, func(a, b centroidDist) int {
			if r := cmp.Compare(a.dist, b.dist); r != 0 {
				return r
			}
			return cmp.Compare(a.id, b.id)
		})

		heap.Reset(k)
		for _, p := range ranked[:nprobe] {
			it := ix.lists[p.id].Iterator()
			for it.HasNext() {
				row := it.Next()
				vec := ix.vectors[int(row)*ix.dim : (int(row)+1)*ix.dim]
				heap.Push(int32(row), dc.Distance(query, vec))
			}
		}

		n := heap.Drain(out)
		rows := res.QueryRows(q)
		dists := res.QueryDistances(q)
		for i := 0; i < n; i++ {
			rows[i] = int(out[i].Row)
			dists[i] = out[i].Dist
		}
	}

	ix.computations.Add(dc.Computations())
	return res.Rows, res.Distances, dc.Computations(), nil
}
