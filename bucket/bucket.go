package bucket

import (
	"context"
	"time"

	"github.com/hupe1980/vecbucket/model"
)

// Kind names a bucket variant.
type Kind string

const (
	KindBruteForce   Kind = "bruteforce"
	KindIVF          Kind = "ivf"
	KindIVFReference Kind = "ivf-reference"
	KindSketch       Kind = "sketch"
)

// Kinds lists every known kind, including those that may not be compiled in.
func Kinds() []Kind {
	return []Kind{KindBruteForce, KindIVF, KindIVFReference, KindSketch}
}

// Partial is the output of one single-routing search call.
type Partial struct {
	model.Result

	// Applied is the routing value used after clamping.
	Applied int
}

// PartitionSearcher is the single-routing search primitive. Search and the
// grouped dispatcher both delegate to it, so a constant routing produces
// identical results through either path.
//
// Implementations must be safe for concurrent use when no mutation runs.
type PartitionSearcher interface {
	SearchPartition(ctx context.Context, queries model.Matrix, k, routing int, sketches model.SketchMatrix) (*Partial, error)
}

// Bucket is a vector collection plus a search strategy.
type Bucket interface {
	PartitionSearcher

	// Kind returns the variant name.
	Kind() Kind

	// Train establishes internal structure from a sample. Buckets without
	// structure return immediately.
	Train(ctx context.Context, data model.Matrix, opts TrainOptions) (time.Duration, error)

	// Add ingests vectors and their external identifiers, replacing anything
	// held before. Invalid input is rejected before the bucket changes. The
	// faiss-backed IVFReference is the exception for failures inside the
	// library itself: those leave it empty.
	Add(ctx context.Context, data model.Matrix, ids []int64, opts AddOptions) (time.Duration, error)

	// Build is Train followed by Add on the same data and returns the summed time.
	Build(ctx context.Context, data model.Matrix, ids []int64, opts TrainOptions) (time.Duration, error)

	// Reset empties the collection but keeps trained structure.
	Reset()

	// Len returns the number of vectors held.
	Len() int

	// Routing returns the default routing value Search applies for k.
	Routing(k int, opts SearchOptions) int

	// Search runs one routing value, derived from opts, for the whole batch.
	Search(ctx context.Context, queries model.Matrix, k int, opts SearchOptions) (*model.Result, error)

	// SearchWithRouting runs each query with its own routing value.
	SearchWithRouting(ctx context.Context, queries model.Matrix, k int, routing []int, opts SearchOptions) (*model.RoutedResult, error)
}

// build composes Train and Add.
func build(ctx context.Context, b Bucket, data model.Matrix, ids []int64, opts TrainOptions) (time.Duration, error) {
	tTrain, err := b.Train(ctx, data, opts)
	if err != nil {
		return 0, err
	}
	tAdd, err := b.Add(ctx, data, ids, AddOptions{Sketches: opts.Sketches})
	if err != nil {
		return 0, err
	}
	return tTrain + tAdd, nil
}

// search runs a single routing value through the primitive.
func search(ctx context.Context, b Bucket, queries model.Matrix, k int, opts SearchOptions) (*model.Result, error) {
	if err := validateSearch(queries, k, opts.Sketches); err != nil {
		return nil, err
	}
	p, err := b.SearchPartition(ctx, queries, k, b.Routing(k, opts), opts.Sketches)
	if err != nil {
		return nil, err
	}
	return &p.Result, nil
}

func validateSearch(queries model.Matrix, k int, sketches model.SketchMatrix) error {
	if k <= 0 {
		return ErrInvalidK
	}
	if err := CheckShape("query", queries); err != nil {
		return err
	}
	if !sketches.IsZero() {
		return checkLength("sketches", queries.Rows(), sketches.Rows())
	}
	return nil
}

func validateAdd(data model.Matrix, ids []int64, sketches model.SketchMatrix) error {
	if err := CheckShape("vector", data); err != nil {
		return err
	}
	if err := checkLength("identifiers", data.Rows(), len(ids)); err != nil {
		return err
	}
	if !sketches.IsZero() {
		return checkLength("sketches", data.Rows(), sketches.Rows())
	}
	return nil
}

// clamp bounds a routing value to [1, upper], or to 0 when upper is 0.
func clamp(v, upper int) int {
	if upper < 1 {
		return 0
	}
	return max(1, min(v, upper))
}

// collection is the identifier map shared by all variants.
type collection struct {
	ids   []int64
	added bool
}

func (c *collection) set(ids []int64) {
	c.ids = append([]int64(nil), ids...)
	c.added = true
}

func (c *collection) reset() {
	c.ids = nil
	c.added = false
}

// resolve fills res.IDs from res.Rows.
func (c *collection) resolve(res *model.Result) {
	for i, row := range res.Rows {
		if row < 0 {
			res.IDs[i] = model.NoID
			continue
		}
		res.IDs[i] = c.ids[row]
	}
}
