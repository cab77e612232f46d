package bucket

import (
	"github.com/hupe1980/vecbucket/distance"
	"github.com/hupe1980/vecbucket/model"
)

const (
	// DefaultNList is the partition count used when TrainOptions.NList is unset.
	DefaultNList = 5

	// DefaultNProbe is the probe depth used when SearchOptions.NProbe is unset.
	DefaultNProbe = 5

	// DefaultCandidateFactor multiplies k to obtain the default candidate pool.
	DefaultCandidateFactor = 10

	defaultMaxIterations = 25
)

// TrainOptions configures Train and Build.
type TrainOptions struct {
	// NList is the target partition count. It is clamped to the number of
	// training vectors. Zero means DefaultNList.
	NList int

	// Sketches accompany the training vectors. Required by Sketch buckets,
	// which size their binary index from the sketch width.
	Sketches model.SketchMatrix
}

func (o TrainOptions) nlist(n int) int {
	nlist := o.NList
	if nlist <= 0 {
		nlist = DefaultNList
	}
	return min(nlist, n)
}

// AddOptions configures Add.
type AddOptions struct {
	// Sketches of the added vectors, one per row. Required by Sketch buckets.
	Sketches model.SketchMatrix
}

// SearchOptions configures Search and SearchWithRouting.
type SearchOptions struct {
	// NProbe is the number of partitions scanned per query by the
	// inverted-file buckets. Zero means DefaultNProbe.
	NProbe int

	// C is the candidate-pool size of Sketch buckets. Zero means
	// DefaultCandidateFactor*k.
	C int

	// Sketches holds one query sketch per query. Required by Sketch buckets.
	Sketches model.SketchMatrix

	// Parallelism bounds how many routing groups SearchWithRouting searches
	// concurrently. Values below 2 search groups one after another.
	Parallelism int
}

func (o SearchOptions) nprobe() int {
	if o.NProbe <= 0 {
		return DefaultNProbe
	}
	return o.NProbe
}

func (o SearchOptions) candidates(k int) int {
	if o.C <= 0 {
		return DefaultCandidateFactor * k
	}
	return o.C
}

type config struct {
	metric  distance.Metric
	seed    int64
	maxIter int
}

// Option configures a bucket at construction time.
type Option func(*config)

// WithMetric selects the distance. The default, MetricInnerProduct, reports
// 1 - <q, x> and expects unit-normalized vectors.
func WithMetric(m distance.Metric) Option {
	return func(c *config) { c.metric = m }
}

// WithSeed sets the seed of the k-means coarse quantizer.
func WithSeed(seed int64) Option {
	return func(c *config) { c.seed = seed }
}

// WithMaxIterations bounds the number of k-means iterations.
func WithMaxIterations(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxIter = n
		}
	}
}

func newConfig(opts []Option) config {
	c := config{metric: distance.MetricInnerProduct, maxIter: defaultMaxIterations}
	for _, fn := range opts {
		fn(&c)
	}
	return c
}
