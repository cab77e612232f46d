package vecbucket

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/hupe1980/vecbucket/bucket"
	"github.com/hupe1980/vecbucket/model"
)

// Index is a set of buckets of one kind, addressed by bucket id.
//
// Which bucket a vector lives in, and in which order a query visits the
// buckets, is decided by an external navigation model. Index only stores the
// partitioned data and merges per-bucket results.
//
// Searches may run concurrently with each other but not with Train, Add or
// Build.
type Index struct {
	kind bucket.Kind
	opts options

	mu      sync.RWMutex
	buckets map[int]bucket.Bucket
}

// BuildStats summarizes a Train, Add or Build call.
type BuildStats struct {
	// Total is the wall time of the whole call.
	Total time.Duration

	// Buckets is the sum of the times reported by the individual buckets.
	Buckets time.Duration

	// Count is the number of buckets touched.
	Count int

	// Vectors is the number of vectors passed in.
	Vectors int
}

// IndexSearchOptions configures Index.Search.
type IndexSearchOptions struct {
	bucket.SearchOptions

	// NBuckets is how many buckets of each query's visiting order are
	// searched. Zero means 1.
	NBuckets int

	// Dynamic splits a per-query routing budget across the visited buckets
	// instead of applying the same routing value in every bucket.
	Dynamic bool

	// Budget is the per-query routing budget of a dynamic search. Zero means
	// the bucket's default routing multiplied by NBuckets.
	Budget int

	// Weights holds, per query, one non-negative weight per visited bucket.
	// Empty means uniform weights.
	Weights [][]float32

	// Overflow lets budget a bucket could not use because of clamping flow on
	// to the next bucket.
	Overflow bool
}

func (o IndexSearchOptions) nBuckets() int {
	if o.NBuckets <= 0 {
		return 1
	}
	return o.NBuckets
}

// Timings breaks down the time spent in Index.Search.
type Timings struct {
	// Search is the wall time of the whole call.
	Search time.Duration

	// WithinBuckets is the sum of the bucket search times.
	WithinBuckets time.Duration

	// Merge is the time spent merging bucket results.
	Merge time.Duration
}

// IndexResult is the merged outcome of Index.Search.
type IndexResult struct {
	K         int
	IDs       []int64
	Distances []float32

	// Applied is set by dynamic searches. Applied[j][i] is the routing value
	// query i used in its j-th bucket, 0 when that bucket does not exist.
	Applied [][]int

	Timings              Timings
	DistanceComputations model.Computations
}

// QueryIDs returns the identifiers found for query i.
func (r *IndexResult) QueryIDs(i int) []int64 {
	return r.IDs[i*r.K : (i+1)*r.K]
}

// QueryDistances returns the distances found for query i.
func (r *IndexResult) QueryDistances(i int) []float32 {
	return r.Distances[i*r.K : (i+1)*r.K]
}

// New creates an empty Index whose buckets are of the given kind.
func New(kind bucket.Kind, opts ...Option) (*Index, error) {
	if _, err := bucket.ParseKind(string(kind)); err != nil {
		return nil, err
	}

	o := options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
	for _, fn := range opts {
		fn(&o)
	}
	o.logger = o.logger.WithKind(string(kind))

	return &Index{kind: kind, opts: o}, nil
}

// Kind returns the kind of every bucket.
func (x *Index) Kind() bucket.Kind { return x.kind }

// NumBuckets returns the number of buckets.
func (x *Index) NumBuckets() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.buckets)
}

// Len returns the number of vectors across all buckets.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := 0
	for _, b := range x.buckets {
		n += b.Len()
	}
	return n
}

// Bucket returns the bucket with the given id.
func (x *Index) Bucket(id int) (bucket.Bucket, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	b, ok := x.buckets[id]
	return b, ok
}

// BucketIDs returns the ids of all buckets in ascending order.
func (x *Index) BucketIDs() []int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ids := make([]int, 0, len(x.buckets))
	for id := range x.buckets {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Train replaces all buckets with freshly trained ones, one per distinct
// value of assignment. assignment[i] is the bucket of row i.
func (x *Index) Train(ctx context.Context, data model.Matrix, assignment []int, opts bucket.TrainOptions) (BuildStats, error) {
	start := time.Now()
	stats, err := x.train(ctx, data, assignment, opts)
	stats.Total = time.Since(start)
	x.observeBuild(ctx, "train", stats, err)
	return stats, err
}

func (x *Index) train(ctx context.Context, data model.Matrix, assignment []int, opts bucket.TrainOptions) (BuildStats, error) {
	stats := BuildStats{Vectors: data.Rows()}
	if err := checkAssignment(data, assignment, opts.Sketches); err != nil {
		return stats, err
	}

	buckets := make(map[int]bucket.Bucket)
	for _, g := range partition(assignment) {
		if err := ctx.Err(); err != nil {
			closeAll(buckets)
			return stats, err
		}

		b, err := bucket.New(x.kind, x.opts.bucketOptions...)
		if err != nil {
			closeAll(buckets)
			return stats, err
		}
		buckets[g.id] = b

		d, err := b.Train(ctx, data.Select(g.rows), bucket.TrainOptions{
			NList:    opts.NList,
			Sketches: selectSketches(opts.Sketches, g.rows),
		})
		if err != nil {
			closeAll(buckets)
			return stats, &ErrBucketFailed{Bucket: g.id, cause: err}
		}
		stats.Buckets += d
		stats.Count++
	}

	x.mu.Lock()
	old := x.buckets
	x.buckets = buckets
	x.mu.Unlock()
	closeAll(old)

	return stats, nil
}

// Add distributes vectors to their buckets. Every bucket named by
// assignment must exist. Buckets receiving no rows are emptied, matching
// the replace semantics of bucket.Bucket.Add.
func (x *Index) Add(ctx context.Context, data model.Matrix, ids []int64, assignment []int, opts bucket.AddOptions) (BuildStats, error) {
	start := time.Now()
	stats, err := x.add(ctx, data, ids, assignment, opts)
	stats.Total = time.Since(start)
	x.observeBuild(ctx, "add", stats, err)
	return stats, err
}

func (x *Index) add(ctx context.Context, data model.Matrix, ids []int64, assignment []int, opts bucket.AddOptions) (BuildStats, error) {
	stats := BuildStats{Vectors: data.Rows()}
	if err := checkAssignment(data, assignment, opts.Sketches); err != nil {
		return stats, err
	}
	if len(ids) != data.Rows() {
		return stats, &bucket.ErrLengthMismatch{What: "identifiers", Expected: data.Rows(), Actual: len(ids)}
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.buckets == nil {
		return stats, ErrNotBuilt
	}

	groups := partition(assignment)
	for _, g := range groups {
		if _, ok := x.buckets[g.id]; !ok {
			return stats, &ErrBucketNotFound{Bucket: g.id}
		}
	}

	filled := make(map[int]bool, len(groups))
	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		subIDs := make([]int64, len(g.rows))
		for j, r := range g.rows {
			subIDs[j] = ids[r]
		}

		d, err := x.buckets[g.id].Add(ctx, data.Select(g.rows), subIDs, bucket.AddOptions{
			Sketches: selectSketches(opts.Sketches, g.rows),
		})
		if err != nil {
			return stats, &ErrBucketFailed{Bucket: g.id, cause: err}
		}
		filled[g.id] = true
		stats.Buckets += d
		stats.Count++
	}

	for id, b := range x.buckets {
		if !filled[id] {
			b.Reset()
		}
	}

	return stats, nil
}

// Build trains the buckets and adds the same data to them.
func (x *Index) Build(ctx context.Context, data model.Matrix, ids []int64, assignment []int, opts bucket.TrainOptions) (BuildStats, error) {
	start := time.Now()

	stats, err := x.train(ctx, data, assignment, opts)
	if err == nil {
		var added BuildStats
		added, err = x.add(ctx, data, ids, assignment, bucket.AddOptions{Sketches: opts.Sketches})
		stats.Buckets += added.Buckets
	}
	stats.Total = time.Since(start)

	x.observeBuild(ctx, "build", stats, err)
	return stats, err
}

// Reset empties every bucket but keeps the trained structure.
func (x *Index) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, b := range x.buckets {
		b.Reset()
	}
}

// Close releases buckets that hold native resources.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	err := closeAll(x.buckets)
	x.buckets = nil
	return err
}

// Search finds the k nearest neighbours of every query among the first
// NBuckets buckets of its visiting order. order[i] lists the bucket ids of
// query i, best first.
func (x *Index) Search(ctx context.Context, queries model.Matrix, k int, order [][]int, opts IndexSearchOptions) (*IndexResult, error) {
	start := time.Now()
	res, err := x.search(ctx, queries, k, order, opts)

	var dc model.Computations
	if res != nil {
		res.Timings.Search = time.Since(start)
		dc = res.DistanceComputations
	}
	elapsed := time.Since(start)

	x.opts.logger.LogSearch(ctx, queries.Rows(), k, opts.nBuckets(), elapsed, err)
	x.opts.metricsCollector.RecordSearch(queries.Rows(), k, elapsed, dc, err)

	return res, err
}

func (x *Index) search(ctx context.Context, queries model.Matrix, k int, order [][]int, opts IndexSearchOptions) (*IndexResult, error) {
	if k <= 0 {
		return nil, bucket.ErrInvalidK
	}
	if err := bucket.CheckShape("query", queries); err != nil {
		return nil, err
	}

	nq := queries.Rows()
	nb := opts.nBuckets()

	if len(order) != nq {
		return nil, &bucket.ErrLengthMismatch{What: "visiting order", Expected: nq, Actual: len(order)}
	}
	for _, o := range order {
		if len(o) < nb {
			return nil, &bucket.ErrLengthMismatch{What: "visiting order row", Expected: nb, Actual: len(o)}
		}
	}
	if !opts.Sketches.IsZero() && opts.Sketches.Rows() != nq {
		return nil, &bucket.ErrLengthMismatch{What: "sketches", Expected: nq, Actual: opts.Sketches.Rows()}
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.buckets == nil {
		return nil, ErrNotBuilt
	}

	res := &IndexResult{
		K:         k,
		IDs:       make([]int64, nq*k),
		Distances: make([]float32, nq*k),
	}
	for i := range res.IDs {
		res.IDs[i] = model.NoID
		res.Distances[i] = float32(math.Inf(1))
	}

	var b *budget
	if opts.Dynamic {
		var err error
		if b, err = x.newBudget(nq, k, nb, opts); err != nil {
			return nil, err
		}
		res.Applied = make([][]int, nb)
	}

	m := newMerger(k)

	for step := 0; step < nb; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var requested, applied []int
		if b != nil {
			requested = b.split(step)
			applied = make([]int, nq)
			res.Applied[step] = applied
		}

		for _, g := range groupByBucket(order, step) {
			bk, ok := x.buckets[g.id]
			if !ok || bk.Len() == 0 {
				continue
			}

			sub := queries.Select(g.rows)
			so := opts.SearchOptions
			so.Sketches = selectSketches(opts.Sketches, g.rows)

			var part *model.Result
			if b != nil {
				routing := make([]int, len(g.rows))
				for j, q := range g.rows {
					routing[j] = requested[q]
				}
				rr, err := bk.SearchWithRouting(ctx, sub, k, routing, so)
				if err != nil {
					return nil, &ErrBucketFailed{Bucket: g.id, cause: err}
				}
				for j, q := range g.rows {
					applied[q] = rr.Applied[j]
				}
				part = &rr.Result
			} else {
				var err error
				if part, err = bk.Search(ctx, sub, k, so); err != nil {
					return nil, &ErrBucketFailed{Bucket: g.id, cause: err}
				}
			}

			res.Timings.WithinBuckets += part.Elapsed
			res.DistanceComputations = res.DistanceComputations.Add(part.DistanceComputations)

			mergeStart := time.Now()
			for j, q := range g.rows {
				m.merge(res.QueryIDs(q), res.QueryDistances(q), part.QueryIDs(j), part.QueryDistances(j))
			}
			res.Timings.Merge += time.Since(mergeStart)
		}

		if b != nil {
			if opts.Overflow {
				b.consume(applied)
			} else {
				b.consume(requested)
			}
		}
	}

	return res, nil
}

func (x *Index) newBudget(nq, k, nb int, opts IndexSearchOptions) (*budget, error) {
	total := opts.Budget
	if total <= 0 {
		for _, bk := range x.buckets {
			total = bk.Routing(k, opts.SearchOptions) * nb
			break
		}
	}

	if len(opts.Weights) == 0 {
		return newBudget(nq, nb, total, nil), nil
	}

	if len(opts.Weights) != nq {
		return nil, fmt.Errorf("%w: %d rows for %d queries", ErrInvalidWeights, len(opts.Weights), nq)
	}
	for i, w := range opts.Weights {
		if len(w) < nb {
			return nil, fmt.Errorf("%w: query %d has %d weights, need %d", ErrInvalidWeights, i, len(w), nb)
		}
		for _, v := range w[:nb] {
			if v < 0 || math.IsNaN(float64(v)) {
				return nil, fmt.Errorf("%w: query %d has weight %v", ErrInvalidWeights, i, v)
			}
		}
	}
	return newBudget(nq, nb, total, opts.Weights), nil
}

func (x *Index) observeBuild(ctx context.Context, phase string, stats BuildStats, err error) {
	x.opts.logger.LogBuild(ctx, phase, stats.Count, stats.Vectors, stats.Total, err)
	x.opts.metricsCollector.RecordBuild(stats.Vectors, stats.Total, err)
}

// budget tracks the routing budget each query has left.
type budget struct {
	nb        int
	remaining []int
	weights   [][]float32
}

func newBudget(nq, nb, total int, weights [][]float32) *budget {
	remaining := make([]int, nq)
	for i := range remaining {
		remaining[i] = total
	}
	return &budget{nb: nb, remaining: remaining, weights: weights}
}

// split returns the routing each query requests at the given step: its
// remaining budget times the share of the current bucket among the buckets
// still to visit, rounded up.
func (b *budget) split(step int) []int {
	out := make([]int, len(b.remaining))
	for i, rem := range b.remaining {
		share := 1 / float64(b.nb-step)
		if b.weights != nil {
			w := b.weights[i][step:b.nb]
			var sum float64
			for _, v := range w {
				sum += float64(v)
			}
			if sum > 0 {
				share = float64(w[0]) / sum
			}
		}
		out[i] = int(math.Ceil(float64(rem) * share))
	}
	return out
}

func (b *budget) consume(used []int) {
	for i, u := range used {
		b.remaining[i] -= u
	}
}

// merger combines two ascending neighbour lists into the first one.
type merger struct {
	ids   []int64
	dists []float32
}

func newMerger(k int) *merger {
	return &merger{ids: make([]int64, k), dists: make([]float32, k)}
}

// merge keeps the k smallest of both lists. On equal distances entries of
// the running list come first.
func (m *merger) merge(ids []int64, dists []float32, newIDs []int64, newDists []float32) {
	k := len(ids)
	i, j := 0, 0
	for n := 0; n < k; n++ {
		if j >= len(newIDs) || (i < k && dists[i] <= newDists[j]) {
			m.ids[n], m.dists[n] = ids[i], dists[i]
			i++
		} else {
			m.ids[n], m.dists[n] = newIDs[j], newDists[j]
			j++
		}
	}
	copy(ids, m.ids)
	copy(dists, m.dists)
}

type group struct {
	id   int
	rows []int
}

// partition groups row indices by bucket id, ascending by id.
func partition(assignment []int) []group {
	byID := make(map[int][]int)
	for row, id := range assignment {
		byID[id] = append(byID[id], row)
	}
	return sortedGroups(byID)
}

func groupByBucket(order [][]int, step int) []group {
	byID := make(map[int][]int)
	for q, o := range order {
		byID[o[step]] = append(byID[o[step]], q)
	}
	return sortedGroups(byID)
}

func sortedGroups(byID map[int][]int) []group {
	groups := make([]group, 0, len(byID))
	for id, rows := range byID {
		groups = append(groups, group{id: id, rows: rows})
	}
	slices.SortFunc(groups, func(a, b group) int { return cmp.Compare(a.id, b.id) })
	return groups
}

func checkAssignment(data model.Matrix, assignment []int, sketches model.SketchMatrix) error {
	if err := bucket.CheckShape("vector", data); err != nil {
		return err
	}
	if len(assignment) != data.Rows() {
		return &bucket.ErrLengthMismatch{What: "assignment", Expected: data.Rows(), Actual: len(assignment)}
	}
	if !sketches.IsZero() && sketches.Rows() != data.Rows() {
		return &bucket.ErrLengthMismatch{What: "sketches", Expected: data.Rows(), Actual: sketches.Rows()}
	}
	return nil
}

func selectSketches(s model.SketchMatrix, rows []int) model.SketchMatrix {
	if s.IsZero() {
		return s
	}
	return s.Select(rows)
}

func closeAll(buckets map[int]bucket.Bucket) error {
	var first error
	for _, b := range buckets {
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
