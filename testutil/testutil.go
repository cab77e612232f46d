package testutil

import (
	"cmp"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/vecbucket/distance"
	"github.com/hupe1980/vecbucket/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Perm returns a random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// FillUniform fills dst with random values in range [0, 1).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformMatrix generates num vectors with values in range [0, 1).
func (r *RNG) UniformMatrix(num, dim int) model.Matrix {
	m := model.NewMatrix(num, dim)
	r.FillUniform(m.Data)
	return m
}

// GaussianMatrix generates num vectors drawn from a standard normal distribution.
func (r *RNG) GaussianMatrix(num, dim int) model.Matrix {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := model.NewMatrix(num, dim)
	for i := range m.Data {
		m.Data[i] = float32(r.rand.NormFloat64())
	}
	return m
}

// UnitMatrix generates L2-normalized random vectors, uniform on the hypersphere.
func (r *RNG) UnitMatrix(num, dim int) model.Matrix {
	m := r.GaussianMatrix(num, dim)
	for i := 0; i < num; i++ {
		if !distance.NormalizeL2InPlace(m.Row(i)) {
			m.Row(i)[0] = 1
		}
	}
	return m
}

// ClusteredMatrix generates unit vectors scattered around random unit centroids.
// Row i belongs to cluster i % clusters.
func (r *RNG) ClusteredMatrix(num, dim, clusters int, spread float32) model.Matrix {
	centroids := r.UnitMatrix(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	m := model.NewMatrix(num, dim)
	for i := 0; i < num; i++ {
		c := centroids.Row(i % clusters)
		vec := m.Row(i)
		for j := range vec {
			vec[j] = c[j] + float32(r.rand.NormFloat64())*spread
		}
		distance.NormalizeL2InPlace(vec)
	}
	return m
}

// Sequence returns the identifiers start, start+1, ..., start+n-1.
func Sequence(n int, start int64) []int64 {
	ids := make([]int64, n)
	for i := range ids {
		ids[i] = start + int64(i)
	}
	return ids
}

// ExactTopK returns, per query, the rows of the k most similar data vectors
// by inner product. Ties are broken by row ascending.
func ExactTopK(data, queries model.Matrix, k int) [][]int {
	type scored struct {
		row  int
		dist float32
	}

	out := make([][]int, queries.Rows())
	all := make([]scored, data.Rows())
	for q := range out {
		for i := range all {
			all[i] = scored{row: i, dist: distance.InnerProduct(queries.Row(q), data.Row(i))}
		}
		slices.SortFunc(all, func(a, b scored) int {
			if c := cmp.Compare(a.dist, b.dist); c != 0 {
				return c
			}
			return cmp.Compare(a.row, b.row)
		})
		n := min(k, len(all))
		out[q] = make([]int, n)
		for i := 0; i < n; i++ {
			out[q][i] = all[i].row
		}
	}
	return out
}
