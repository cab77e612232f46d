package kmeans

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/hupe1980/vecbucket/distance"
)

// ErrInvalidInput is returned for vectors or centroids of the wrong shape.
var ErrInvalidInput = errors.New("kmeans: invalid input")

// TrainKMeans trains k centroids from the given vectors using Lloyd's algorithm.
// It returns the flattened centroids (k * dim), or nil if there are fewer than
// k vectors. With MetricInnerProduct the centroids are kept on the unit sphere.
func TrainKMeans(ctx context.Context, vectors []float32, dim int, k int, metric distance.Metric, maxIter int, seed int64) ([]float32, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrInvalidInput, dim)
	}
	n := len(vectors) / dim
	if n < k || k <= 0 {
		return nil, nil
	}

	distFunc, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}
	spherical := metric == distance.MetricInnerProduct

	rng := rand.New(rand.NewSource(seed))
	centroids := make([]float32, k*dim)

	perm := rng.Perm(n)
	for i := 0; i < k; i++ {
		copy(centroids[i*dim:(i+1)*dim], vectors[perm[i]*dim:(perm[i]+1)*dim])
	}

	assignments := make([]int, n)
	for i := range assignments {
		assignments[i] = -1
	}
	counts := make([]int, k)
	sums := make([]float32, k*dim)

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		changed := false
		for i := 0; i < n; i++ {
			best, _ := nearest(vectors[i*dim:(i+1)*dim], centroids, dim, distFunc)
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}

		if !changed {
			break
		}

		clear(sums)
		clear(counts)

		for i := 0; i < n; i++ {
			cluster := assignments[i]
			vec := vectors[i*dim : (i+1)*dim]
			for d := 0; d < dim; d++ {
				sums[cluster*dim+d] += vec[d]
			}
			counts[cluster]++
		}

		for j := 0; j < k; j++ {
			center := centroids[j*dim : (j+1)*dim]
			if counts[j] == 0 {
				// Reseed empty clusters from a random point.
				idx := rng.Intn(n)
				copy(center, vectors[idx*dim:(idx+1)*dim])
				continue
			}
			scale := 1.0 / float32(counts[j])
			for d := 0; d < dim; d++ {
				center[d] = sums[j*dim+d] * scale
			}
			if spherical {
				distance.NormalizeL2InPlace(center)
			}
		}
	}

	return centroids, nil
}

// nearest returns the closest centroid. When no distance is finite and
// comparable (overflowed or NaN) the first centroid wins, so the result is
// always a valid index for at least one centroid.
func nearest(vec, centroids []float32, dim int, distFunc distance.Func) (int, float32) {
	best := 0
	minDist := float32(math.Inf(1))
	for j := 0; j < len(centroids)/dim; j++ {
		d := distFunc(vec, centroids[j*dim:(j+1)*dim])
		if d < minDist {
			minDist = d
			best = j
		}
	}
	return best, minDist
}

// AssignPartition finds the closest centroid for a vector.
func AssignPartition(vec []float32, centroids []float32, dim int, metric distance.Metric) (int, error) {
	if dim <= 0 || len(vec) != dim {
		return 0, fmt.Errorf("%w: vector dimension %d, expected %d", ErrInvalidInput, len(vec), dim)
	}
	if len(centroids) < dim || len(centroids)%dim != 0 {
		return 0, fmt.Errorf("%w: %d centroid values for dimension %d", ErrInvalidInput, len(centroids), dim)
	}
	distFunc, err := distance.Provider(metric)
	if err != nil {
		return 0, err
	}
	best, _ := nearest(vec, centroids, dim, distFunc)
	return best, nil
}

type centroidDist struct {
	id   int
	dist float32
}

// FindClosestCentroids returns the indices of the n closest centroids to the
// query vector, nearest first. Ties are broken by centroid index.
func FindClosestCentroids(query []float32, centroids []float32, dim int, n int, metric distance.Metric) ([]int, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: dimension %d", ErrInvalidInput, dim)
	}
	k := len(centroids) / dim
	n = min(max(n, 0), k)

	distFunc, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	dists := make([]centroidDist, k)
	for i := 0; i < k; i++ {
		dists[i] = centroidDist{id: i, dist: distFunc(query, centroids[i*dim:(i+1)*dim])}
	}

	slices.SortFunc(dists, func(a, b centroidDist) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	result := make([]int, n)
	for i := 0; i < n; i++ {
		result[i] = dists[i].id
	}

	return result, nil
}
