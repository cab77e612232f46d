package bench

import (
	"context"
	"fmt"
	"math"

	"github.com/hupe1980/vecbucket/distance"
	"github.com/hupe1980/vecbucket/internal/kmeans"
	"github.com/hupe1980/vecbucket/model"
)

// navigator clusters the data into buckets and orders buckets per query.
type navigator struct {
	centroids []float32
	dim       int
	buckets   int
}

func trainNavigator(ctx context.Context, data model.Matrix, buckets, maxIter int, seed int64) (*navigator, error) {
	if buckets <= 1 {
		return &navigator{dim: data.Dim, buckets: 1}, nil
	}
	if maxIter <= 0 {
		maxIter = 25
	}
	centroids, err := kmeans.TrainKMeans(ctx, data.Data, data.Dim, buckets, distance.MetricInnerProduct, maxIter, seed)
	if err != nil {
		return nil, err
	}
	if centroids == nil {
		return nil, fmt.Errorf("bench: %d vectors cannot form %d buckets", data.Rows(), buckets)
	}
	return &navigator{centroids: centroids, dim: data.Dim, buckets: len(centroids) / data.Dim}, nil
}

// assign returns the bucket of every row.
func (n *navigator) assign(data model.Matrix) ([]int, error) {
	out := make([]int, data.Rows())
	if n.buckets == 1 {
		return out, nil
	}
	for i := range out {
		b, err := kmeans.AssignPartition(data.Row(i), n.centroids, n.dim, distance.MetricInnerProduct)
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// route returns, per query, the nb closest buckets and their weights. The
// weight of a bucket is exp((sim - best) / temperature).
func (n *navigator) route(queries model.Matrix, nb int, temperature float32) ([][]int, [][]float32, error) {
	order := make([][]int, queries.Rows())
	weights := make([][]float32, queries.Rows())
	if n.buckets == 1 {
		for i := range order {
			order[i] = []int{0}
			weights[i] = []float32{1}
		}
		return order, weights, nil
	}

	for i := range order {
		q := queries.Row(i)
		closest, err := kmeans.FindClosestCentroids(q, n.centroids, n.dim, nb, distance.MetricInnerProduct)
		if err != nil {
			return nil, nil, err
		}
		w := make([]float32, len(closest))
		best := distance.Dot(q, n.centroids[closest[0]*n.dim:(closest[0]+1)*n.dim])
		for j, c := range closest {
			sim := distance.Dot(q, n.centroids[c*n.dim:(c+1)*n.dim])
			w[j] = float32(math.Exp(float64((sim - best) / temperature)))
		}
		order[i] = closest
		weights[i] = w
	}
	return order, weights, nil
}
