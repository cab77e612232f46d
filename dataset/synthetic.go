package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/hupe1980/vecbucket/bucket"
	"github.com/hupe1980/vecbucket/model"
	"github.com/hupe1980/vecbucket/quantization"
)

// SyntheticConfig describes a generated dataset.
type SyntheticConfig struct {
	N        int     `yaml:"n"`
	Queries  int     `yaml:"queries"`
	Dim      int     `yaml:"dim"`
	Clusters int     `yaml:"clusters"`
	Spread   float32 `yaml:"spread"`

	// SketchBits is the length of the random-hyperplane sketches. Zero
	// disables sketches; otherwise it must be a positive multiple of 8.
	SketchBits int `yaml:"sketch_bits"`

	// K is the ground-truth depth. Zero disables ground truth.
	K int `yaml:"k"`

	Seed int64 `yaml:"seed"`
}

func (c SyntheticConfig) validate() error {
	switch {
	case c.N <= 0 || c.Queries < 0:
		return fmt.Errorf("dataset: synthetic sizes n=%d queries=%d", c.N, c.Queries)
	case c.Dim <= 0:
		return fmt.Errorf("dataset: synthetic dimension %d", c.Dim)
	case c.Clusters <= 0:
		return fmt.Errorf("dataset: synthetic clusters %d", c.Clusters)
	case c.SketchBits < 0 || c.SketchBits%8 != 0:
		return fmt.Errorf("dataset: sketch bits %d is not a multiple of 8", c.SketchBits)
	case c.K < 0 || c.K > c.N:
		return fmt.Errorf("dataset: ground-truth depth %d for %d vectors", c.K, c.N)
	}
	return nil
}

// Synthetic generates unit vectors around random unit centroids. Base and
// query vectors share the centroids, so queries have true near neighbours.
// Ground truth is computed exactly by brute force.
func Synthetic(ctx context.Context, cfg SyntheticConfig) (*Dataset, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	centroids := model.NewMatrix(cfg.Clusters, cfg.Dim)
	for i := range centroids.Data {
		centroids.Data[i] = float32(rng.NormFloat64())
	}
	Normalize(centroids)

	d := &Dataset{
		Name:    fmt.Sprintf("synthetic-%dx%d", cfg.N, cfg.Dim),
		Data:    scatter(rng, centroids, cfg.N, cfg.Spread),
		Queries: scatter(rng, centroids, cfg.Queries, cfg.Spread),
		IDs:     make([]int64, cfg.N),
	}
	for i := range d.IDs {
		d.IDs[i] = int64(i)
	}

	if cfg.SketchBits > 0 {
		enc := quantization.NewHyperplaneSketcher(cfg.Dim, cfg.SketchBits, cfg.Seed)
		var err error
		if d.Sketches, err = enc.EncodeMatrix(d.Data); err != nil {
			return nil, err
		}
		if d.QuerySketches, err = enc.EncodeMatrix(d.Queries); err != nil {
			return nil, err
		}
	}

	if cfg.K > 0 && cfg.Queries > 0 {
		gt, err := GroundTruth(ctx, d.Data, d.IDs, d.Queries, cfg.K)
		if err != nil {
			return nil, err
		}
		d.GroundTruth = gt
	}
	return d, nil
}

func scatter(rng *rand.Rand, centroids model.Matrix, n int, spread float32) model.Matrix {
	m := model.NewMatrix(n, centroids.Dim)
	for i := 0; i < n; i++ {
		c := centroids.Row(rng.Intn(centroids.Rows()))
		row := m.Row(i)
		for j := range row {
			row[j] = c[j] + float32(rng.NormFloat64())*spread
		}
	}
	Normalize(m)
	return m
}

// GroundTruth returns the exact k nearest identifiers of every query.
func GroundTruth(ctx context.Context, data model.Matrix, ids []int64, queries model.Matrix, k int) ([][]int64, error) {
	if k <= 0 {
		return nil, errors.New("dataset: ground-truth depth must be positive")
	}
	bf, err := bucket.NewBruteForce()
	if err != nil {
		return nil, err
	}
	if _, err := bf.Build(ctx, data, ids, bucket.TrainOptions{}); err != nil {
		return nil, err
	}
	res, err := bf.Search(ctx, queries, k, bucket.SearchOptions{})
	if err != nil {
		return nil, err
	}

	out := make([][]int64, queries.Rows())
	for i := range out {
		out[i] = append([]int64(nil), res.QueryIDs(i)...)
	}
	return out, nil
}
