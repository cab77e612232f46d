package ivf

import "github.com/hupe1980/vecbucket/distance"

// DistanceComputer evaluates distances and counts every evaluation.
// It is not safe for concurrent use; each search call owns one.
type DistanceComputer struct {
	fn    distance.Func
	count int64
}

// NewDistanceComputer creates a counting computer for the given metric.
func NewDistanceComputer(metric distance.Metric) (*DistanceComputer, error) {
	fn, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}
	return &DistanceComputer{fn: fn}, nil
}

// Distance returns the distance between a and b.
func (dc *DistanceComputer) Distance(a, b []float32) float32 {
	dc.count++
	return dc.fn(a, b)
}

// Computations returns the number of evaluations performed so far.
func (dc *DistanceComputer) Computations() int64 {
	return dc.count
}
