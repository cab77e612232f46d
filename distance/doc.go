// Package distance provides vector similarity and distance calculations.
//
// Float kernels are backed by github.com/viterin/vek/vek32, which dispatches to
// AVX2 implementations on x86-64 and falls back to pure Go elsewhere.
//
// # Supported Metrics
//
//   - MetricInnerProduct: 1 - <a, b> (default; cosine on unit vectors)
//   - MetricL2: squared Euclidean distance
//
// Binary sketches are compared with Hamming.
//
// # Usage
//
//	sim := distance.Dot(a, b)
//	d := distance.InnerProduct(a, b) // 1 - sim
//	distance.NormalizeL2InPlace(vec)
package distance
