// Package testutil provides testing utilities for vecbucket.
//
// This package is intended for use in tests and benchmarks only. It generates
// reproducible vector collections and exact ground truth.
//
//	rng := testutil.NewRNG(seed)
//	data := rng.UnitMatrix(1000, 64)
//	truth := testutil.ExactTopK(data, queries, 10)
package testutil
