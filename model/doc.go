// Package model defines the core data types shared by buckets, the dispatcher
// and the multi-bucket index.
//
// # Data Types
//
//   - Matrix: dense row-major float32 vectors of fixed dimension
//   - SketchMatrix: fixed-width binary sketches, one per vector
//   - Result / RoutedResult: k nearest neighbours per query plus cost metrics
//   - Computations: additive distance-computation counter with an Unmeasured sentinel
//
// Results are row-major: the neighbours of query i live at [i*K, (i+1)*K).
// Missing neighbours (fewer than K candidates) are reported as NoID with an
// infinite distance.
package model
