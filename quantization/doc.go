// Package quantization compresses float vectors into binary sketches.
//
// A sketch is a packed bit vector compared by Hamming distance. Sketches are
// used only to prefilter candidates before exact reranking, so the encoders
// favour speed over reconstruction quality.
//
// Two encoders are provided:
//
//   - Sign: one bit per dimension, set when the value is at or above a
//     threshold (0 by default, or the training mean).
//   - Hyperplane: one bit per random hyperplane (SimHash), set when the
//     vector lies on the positive side. The bit count is independent of the
//     vector dimension.
//
// Usage:
//
//	enc := quantization.NewHyperplaneSketcher(768, 1024, 42)
//	sketches, err := enc.EncodeMatrix(data)
package quantization
