// Package dataset is the ingestion boundary of the benchmark: it turns files
// into matrices and matrices into files.
//
// Files use the TEXMEX vecs layout, a stream of little-endian records
// [int32 dim][dim values]:
//
//	.fvecs   float32 vectors (base and query sets)
//	.ivecs   int32 neighbour ids (ground truth)
//	.u8vecs  byte vectors (binary sketches)
//
// Any of them may carry a .zst or .lz4 suffix. Remote datasets are copied
// into a local cache directory by a Fetcher before they are decoded.
package dataset
