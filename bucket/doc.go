// Package bucket defines the search-strategy contract shared by every bucket
// variant and the grouped dispatcher that serves per-query routing.
//
// A bucket is a self-contained vector collection plus one search algorithm.
// Four variants are provided:
//
//   - BruteForce: exact inner-product scan
//   - IVF: inverted-file index with per-call distance accounting
//   - IVFReference: library-backed inverted file (FAISS, build tag "faiss")
//   - Sketch: Hamming prefilter over binary sketches, exact rerank
//
// # Lifecycle
//
//	b, _ := bucket.New(bucket.KindIVF, bucket.WithSeed(1))
//	_, _ = b.Train(ctx, sample, bucket.TrainOptions{NList: 64})
//	_, _ = b.Add(ctx, data, ids, bucket.AddOptions{})
//	res, _ := b.Search(ctx, queries, 10, bucket.SearchOptions{NProbe: 8})
//
// # Routing
//
// Every variant exposes one integer routing parameter: nprobe for the
// inverted-file variants and the candidate-pool size c for Sketch. Search
// applies one value to the whole batch, SearchWithRouting accepts one value
// per query. Out-of-range values are clamped, never rejected, and the value
// actually used is reported in RoutedResult.Applied.
//
// Buckets are single-writer: Train, Add and Reset must not run concurrently
// with searches. Searches may run concurrently with each other.
package bucket
