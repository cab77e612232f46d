// Package vecbucket is a benchmarking engine for approximate nearest-neighbour
// search organised around buckets.
//
// A bucket (package bucket) is a vector collection plus one search strategy:
// brute force, an inverted file, a FAISS-backed inverted file, or a binary
// sketch prefilter with exact rerank. This package composes many buckets of
// the same kind into an Index: an external navigation model assigns every
// vector to a bucket and gives every query a visiting order, and the Index
// searches the first NBuckets buckets of that order and merges the results.
//
// # Quick Start
//
//	idx, err := vecbucket.New(bucket.KindIVF,
//	    vecbucket.WithLogger(vecbucket.NewTextLogger(slog.LevelInfo)),
//	    vecbucket.WithBucketOptions(bucket.WithSeed(42)),
//	)
//	stats, err := idx.Build(ctx, data, ids, assignment, bucket.TrainOptions{NList: 16})
//	res, err := idx.Search(ctx, queries, 10, order, vecbucket.SearchOptions{NBuckets: 2})
//
// # Routing budgets
//
// With SearchOptions.Dynamic the routing value (nprobe or c) becomes a
// per-query budget that is split across the visited buckets in proportion
// to the navigation weights. With Overflow, budget a bucket could not use
// because of clamping flows on to the next bucket.
//
// # Observability
//
// Index logs build and search summaries through a slog-based Logger and
// reports timings to a MetricsCollector.
package vecbucket
