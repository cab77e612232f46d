// Package ivf implements an inverted-file index with a flat (uncompressed)
// vector store.
//
// A k-means coarse quantizer splits the collection into nlist partitions.
// Each partition keeps a roaring bitmap of the rows assigned to it. A search
// ranks the centroids for every query, scans the nprobe nearest partitions
// exhaustively and keeps the k best rows.
//
// Every exact distance evaluation (query/centroid and query/vector) goes
// through a DistanceComputer, so callers can measure search cost independently
// of wall-clock time.
package ivf
