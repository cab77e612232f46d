// Package kmeans implements seeded Lloyd k-means clustering.
//
// It trains the coarse quantizer of the inverted-file index and answers
// nearest-centroid queries for partition assignment and probing.
package kmeans
