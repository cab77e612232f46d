// Package searcher provides the bounded top-k heap shared by every bucket
// search path (exact scan, partition probing and sketch reranking).
package searcher
