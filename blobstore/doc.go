// Package blobstore provides storage abstraction for benchmark datasets.
//
// A BlobStore holds named, immutable blobs such as base.fvecs or
// groundtruth.ivecs.zst. The dataset package copies blobs from a store into
// a local cache before decoding them.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with mmap-backed reads
//   - MemoryStore: in-memory, for tests
//   - s3.Store: Amazon S3 with range reads and parallel downloads
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
// Implement BlobStore and Blob to support other backends. Stores that can
// fetch whole objects faster than a single stream should also implement
// Downloader.
package blobstore
