// Package s3 provides an S3 implementation of the blobstore.BlobStore interface.
//
// # Usage
//
//	store, err := s3.New(ctx, "ann-datasets",
//	    s3.WithPrefix("sift1m/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
//	fetcher := dataset.NewFetcher(store, "/var/cache/vecbucket")
//
// # Features
//
//   - Range reads for partial fetches
//   - Parallel multi-part downloads through the SDK transfer manager
//   - Automatic pagination for listing
//   - Configurable key prefix
package s3
