// Package minio provides a BlobStore implementation using the MinIO client.
//
// It works with MinIO and other S3-compatible services such as Ceph,
// SeaweedFS and Garage.
//
// # Basic Usage
//
//	store, err := minioblob.Dial("localhost:9000", "ann-datasets",
//	    minioblob.WithCredentials("minioadmin", "minioadmin"),
//	    minioblob.WithPrefix("glove-100/"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fetcher := dataset.NewFetcher(store, cacheDir)
package minio
