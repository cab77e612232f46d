package bench

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/hupe1980/vecbucket/blobstore"
	"github.com/hupe1980/vecbucket/blobstore/minio"
	"github.com/hupe1980/vecbucket/blobstore/s3"
	"github.com/hupe1980/vecbucket/dataset"
	"github.com/hupe1980/vecbucket/internal/resource"
)

// OpenStore opens the blob store a dataset is fetched from.
func OpenStore(ctx context.Context, cfg SourceConfig) (blobstore.BlobStore, error) {
	switch cfg.Type {
	case "local":
		return blobstore.NewLocalStore(cfg.Path), nil
	case "s3":
		store, err := s3.New(ctx, cfg.Bucket, s3.WithPrefix(cfg.Prefix), s3.WithRegion(cfg.Region))
		if err != nil {
			return nil, err
		}
		return store, nil
	case "minio":
		access, secret := cfg.AccessKey, cfg.SecretKey
		if access == "" {
			access = os.Getenv("MINIO_ACCESS_KEY")
		}
		if secret == "" {
			secret = os.Getenv("MINIO_SECRET_KEY")
		}
		store, err := minio.Dial(cfg.Endpoint, cfg.Bucket,
			minio.WithCredentials(access, secret),
			minio.WithSecure(cfg.Secure),
			minio.WithRegion(cfg.Region),
			minio.WithPrefix(cfg.Prefix),
		)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("bench: unknown source type %q", cfg.Type)
	}
}

// Provision produces the dataset of a run: generated, loaded from a local
// directory, or fetched into the cache directory and loaded from there.
func Provision(ctx context.Context, cfg DatasetConfig, logger *slog.Logger) (*dataset.Dataset, error) {
	var (
		d   *dataset.Dataset
		err error
	)
	switch {
	case cfg.Synthetic != nil:
		d, err = dataset.Synthetic(ctx, *cfg.Synthetic)
	case cfg.Dir != "":
		d, err = dataset.Load(cfg.Dir, cfg.layout())
	case cfg.Source != nil:
		d, err = fetch(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("bench: no dataset configured")
	}
	if err != nil {
		return nil, err
	}

	if cfg.Normalize {
		dataset.Normalize(d.Data)
		dataset.Normalize(d.Queries)
	}
	return d, nil
}

func fetch(ctx context.Context, cfg DatasetConfig, logger *slog.Logger) (*dataset.Dataset, error) {
	store, err := OpenStore(ctx, *cfg.Source)
	if err != nil {
		return nil, err
	}

	rc := resource.NewController(resource.Config{
		MaxTransfers:       cfg.MaxTransfers,
		IOLimitBytesPerSec: cfg.BandwidthBytesPerS,
	})
	f := dataset.NewFetcher(store, cfg.CacheDir, dataset.WithController(rc), dataset.WithFetchLogger(logger))

	layout := cfg.layout()
	if err := f.FetchLayout(ctx, layout); err != nil {
		return nil, err
	}
	return dataset.Load(f.Dir(), layout)
}
