package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vecbucket/blobstore"
	"github.com/hupe1980/vecbucket/internal/resource"
)

// Fetcher copies dataset files from a blob store into a local cache
// directory. Files already present with the remote size are not fetched
// again.
type Fetcher struct {
	store  blobstore.BlobStore
	dir    string
	rc     *resource.Controller
	logger *slog.Logger
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithController limits transfer concurrency and bandwidth.
func WithController(rc *resource.Controller) FetcherOption {
	return func(f *Fetcher) {
		f.rc = rc
	}
}

// WithFetchLogger sets the logger used for per-file progress.
func WithFetchLogger(l *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFetcher creates a Fetcher that caches blobs of store under dir.
func NewFetcher(store blobstore.BlobStore, dir string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		store:  store,
		dir:    dir,
		rc:     resource.NewController(resource.Config{MaxTransfers: 4}),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Dir returns the cache directory.
func (f *Fetcher) Dir() string { return f.dir }

// FetchLayout fetches the files of layout. Base and queries must exist in
// the store; the optional files are skipped when missing.
func (f *Fetcher) FetchLayout(ctx context.Context, layout Layout) error {
	if layout.Base == "" || layout.Queries == "" {
		return errors.New("dataset: layout needs base and queries")
	}
	required := map[string]bool{layout.Base: true, layout.Queries: true}

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range layout.Files() {
		g.Go(func() error {
			_, err := f.Fetch(ctx, name)
			if err != nil && !required[name] && errors.Is(err, blobstore.ErrNotFound) {
				f.logger.DebugContext(ctx, "optional file missing", "name", name)
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// Fetch copies one blob into the cache directory and returns its local
// path.
func (f *Fetcher) Fetch(ctx context.Context, name string) (string, error) {
	if err := f.rc.AcquireTransfer(ctx); err != nil {
		return "", err
	}
	defer f.rc.ReleaseTransfer()

	path := filepath.Join(f.dir, filepath.FromSlash(name))

	b, err := f.store.Open(ctx, name)
	if err != nil {
		return "", fmt.Errorf("dataset: fetch %s: %w", name, err)
	}
	defer b.Close()

	if st, err := os.Stat(path); err == nil && st.Size() == b.Size() {
		f.logger.DebugContext(ctx, "cached", "name", name, "bytes", st.Size())
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	n, err := f.copy(ctx, name, b, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("dataset: fetch %s: %w", name, err)
	}
	if n != b.Size() {
		return "", fmt.Errorf("dataset: fetch %s: short copy %d of %d bytes", name, n, b.Size())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", err
	}

	f.logger.InfoContext(ctx, "fetched", "name", name, "bytes", n)
	return path, nil
}

// copy uses the store's parallel downloader unless a bandwidth limit is
// configured.
func (f *Fetcher) copy(ctx context.Context, name string, b blobstore.Blob, dst *os.File) (int64, error) {
	if d, ok := f.store.(blobstore.Downloader); ok && !f.rc.Limited() {
		return d.Download(ctx, name, dst)
	}

	rc, err := b.ReadRange(ctx, 0, b.Size())
	if err != nil {
		return 0, err
	}
	defer rc.Close()

	return io.Copy(dst, resource.NewRateLimitedReader(ctx, rc, f.rc))
}
