package report

import (
	"context"
	"fmt"
	"io"
	"path"
	"sync"

	"github.com/hupe1980/vecbucket/blobstore"
	"github.com/hupe1980/vecbucket/codec"
)

// FileSink stores each report as a blob named
// <prefix>/<run id>/<seq>-<kind>-<mode>-<routing>.<ext>.
type FileSink struct {
	store  blobstore.BlobStore
	codec  codec.Codec
	prefix string
}

// NewFileSink creates a FileSink encoding with c.
func NewFileSink(store blobstore.BlobStore, prefix string, c codec.Codec) *FileSink {
	if c == nil {
		c = codec.Default
	}
	return &FileSink{store: store, codec: c, prefix: prefix}
}

// Name returns the blob name of r.
func (s *FileSink) Name(r *Report) string {
	ext := "json"
	if s.codec.Name() == "msgpack" {
		ext = "msgpack"
	}
	file := fmt.Sprintf("%04d-%s-%s-%d.%s", r.Seq, r.Kind, r.Mode, r.Routing, ext)
	return path.Join(s.prefix, r.RunID, file)
}

// Write stores r.
func (s *FileSink) Write(ctx context.Context, r *Report) error {
	if err := r.Validate(); err != nil {
		return err
	}
	data, err := s.codec.Marshal(r)
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	return s.store.Put(ctx, s.Name(r), data)
}

// Load reads back every report of a run, ordered by sequence number.
func (s *FileSink) Load(ctx context.Context, runID string) ([]*Report, error) {
	names, err := s.store.List(ctx, path.Join(s.prefix, runID)+"/")
	if err != nil {
		return nil, err
	}
	out := make([]*Report, 0, len(names))
	for _, name := range names {
		data, err := blobstore.ReadAll(ctx, s.store, name)
		if err != nil {
			return nil, err
		}
		r := new(Report)
		if err := s.codec.Unmarshal(data, r); err != nil {
			return nil, fmt.Errorf("report: decode %s: %w", name, err)
		}
		out = append(out, r)
	}
	return out, nil
}

// WriterSink writes one JSON object per line.
type WriterSink struct {
	mu  sync.Mutex
	w   io.Writer
	buf []byte
}

// NewWriterSink creates a WriterSink on w.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Write appends r as a single line.
func (s *WriterSink) Write(_ context.Context, r *Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	s.buf, err = codec.GoJSON{}.Append(s.buf[:0], r)
	if err != nil {
		return fmt.Errorf("report: encode: %w", err)
	}
	s.buf = append(s.buf, '\n')
	_, err = s.w.Write(s.buf)
	return err
}
