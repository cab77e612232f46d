package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/vecbucket/internal/mmap"
	"github.com/hupe1980/vecbucket/model"
)

// readPayload maps path and returns its decompressed content. release must
// be called once the payload has been decoded.
func readPayload(path string, want Format) ([]byte, func(), error) {
	format, c, err := ParseName(path)
	if err != nil {
		return nil, nil, err
	}
	if format != want {
		return nil, nil, fmt.Errorf("%w: %s is %s, expected %s", ErrUnknownFormat, path, format, want)
	}

	m, err := mmap.Open(path)
	if err != nil {
		return nil, nil, err
	}
	_ = m.Advise(mmap.AccessSequential)

	if c == CompressionNone {
		return m.Bytes(), func() { _ = m.Close() }, nil
	}

	data, err := decompress(m.Bytes(), c)
	_ = m.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return data, func() {}, nil
}

// LoadMatrix reads an .fvecs file.
func LoadMatrix(path string) (model.Matrix, error) {
	data, release, err := readPayload(path, FormatFvecs)
	if err != nil {
		return model.Matrix{}, err
	}
	defer release()

	m, err := DecodeFvecs(data)
	if err != nil {
		return model.Matrix{}, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// LoadNeighbors reads an .ivecs file.
func LoadNeighbors(path string) ([][]int64, error) {
	data, release, err := readPayload(path, FormatIvecs)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := DecodeIvecs(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// LoadSketches reads a .u8vecs file.
func LoadSketches(path string) (model.SketchMatrix, error) {
	data, release, err := readPayload(path, FormatU8vecs)
	if err != nil {
		return model.SketchMatrix{}, err
	}
	defer release()

	s, err := DecodeU8vecs(data)
	if err != nil {
		return model.SketchMatrix{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// writeFile creates path, compressing by its suffix, and fills it with encode.
func writeFile(path string, want Format, encode func(w io.Writer) error) error {
	format, c, err := ParseName(path)
	if err != nil {
		return err
	}
	if format != want {
		return fmt.Errorf("%w: %s is %s, expected %s", ErrUnknownFormat, path, format, want)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	cw, err := compressor(f, c)
	if err != nil {
		f.Close()
		return err
	}
	if err := encode(cw); err != nil {
		cw.Close()
		f.Close()
		return err
	}
	if err := cw.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SaveMatrix writes an .fvecs file.
func SaveMatrix(path string, m model.Matrix) error {
	return writeFile(path, FormatFvecs, func(w io.Writer) error { return EncodeFvecs(w, m) })
}

// SaveNeighbors writes an .ivecs file.
func SaveNeighbors(path string, rows [][]int64) error {
	return writeFile(path, FormatIvecs, func(w io.Writer) error { return EncodeIvecs(w, rows) })
}

// SaveSketches writes a .u8vecs file.
func SaveSketches(path string, s model.SketchMatrix) error {
	return writeFile(path, FormatU8vecs, func(w io.Writer) error { return EncodeU8vecs(w, s) })
}
