package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"path"
	"strings"

	"github.com/hupe1980/vecbucket/internal/conv"
	"github.com/hupe1980/vecbucket/model"
)

// ErrCorrupt is returned for truncated or inconsistent vecs files.
var ErrCorrupt = errors.New("dataset: corrupt vecs file")

// ErrUnknownFormat is returned for file names without a known extension.
var ErrUnknownFormat = errors.New("dataset: unknown file format")

// Format is the element type of a vecs file.
type Format int

const (
	FormatFvecs Format = iota
	FormatIvecs
	FormatU8vecs
)

func (f Format) String() string {
	switch f {
	case FormatFvecs:
		return "fvecs"
	case FormatIvecs:
		return "ivecs"
	case FormatU8vecs:
		return "u8vecs"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

func (f Format) elemSize() int {
	if f == FormatU8vecs {
		return 1
	}
	return 4
}

// ParseName derives format and compression from a file name such as
// "groundtruth.ivecs.zst".
func ParseName(name string) (Format, Compression, error) {
	base := path.Base(name)

	c := CompressionNone
	switch {
	case strings.HasSuffix(base, ".zst"):
		c, base = CompressionZSTD, strings.TrimSuffix(base, ".zst")
	case strings.HasSuffix(base, ".lz4"):
		c, base = CompressionLZ4, strings.TrimSuffix(base, ".lz4")
	}

	switch path.Ext(base) {
	case ".fvecs":
		return FormatFvecs, c, nil
	case ".ivecs":
		return FormatIvecs, c, nil
	case ".u8vecs":
		return FormatU8vecs, c, nil
	default:
		return 0, c, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}
}

// records validates the record stream and returns the row count and
// dimension. An empty stream has zero rows and dimension.
func records(data []byte, f Format) (rows, dim int, err error) {
	if len(data) == 0 {
		return 0, 0, nil
	}
	if len(data) < 4 {
		return 0, 0, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(data))
	}
	d := int32(binary.LittleEndian.Uint32(data))
	if d <= 0 {
		return 0, 0, fmt.Errorf("%w: dimension %d", ErrCorrupt, d)
	}
	dim = int(d)
	stride := 4 + dim*f.elemSize()
	if len(data)%stride != 0 {
		return 0, 0, fmt.Errorf("%w: size %d is not a multiple of record size %d", ErrCorrupt, len(data), stride)
	}
	rows = len(data) / stride
	for i := 1; i < rows; i++ {
		if got := int(int32(binary.LittleEndian.Uint32(data[i*stride:]))); got != dim {
			return 0, 0, fmt.Errorf("%w: record %d has dimension %d, expected %d", ErrCorrupt, i, got, dim)
		}
	}
	return rows, dim, nil
}

// DecodeFvecs decodes a float32 record stream.
func DecodeFvecs(data []byte) (model.Matrix, error) {
	rows, dim, err := records(data, FormatFvecs)
	if err != nil {
		return model.Matrix{}, err
	}
	m := model.NewMatrix(rows, dim)
	stride := 4 + 4*dim
	for i := 0; i < rows; i++ {
		rec := data[i*stride+4 : (i+1)*stride]
		row := m.Row(i)
		for j := range row {
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(rec[4*j:]))
		}
	}
	return m, nil
}

// DecodeIvecs decodes an int32 record stream into neighbour lists.
func DecodeIvecs(data []byte) ([][]int64, error) {
	rows, dim, err := records(data, FormatIvecs)
	if err != nil {
		return nil, err
	}
	out := make([][]int64, rows)
	flat := make([]int64, rows*dim)
	stride := 4 + 4*dim
	for i := 0; i < rows; i++ {
		rec := data[i*stride+4 : (i+1)*stride]
		row := flat[i*dim : (i+1)*dim : (i+1)*dim]
		for j := range row {
			row[j] = int64(int32(binary.LittleEndian.Uint32(rec[4*j:])))
		}
		out[i] = row
	}
	return out, nil
}

// DecodeU8vecs decodes a byte record stream into sketches.
func DecodeU8vecs(data []byte) (model.SketchMatrix, error) {
	rows, dim, err := records(data, FormatU8vecs)
	if err != nil {
		return model.SketchMatrix{}, err
	}
	s := model.NewSketchMatrix(rows, dim)
	stride := 4 + dim
	for i := 0; i < rows; i++ {
		copy(s.Row(i), data[i*stride+4:(i+1)*stride])
	}
	return s, nil
}

// EncodeFvecs writes m as a float32 record stream.
func EncodeFvecs(w io.Writer, m model.Matrix) error {
	if m.Rows() == 0 {
		return nil
	}
	hdr, err := conv.DimToUint32(m.Dim)
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	bw := bufio.NewWriter(w)
	rec := make([]byte, 4+4*m.Dim)
	binary.LittleEndian.PutUint32(rec, hdr)
	for i := 0; i < m.Rows(); i++ {
		for j, v := range m.Row(i) {
			binary.LittleEndian.PutUint32(rec[4+4*j:], math.Float32bits(v))
		}
		if _, err := bw.Write(rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EncodeIvecs writes neighbour lists as an int32 record stream. All rows
// must have the same length.
func EncodeIvecs(w io.Writer, rows [][]int64) error {
	if len(rows) == 0 {
		return nil
	}
	dim := len(rows[0])
	hdr, err := conv.DimToUint32(dim)
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	bw := bufio.NewWriter(w)
	rec := make([]byte, 4+4*dim)
	binary.LittleEndian.PutUint32(rec, hdr)
	for i, row := range rows {
		if len(row) != dim {
			return fmt.Errorf("dataset: row %d has %d ids, expected %d", i, len(row), dim)
		}
		for j, id := range row {
			v, err := conv.Int64ToInt32(id)
			if err != nil {
				return fmt.Errorf("dataset: row %d: %w", i, err)
			}
			binary.LittleEndian.PutUint32(rec[4+4*j:], uint32(v))
		}
		if _, err := bw.Write(rec); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// EncodeU8vecs writes sketches as a byte record stream.
func EncodeU8vecs(w io.Writer, s model.SketchMatrix) error {
	if s.Rows() == 0 {
		return nil
	}
	width, err := conv.DimToUint32(s.Width)
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	bw := bufio.NewWriter(w)
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], width)
	for i := 0; i < s.Rows(); i++ {
		if _, err := bw.Write(hdr[:]); err != nil {
			return err
		}
		if _, err := bw.Write(s.Row(i)); err != nil {
			return err
		}
	}
	return bw.Flush()
}
