// Package binaryflat implements an exhaustive k-nearest-neighbour index over
// fixed-width binary sketches under Hamming distance.
package binaryflat

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecbucket/distance"
	"github.com/hupe1980/vecbucket/internal/searcher"
	"github.com/hupe1980/vecbucket/model"
)

// ErrWidthMismatch is returned when sketches do not match the index width.
var ErrWidthMismatch = errors.New("binaryflat: sketch width mismatch")

// Index stores sketches contiguously in insertion order.
type Index struct {
	width int
	codes []byte
}

// New creates an empty index for sketches of the given bit length.
// bits must be a multiple of 8.
func New(bits int) (*Index, error) {
	if bits <= 0 || bits%8 != 0 {
		return nil, fmt.Errorf("binaryflat: bit length %d is not a positive multiple of 8", bits)
	}
	return &Index{width: bits / 8}, nil
}

// Bits returns the sketch length in bits.
func (ix *Index) Bits() int { return ix.width * 8 }

// Len returns the number of stored sketches.
func (ix *Index) Len() int { return len(ix.codes) / ix.width }

// Add appends sketches.
func (ix *Index) Add(sketches model.SketchMatrix) error {
	if sketches.Width != ix.width {
		return fmt.Errorf("%w: %d bytes, expected %d", ErrWidthMismatch, sketches.Width, ix.width)
	}
	ix.codes = append(ix.codes, sketches.Data...)
	return nil
}

// Reset removes all stored sketches.
func (ix *Index) Reset() {
	ix.codes = nil
}

// Search returns, per query, the rows of the c nearest sketches ordered by
// Hamming distance and then row. c is clamped to Len(), so every query yields
// exactly min(c, Len()) rows.
func (ix *Index) Search(queries model.SketchMatrix, c int) ([][]int, error) {
	if queries.Width != ix.width {
		return nil, fmt.Errorf("%w: %d bytes, expected %d", ErrWidthMismatch, queries.Width, ix.width)
	}
	c = min(c, ix.Len())

	out := make([][]int, queries.Rows())
	heap := searcher.NewTopK(c)
	buf := make([]searcher.Candidate, c)
	for q := range out {
		query := queries.Row(q)
		heap.Reset(c)
		for row := 0; row < ix.Len(); row++ {
			code := ix.codes[row*ix.width : (row+1)*ix.width]
			heap.Push(int32(row), float32(distance.Hamming(query, code)))
		}
		n := heap.Drain(buf)
		rows := make([]int, n)
		for i := 0; i < n; i++ {
			rows[i] = int(buf[i].Row)
		}
		out[q] = rows
	}
	return out, nil
}
