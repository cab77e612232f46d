package model

import (
	"fmt"
	"math"
	"time"
)

// NoID marks an empty neighbour slot.
const NoID int64 = -1

// Matrix is a dense row-major matrix of float32 vectors.
type Matrix struct {
	Data []float32
	Dim  int
}

// NewMatrix allocates a zeroed matrix with the given shape.
func NewMatrix(rows, dim int) Matrix {
	return Matrix{Data: make([]float32, rows*dim), Dim: dim}
}

// MatrixFromRows copies rows into a contiguous matrix.
// All rows must have the same length.
func MatrixFromRows(rows [][]float32) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, nil
	}
	dim := len(rows[0])
	m := NewMatrix(len(rows), dim)
	for i, r := range rows {
		if len(r) != dim {
			return Matrix{}, fmt.Errorf("row %d has dimension %d, expected %d", i, len(r), dim)
		}
		copy(m.Data[i*dim:], r)
	}
	return m, nil
}

// Rows returns the number of vectors in the matrix.
func (m Matrix) Rows() int {
	if m.Dim == 0 {
		return 0
	}
	return len(m.Data) / m.Dim
}

// Row returns the i-th vector. The slice aliases the matrix storage.
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Dim : (i+1)*m.Dim]
}

// Select gathers the given rows into a new matrix.
func (m Matrix) Select(rows []int) Matrix {
	out := NewMatrix(len(rows), m.Dim)
	for j, i := range rows {
		copy(out.Data[j*m.Dim:], m.Row(i))
	}
	return out
}

// SketchMatrix is a row-major matrix of fixed-width binary sketches.
// A sketch of Width bytes is a bit vector of Width*8 bits.
type SketchMatrix struct {
	Data  []byte
	Width int
}

// NewSketchMatrix allocates a zeroed sketch matrix.
func NewSketchMatrix(rows, width int) SketchMatrix {
	return SketchMatrix{Data: make([]byte, rows*width), Width: width}
}

// IsZero reports whether no sketches are present.
func (s SketchMatrix) IsZero() bool {
	return s.Width == 0 && len(s.Data) == 0
}

// Rows returns the number of sketches.
func (s SketchMatrix) Rows() int {
	if s.Width == 0 {
		return 0
	}
	return len(s.Data) / s.Width
}

// Row returns the i-th sketch. The slice aliases the matrix storage.
func (s SketchMatrix) Row(i int) []byte {
	return s.Data[i*s.Width : (i+1)*s.Width]
}

// Bits returns the sketch length in bits.
func (s SketchMatrix) Bits() int {
	return s.Width * 8
}

// Select gathers the given rows into a new sketch matrix.
func (s SketchMatrix) Select(rows []int) SketchMatrix {
	out := NewSketchMatrix(len(rows), s.Width)
	for j, i := range rows {
		copy(out.Data[j*s.Width:], s.Row(i))
	}
	return out
}

// Computations counts exact pairwise similarity evaluations.
//
// Unmeasured means the backing implementation cannot report the count. It is
// absorbing: adding anything to Unmeasured yields Unmeasured.
type Computations int64

// Unmeasured is the "not instrumented" sentinel, distinct from zero work.
const Unmeasured Computations = math.MinInt64

// Measured reports whether c holds a real count.
func (c Computations) Measured() bool {
	return c != Unmeasured
}

// Add returns c + o, propagating Unmeasured.
func (c Computations) Add(o Computations) Computations {
	if !c.Measured() || !o.Measured() {
		return Unmeasured
	}
	return c + o
}

func (c Computations) String() string {
	if !c.Measured() {
		return "-Inf"
	}
	return fmt.Sprintf("%d", int64(c))
}

// Result holds the k nearest neighbours of a query batch.
type Result struct {
	// K is the number of neighbour slots per query.
	K int

	// IDs are external identifiers resolved through the bucket's identifier map.
	IDs []int64

	// Rows are the bucket-local row indices behind IDs (-1 for empty slots).
	Rows []int

	// Distances are ascending per query; smaller means more similar.
	Distances []float32

	// Elapsed is the search time, additive across sub-calls.
	Elapsed time.Duration

	// DistanceComputations is the exact-distance cost, additive across sub-calls.
	DistanceComputations Computations
}

// NewResult allocates a result for n queries with every slot empty.
func NewResult(n, k int) *Result {
	r := &Result{
		K:         k,
		IDs:       make([]int64, n*k),
		Rows:      make([]int, n*k),
		Distances: make([]float32, n*k),
	}
	for i := range r.IDs {
		r.IDs[i] = NoID
		r.Rows[i] = -1
		r.Distances[i] = float32(math.Inf(1))
	}
	return r
}

// Len returns the number of queries in the result.
func (r *Result) Len() int {
	if r.K == 0 {
		return 0
	}
	return len(r.IDs) / r.K
}

// QueryIDs returns the identifiers found for query i.
func (r *Result) QueryIDs(i int) []int64 {
	return r.IDs[i*r.K : (i+1)*r.K]
}

// QueryDistances returns the distances found for query i.
func (r *Result) QueryDistances(i int) []float32 {
	return r.Distances[i*r.K : (i+1)*r.K]
}

// QueryRows returns the local rows found for query i.
func (r *Result) QueryRows(i int) []int {
	return r.Rows[i*r.K : (i+1)*r.K]
}

// RoutedResult is a Result produced by grouped dispatch.
type RoutedResult struct {
	Result

	// Applied holds, per query, the routing value the bucket actually used
	// after clamping.
	Applied []int
}
