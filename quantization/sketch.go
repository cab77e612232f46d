package quantization

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/hupe1980/vecbucket/distance"
	"github.com/hupe1980/vecbucket/model"
)

// ErrDimensionMismatch is returned when a vector does not match the encoder dimension.
var ErrDimensionMismatch = errors.New("quantization: dimension mismatch")

// Sketcher encodes float vectors into fixed-width binary sketches.
// Bits are packed little-endian within each byte (bit i lives in byte i/8 at
// position i%8).
type Sketcher struct {
	dimension int
	bits      int
	threshold float32

	// planes holds bits*dimension hyperplane normals; nil selects sign encoding.
	planes []float32
}

// NewSignSketcher creates a sign-based sketcher with one bit per dimension.
func NewSignSketcher(dimension int) *Sketcher {
	return &Sketcher{dimension: dimension, bits: dimension}
}

// NewHyperplaneSketcher creates a random-hyperplane sketcher producing the
// given number of bits. Normals are drawn from a seeded Gaussian.
func NewHyperplaneSketcher(dimension, bits int, seed int64) *Sketcher {
	rng := rand.New(rand.NewSource(seed))
	planes := make([]float32, bits*dimension)
	for i := range planes {
		planes[i] = float32(rng.NormFloat64())
	}
	return &Sketcher{dimension: dimension, bits: bits, planes: planes}
}

// WithThreshold sets the value threshold of a sign sketcher.
func (s *Sketcher) WithThreshold(threshold float32) *Sketcher {
	s.threshold = threshold
	return s
}

// Train calibrates a sign sketcher's threshold to the global mean of the data.
// Hyperplane sketchers need no training.
func (s *Sketcher) Train(data model.Matrix) error {
	if data.Rows() == 0 {
		return errors.New("quantization: no vectors provided for training")
	}
	if data.Dim != s.dimension {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, data.Dim, s.dimension)
	}
	if s.planes != nil {
		return nil
	}

	var sum float64
	for _, v := range data.Data {
		sum += float64(v)
	}
	s.threshold = float32(sum / float64(len(data.Data)))
	return nil
}

// Dimension returns the expected vector dimension.
func (s *Sketcher) Dimension() int { return s.dimension }

// Bits returns the sketch length in bits.
func (s *Sketcher) Bits() int { return s.bits }

// Width returns the sketch length in bytes.
func (s *Sketcher) Width() int { return (s.bits + 7) / 8 }

// Threshold returns the sign threshold.
func (s *Sketcher) Threshold() float32 { return s.threshold }

// EncodeInto writes the sketch of v into dst, which must hold Width() bytes.
func (s *Sketcher) EncodeInto(v []float32, dst []byte) {
	clear(dst[:s.Width()])
	for i := 0; i < s.bits; i++ {
		var on bool
		if s.planes == nil {
			on = v[i] >= s.threshold
		} else {
			on = distance.Dot(v, s.planes[i*s.dimension:(i+1)*s.dimension]) >= 0
		}
		if on {
			dst[i/8] |= 1 << (i % 8)
		}
	}
}

// Encode returns the sketch of v.
func (s *Sketcher) Encode(v []float32) []byte {
	dst := make([]byte, s.Width())
	s.EncodeInto(v, dst)
	return dst
}

// EncodeMatrix sketches every row of data.
func (s *Sketcher) EncodeMatrix(data model.Matrix) (model.SketchMatrix, error) {
	if data.Dim != s.dimension {
		return model.SketchMatrix{}, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, data.Dim, s.dimension)
	}
	out := model.NewSketchMatrix(data.Rows(), s.Width())
	for i := 0; i < data.Rows(); i++ {
		s.EncodeInto(data.Row(i), out.Row(i))
	}
	return out, nil
}

// NormalizedHamming returns the Hamming distance between two sketches scaled to [0, 1].
func NormalizedHamming(a, b []byte) float32 {
	if len(a) == 0 {
		return 0
	}
	return float32(distance.Hamming(a, b)) / float32(len(a)*8)
}
