package eval

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// ErrShape is returned when results and ground truth disagree in size.
var ErrShape = errors.New("eval: shape mismatch")

// PerQuery returns recall@k of every query: the fraction of the first k
// ground-truth identifiers that appear among the first k found ones.
//
// ids is a row-major n*stride result matrix. Negative identifiers mark empty
// slots and never match.
func PerQuery(ids []int64, stride int, truth [][]int64, k int) ([]float64, error) {
	if k <= 0 || stride < k {
		return nil, fmt.Errorf("%w: k=%d with %d slots per query", ErrShape, k, stride)
	}
	n := len(ids) / stride
	if len(ids)%stride != 0 || n != len(truth) {
		return nil, fmt.Errorf("%w: %d result values with stride %d for %d ground-truth rows", ErrShape, len(ids), stride, len(truth))
	}

	out := make([]float64, n)
	found := roaring64.New()
	want := roaring64.New()

	for q := 0; q < n; q++ {
		gt := truth[q]
		if len(gt) < k {
			return nil, fmt.Errorf("%w: query %d has %d ground-truth neighbours, need %d", ErrShape, q, len(gt), k)
		}

		found.Clear()
		want.Clear()
		for _, id := range ids[q*stride : q*stride+k] {
			if id >= 0 {
				found.Add(uint64(id))
			}
		}
		for _, id := range gt[:k] {
			if id >= 0 {
				want.Add(uint64(id))
			}
		}
		out[q] = float64(found.AndCardinality(want)) / float64(k)
	}
	return out, nil
}

// Recall returns the mean recall@k over all queries. An empty batch has
// recall 0.
func Recall(ids []int64, stride int, truth [][]int64, k int) (float64, error) {
	per, err := PerQuery(ids, stride, truth, k)
	if err != nil {
		return 0, err
	}
	if len(per) == 0 {
		return 0, nil
	}
	var sum float64
	for _, r := range per {
		sum += r
	}
	return sum / float64(len(per)), nil
}

// Histogram counts how often each value occurs. It is used for applied
// routing values.
func Histogram(values []int) map[int]int {
	h := make(map[int]int)
	for _, v := range values {
		h[v]++
	}
	return h
}
