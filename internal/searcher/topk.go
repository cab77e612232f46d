package searcher

import "math"

const heapArity = 4

// Candidate is a scored row of a bucket-local collection.
type Candidate struct {
	Row  int32
	Dist float32
}

// Worse reports whether a ranks after b. Distances ascend; ties are broken by
// row ascending so results are deterministic.
func Worse(a, b Candidate) bool {
	if a.Dist != b.Dist {
		return a.Dist > b.Dist
	}
	return a.Row > b.Row
}

// TopK keeps the k best candidates seen so far in a 4-ary max-heap whose top
// is the current eviction candidate.
type TopK struct {
	k     int
	items []Candidate
}

// NewTopK creates a heap bounded to k candidates.
func NewTopK(k int) *TopK {
	return &TopK{k: k, items: make([]Candidate, 0, k)}
}

// Reset clears the heap for reuse with a new bound.
func (h *TopK) Reset(k int) {
	h.k = k
	h.items = h.items[:0]
}

func (h *TopK) Len() int { return len(h.items) }

// Full reports whether k candidates are held.
func (h *TopK) Full() bool { return len(h.items) >= h.k }

// Threshold returns the distance a new candidate must beat once the heap is
// full, or +Inf while it is not.
func (h *TopK) Threshold() float32 {
	if !h.Full() || len(h.items) == 0 {
		return float32(math.Inf(1))
	}
	return h.items[0].Dist
}

// Push offers a candidate. It reports whether the candidate was kept.
func (h *TopK) Push(row int32, dist float32) bool {
	if h.k <= 0 {
		return false
	}
	c := Candidate{Row: row, Dist: dist}
	if len(h.items) < h.k {
		h.items = append(h.items, c)
		h.up(len(h.items) - 1)
		return true
	}
	if !Worse(h.items[0], c) {
		return false
	}
	h.items[0] = c
	h.down(0, len(h.items))
	return true
}

// Drain empties the heap into dst in ascending distance order and returns the
// number of candidates written. dst must hold at least Len() entries.
func (h *TopK) Drain(dst []Candidate) int {
	n := len(h.items)
	for i := n - 1; i >= 0; i-- {
		last := len(h.items) - 1
		h.items[0], h.items[last] = h.items[last], h.items[0]
		dst[i] = h.items[last]
		h.items = h.items[:last]
		if last > 0 {
			h.down(0, last)
		}
	}
	return n
}

func (h *TopK) up(j int) {
	item := h.items[j]
	for j > 0 {
		i := (j - 1) / heapArity
		if !Worse(item, h.items[i]) {
			break
		}
		h.items[j] = h.items[i]
		j = i
	}
	h.items[j] = item
}

func (h *TopK) down(i, n int) {
	item := h.items[i]
	for {
		first := heapArity*i + 1
		if first >= n {
			break
		}
		worst := first
		last := min(first+heapArity, n)
		for c := first + 1; c < last; c++ {
			if Worse(h.items[c], h.items[worst]) {
				worst = c
			}
		}
		if !Worse(h.items[worst], item) {
			break
		}
		h.items[i] = h.items[worst]
		i = worst
	}
	h.items[i] = item
}
