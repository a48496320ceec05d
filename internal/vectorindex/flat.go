// Package vectorindex is an exact inner-product index over L2-normalized
// float32 vectors. With normalized inputs the inner product is the cosine
// similarity, so every score lies in [-1, 1].
package vectorindex

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
)

var (
	ErrWrongDimension = errors.New("wrong vector dimension")
	ErrNonFinite      = errors.New("vector holds NaN or Inf")
)

// Result is one search slot. Backends may pad unfilled slots with a negative
// Position; callers must filter those out.
type Result struct {
	Score    float32
	Position int
}

// Flat stores vectors contiguously in insertion order. It is not safe for
// concurrent mutation; Clone before appending when readers may hold it.
type Flat struct {
	dim  int
	data []float32
}

func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	return &Flat{dim: dim}, nil
}

func (f *Flat) Dim() int {
	return f.dim
}

func (f *Flat) Len() int {
	return len(f.data) / f.dim
}

// Vector returns a copy of the stored (normalized) vector at pos.
func (f *Flat) Vector(pos int) []float32 {
	if pos < 0 || pos >= f.Len() {
		return nil
	}
	out := make([]float32, f.dim)
	copy(out, f.data[pos*f.dim:(pos+1)*f.dim])
	return out
}

func (f *Flat) Clone() *Flat {
	data := make([]float32, len(f.data))
	copy(data, f.data)
	return &Flat{dim: f.dim, data: data}
}

// Add validates every vector before inserting any, then appends normalized
// copies. Either all vectors are added or none.
func (f *Flat) Add(vecs [][]float32) error {
	for i, v := range vecs {
		if len(v) != f.dim {
			return fmt.Errorf("%w: vector %d has %d values, index expects %d", ErrWrongDimension, i, len(v), f.dim)
		}
		if !finite(v) {
			return fmt.Errorf("%w: vector %d", ErrNonFinite, i)
		}
	}
	grown := make([]float32, len(f.data), len(f.data)+len(vecs)*f.dim)
	copy(grown, f.data)
	for _, v := range vecs {
		grown = append(grown, Normalize(v)...)
	}
	f.data = grown
	return nil
}

// Search returns up to k results ordered by descending score. k is capped to
// the number of stored vectors. Ties keep insertion order.
func (f *Flat) Search(query []float32, k int) ([]Result, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d values, index expects %d", ErrWrongDimension, len(query), f.dim)
	}
	n := f.Len()
	if k > n {
		k = n
	}
	if k <= 0 {
		return nil, nil
	}
	q := Normalize(query)
	h := make(minHeap, 0, k)
	for pos := 0; pos < n; pos++ {
		s := dot(q, f.data[pos*f.dim:(pos+1)*f.dim])
		r := Result{Score: s, Position: pos}
		if len(h) < k {
			heap.Push(&h, r)
			continue
		}
		if better(r, h[0]) {
			h[0] = r
			heap.Fix(&h, 0)
		}
	}
	out := make([]Result, len(h))
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&h).(Result)
	}
	return out, nil
}

// Normalize returns a unit-length copy of v. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func finite(v []float32) bool {
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return false
		}
	}
	return true
}

func dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}

// better orders by score, then by lower position.
func better(a, b Result) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Position < b.Position
}

type minHeap []Result

func (h minHeap) Len() int           { return len(h) }
func (h minHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h minHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *minHeap) Push(x any)        { *h = append(*h, x.(Result)) }
func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
