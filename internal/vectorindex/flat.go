// Package vectorindex provides exact nearest-neighbour search over a corpus snapshot.
package vectorindex

import (
	"fmt"
	"sort"

	"github.com/nightcity/oracle/internal/domain"
)

// NoPosition marks an empty result slot, as written by index builders that pad to k.
const NoPosition = -1

// Hit is a single nearest-neighbour match.
type Hit struct {
	Position int
	Distance float64 // squared L2, >= 0
}

// Flat is an exhaustive L2 index over contiguous float32 rows (IndexFlatL2 layout).
// It is immutable after construction and safe for concurrent searches.
type Flat struct {
	dim  int
	data []float32
}

// NewFlat builds an index from row vectors. All rows must share one dimension.
func NewFlat(dim int, rows [][]float32) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	data := make([]float32, 0, len(rows)*dim)
	for i, row := range rows {
		if len(row) != dim {
			return nil, fmt.Errorf("row %d has dimension %d, want %d: %w",
				i, len(row), dim, domain.ErrDimensionMismatch)
		}
		data = append(data, row...)
	}
	return &Flat{dim: dim, data: data}, nil
}

// NewFlatFromData wraps a flat row-major buffer without copying.
func NewFlatFromData(dim int, data []float32) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	if len(data)%dim != 0 {
		return nil, fmt.Errorf("data length %d is not a multiple of dimension %d: %w",
			len(data), dim, domain.ErrMalformedSnapshot)
	}
	return &Flat{dim: dim, data: data}, nil
}

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return len(f.data) / f.dim }

// Dim returns the vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Search returns the k nearest rows by squared Euclidean distance, ascending.
// Equal distances keep position order. k larger than the index returns every row.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has dimension %d, index %d: %w",
			len(query), f.dim, domain.ErrDimensionMismatch)
	}
	n := f.Len()
	if k <= 0 || n == 0 {
		return []Hit{}, nil
	}

	hits := make([]Hit, n)
	for i := range n {
		hits[i] = Hit{Position: i, Distance: squaredL2(query, f.data[i*f.dim:(i+1)*f.dim])}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
