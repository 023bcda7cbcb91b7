// Package index implements an exact, append-only nearest-neighbor index
// over fixed-dimension embedding vectors.
package index

import (
	"fmt"
	"sort"
)

// Hit is one search result: the stored vector's insertion position and its
// squared Euclidean distance to the query. Smaller distance is closer.
type Hit struct {
	Position int
	Distance float64
}

// Flat is a brute-force index. Vectors are appended in insertion order and
// their 0-based position is the only identifier; positions are never reused
// or reassigned. The dimension is fixed at creation.
type Flat struct {
	dim     int
	vectors [][]float32
}

// New creates an empty index for vectors of the given dimension.
func New(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index: invalid dimension %d", dim)
	}
	return &Flat{dim: dim}, nil
}

// FromVectors rebuilds an index from previously stored vectors, e.g. when
// loading a snapshot.
func FromVectors(dim int, vectors [][]float32) (*Flat, error) {
	f, err := New(dim)
	if err != nil {
		return nil, err
	}
	if err := f.Add(vectors); err != nil {
		return nil, err
	}
	return f, nil
}

// Dimension returns the fixed vector length of this index.
func (f *Flat) Dimension() int { return f.dim }

// Count returns the number of stored vectors.
func (f *Flat) Count() int { return len(f.vectors) }

// Vectors exposes the stored vectors in position order for snapshotting.
// The returned slice must not be mutated.
func (f *Flat) Vectors() [][]float32 { return f.vectors }

// Add appends vectors at the end, assigning each the next sequential
// position. Existing entries are never reordered or removed. A vector of
// the wrong dimension rejects the whole call before any mutation.
func (f *Flat) Add(vectors [][]float32) error {
	for _, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("index: vector dimension %d does not match index dimension %d", len(v), f.dim)
		}
	}
	f.vectors = append(f.vectors, vectors...)
	return nil
}

// Search scans every stored vector and returns the k nearest to query,
// ascending by squared L2 distance. Ties break toward the lower position.
// If k exceeds the stored count, all entries are returned. An empty index
// yields an empty result.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("index: query dimension %d does not match index dimension %d", len(query), f.dim)
	}
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}
	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{Position: i, Distance: sqDistance(query, v)}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Position < hits[j].Position
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func sqDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
