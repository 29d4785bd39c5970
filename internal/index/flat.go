package index

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Flat is a brute-force inner-product index. Vectors are expected to be
// L2-normalized before Add and Search, so inner product equals cosine
// similarity. Construction is build-once, read-many: Add appends, there
// is no delete or update, and querying only starts once the build phase
// is over, so Search takes no locks.
type Flat struct {
	dim     int
	vectors [][]float32
}

// Hit is one nearest neighbor: the positional id of the vector (which
// resolves to metadata via the shared ordering) and its similarity.
type Hit struct {
	ID    int
	Score float64
}

// NewFlat creates an empty index for vectors of the given dimension.
func NewFlat(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("invalid vector dimension: %d", dim)
	}
	return &Flat{dim: dim}, nil
}

// Dim returns the vector dimensionality.
func (f *Flat) Dim() int { return f.dim }

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return len(f.vectors) }

// Add appends vectors in the given order. Position i of the index
// corresponds to element i of whatever metadata array the caller keeps
// alongside; that positional alignment is the caller's hard invariant.
func (f *Flat) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v), f.dim)
		}
	}
	f.vectors = append(f.vectors, vectors...)
	return nil
}

// Search returns the k nearest neighbors of query by inner product,
// most similar first. k larger than the index size returns everything
// available; a query of the wrong dimension is a configuration error.
func (f *Flat) Search(query []float32, k int) ([]Hit, error) {
	if len(query) != f.dim {
		return nil, fmt.Errorf("query has dimension %d, index expects %d", len(query), f.dim)
	}
	if k <= 0 {
		return nil, nil
	}

	q := toFloat64(query)
	hits := make([]Hit, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Hit{ID: i, Score: floats.Dot(toFloat64(v), q)}
	}

	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
