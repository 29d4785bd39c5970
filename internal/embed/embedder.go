// Package embed turns text into fixed-length numeric vectors. The rest
// of the system treats embedding as an opaque function; everything
// here exists so the index and query paths share one stable backend
// and one normalization convention.
package embed

import (
	"context"
	"math"
)

// Embedder converts a batch of texts into one embedding per text, in
// input order.
type Embedder interface {
	// Embed returns one vector per input text, positionally aligned.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Model identifies the embedding model; vectors from different
	// models are not comparable.
	Model() string
}

// Normalize L2-normalizes every vector in place so that inner product
// equals cosine similarity. Zero vectors are left untouched.
func Normalize(vectors [][]float32) {
	for _, v := range vectors {
		NormalizeVector(v)
	}
}

// NormalizeVector L2-normalizes a single vector in place.
func NormalizeVector(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
