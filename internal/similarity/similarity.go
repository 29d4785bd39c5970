package similarity

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Cosine computes the cosine similarity between two vectors, in [-1, 1].
// Mismatched or empty vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	a64 := toFloat64(a)
	b64 := toFloat64(b)

	dot := floats.Dot(a64, b64)
	magA := math.Sqrt(floats.Dot(a64, a64))
	magB := math.Sqrt(floats.Dot(b64, b64))
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (magA * magB)
}

// Matrix computes the claims x passages cosine similarity matrix:
// element [i][j] is the similarity between claims[i] and passages[j].
func Matrix(claims, passages [][]float32) [][]float64 {
	m := make([][]float64, len(claims))
	for i := range claims {
		m[i] = make([]float64, len(passages))
		for j := range passages {
			m[i][j] = Cosine(claims[i], passages[j])
		}
	}
	return m
}

// TopIndices returns the indices of the n largest scores, best first.
func TopIndices(scores []float64, n int) []int {
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	// Selection over a handful of passages; n is small (typically 3).
	if n > len(idxs) {
		n = len(idxs)
	}
	for i := 0; i < n; i++ {
		best := i
		for j := i + 1; j < len(idxs); j++ {
			if scores[idxs[j]] > scores[idxs[best]] {
				best = j
			}
		}
		idxs[i], idxs[best] = idxs[best], idxs[i]
	}
	return idxs[:n]
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
