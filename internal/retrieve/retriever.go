// Package retrieve turns claim embeddings into a book-scoped,
// deduplicated evidence set. The index is shared across all books, so
// the book filter runs after search: a little wasted search work buys
// one index artifact instead of one per book.
package retrieve

import (
	"fmt"

	"canoncheck/internal/index"
	"canoncheck/internal/model"
)

// Searcher is the nearest-neighbor primitive the retriever relies on.
type Searcher interface {
	Search(query []float32, k int) ([]index.Hit, error)
}

// Retriever resolves claim embeddings against the index and its
// positionally aligned chunk metadata.
type Retriever struct {
	searcher Searcher
	meta     []model.Chunk
	topK     int
}

// New creates a retriever. topK is the neighbor count requested per
// claim query, before book filtering.
func New(searcher Searcher, meta []model.Chunk, topK int) *Retriever {
	if topK <= 0 {
		topK = 10
	}
	return &Retriever{searcher: searcher, meta: meta, topK: topK}
}

// Evidence retrieves evidence for a set of claim embeddings, restricted
// to bookName. Per-claim results are merged in first-seen order,
// deduplicated by chunk id, and capped at limit; limit <= 0 returns the
// whole deduplicated pool. An empty result is a retrieval gap, not an
// error: the caller must treat it as "no evidence".
func (r *Retriever) Evidence(bookName string, claimVectors [][]float32, limit int) ([]model.Chunk, error) {
	var merged []model.Chunk
	seen := make(map[string]struct{})

	for i, vec := range claimVectors {
		hits, err := r.searcher.Search(vec, r.topK)
		if err != nil {
			return nil, fmt.Errorf("search claim %d: %w", i, err)
		}
		for _, hit := range hits {
			if hit.ID < 0 || hit.ID >= len(r.meta) {
				return nil, fmt.Errorf("%w: search returned id %d for %d metadata records", index.ErrMisaligned, hit.ID, len(r.meta))
			}
			chunk := r.meta[hit.ID]
			if chunk.BookName != bookName {
				continue
			}
			if _, dup := seen[chunk.ChunkID]; dup {
				continue
			}
			seen[chunk.ChunkID] = struct{}{}
			merged = append(merged, chunk)
		}
	}

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}
