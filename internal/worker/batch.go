package worker

import (
	"context"
	"fmt"
	"sort"
)

// Embedder is the subset of the embedding backend the pool needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedJob embeds one batch of texts. Ordinal records the batch's
// position so results can be reassembled in input order regardless of
// which worker finished first.
type EmbedJob struct {
	Ordinal  int
	Texts    []string
	Embedder Embedder
}

// Execute runs the embedding call for this batch.
func (j *EmbedJob) Execute(ctx context.Context) Result {
	vectors, err := j.Embedder.Embed(ctx, j.Texts)
	if err != nil {
		return &EmbedResult{Ordinal: j.Ordinal, Err: fmt.Errorf("embed batch %d: %w", j.Ordinal, err)}
	}
	if len(vectors) != len(j.Texts) {
		return &EmbedResult{Ordinal: j.Ordinal, Err: fmt.Errorf("embed batch %d: got %d vectors for %d texts", j.Ordinal, len(vectors), len(j.Texts))}
	}
	return &EmbedResult{Ordinal: j.Ordinal, Vectors: vectors}
}

// EmbedResult is the outcome of one embedded batch.
type EmbedResult struct {
	Ordinal int
	Vectors [][]float32
	Err     error
}

// GetError returns the batch error, if any.
func (r *EmbedResult) GetError() error { return r.Err }

// EmbedAll embeds texts in batches of batchSize across workers while
// preserving input order in the returned vectors. The parallelism is
// invisible to callers: identical input always yields identically
// ordered output.
func EmbedAll(ctx context.Context, e Embedder, texts []string, batchSize, workers int) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if batchSize <= 0 {
		batchSize = 32
	}

	pool := NewPool(ctx, workers)
	pool.Start()

	ordinal := 0
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		pool.Submit(&EmbedJob{Ordinal: ordinal, Texts: texts[start:end], Embedder: e})
		ordinal++
	}

	results := pool.Wait()

	batches := make([]*EmbedResult, 0, len(results))
	for _, r := range results {
		er := r.(*EmbedResult)
		if er.Err != nil {
			return nil, er.Err
		}
		batches = append(batches, er)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].Ordinal < batches[j].Ordinal })

	vectors := make([][]float32, 0, len(texts))
	for _, b := range batches {
		vectors = append(vectors, b.Vectors...)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedded %d vectors for %d texts", len(vectors), len(texts))
	}
	return vectors, nil
}
