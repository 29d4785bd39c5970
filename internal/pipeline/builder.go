package pipeline

import (
	"context"
	"fmt"

	"canoncheck/internal/embed"
	"canoncheck/internal/index"
	"canoncheck/internal/model"
	"canoncheck/internal/worker"
)

// IndexStats summarizes an index build.
type IndexStats struct {
	Chunks int
	Dim    int
}

// BuildIndex embeds every chunk record and writes the flat index plus
// its positionally aligned metadata to the configured index directory.
// Embedding runs in parallel batches; insertion order always matches
// chunks-file order so metadata positions stay valid.
func BuildIndex(ctx context.Context, cfg *model.Config, e embed.Embedder) (*IndexStats, error) {
	chunks, err := ReadChunks(cfg.Data.ChunksFile)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunks file %s is empty, run chunk first", cfg.Data.ChunksFile)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := worker.EmbedAll(ctx, e, texts, cfg.Embedding.BatchSize, cfg.Embedding.Workers)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	embed.Normalize(vectors)

	idx, err := index.NewFlat(len(vectors[0]))
	if err != nil {
		return nil, err
	}
	if err := idx.Add(vectors); err != nil {
		return nil, err
	}

	if err := index.Save(cfg.Data.IndexDir, idx, chunks); err != nil {
		return nil, fmt.Errorf("save index: %w", err)
	}

	return &IndexStats{Chunks: idx.Len(), Dim: idx.Dim()}, nil
}
