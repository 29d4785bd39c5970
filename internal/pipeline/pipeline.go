// Package pipeline wires the chunker, index, segmenter, retriever and
// detector into the three entry points the CLI and server expose:
// offline preparation, interactive checks, and batch dossier runs.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"canoncheck/internal/books"
	"canoncheck/internal/cache"
	"canoncheck/internal/detect"
	"canoncheck/internal/embed"
	"canoncheck/internal/index"
	"canoncheck/internal/model"
	"canoncheck/internal/retrieve"
	"canoncheck/internal/segment"
)

// Pipeline holds the long-lived components. Construct once, call Load
// to bring in the index artifacts, then serve any number of checks.
type Pipeline struct {
	config    *model.Config
	embedder  embed.Embedder
	library   *books.Library
	segmenter *segment.Segmenter
	detector  *detect.Detector
	retriever *retrieve.Retriever
}

// New creates a pipeline with the real embedding backend, wrapped in
// the layered cache when caching is enabled.
func New(cfg *model.Config) (*Pipeline, error) {
	e, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithEmbedder(cfg, e), nil
}

// NewWithEmbedder creates a pipeline around a caller-supplied embedder.
func NewWithEmbedder(cfg *model.Config, e embed.Embedder) *Pipeline {
	return &Pipeline{
		config:    cfg,
		embedder:  e,
		library:   books.NewLibrary(cfg.Books),
		segmenter: segment.New(cfg.Segmenter.MinClaimChars),
		detector:  detect.New(cfg.Retrieval.ClaimExcerpts),
	}
}

// NewEmbedder builds the configured embedding backend.
func NewEmbedder(cfg *model.Config) (embed.Embedder, error) {
	e, err := embed.NewOpenAIEmbedder(embed.OpenAIConfig{
		APIKey:            cfg.Embedding.APIKey,
		Model:             cfg.Embedding.Model,
		BaseURL:           cfg.Embedding.BaseURL,
		Timeout:           cfg.Embedding.Timeout,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		Burst:             cfg.Embedding.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	if !cfg.Cache.Enabled {
		return e, nil
	}
	layered := cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
	return embed.NewCached(e, layered), nil
}

// Load reads the index artifacts from disk and prepares the retriever.
// Call it again to pick up a rebuilt index.
func (p *Pipeline) Load() error {
	idx, meta, err := index.Load(p.config.Data.IndexDir)
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	p.retriever = retrieve.New(idx, meta, p.config.Retrieval.TopK)
	return nil
}

// Books lists the configured book names.
func (p *Pipeline) Books() []string { return p.library.Names() }

// CheckResult is the outcome of one interactive check.
type CheckResult struct {
	Verdict  model.Label
	Claims   model.Claims
	Evidence []model.Chunk
}

// Check runs a single interactive consistency check. Input is
// validated before any embedding work: an empty backstory and an
// unknown book are both caller errors, not analysis results.
func (p *Pipeline) Check(ctx context.Context, bookName, backstory string) (*CheckResult, error) {
	backstory = strings.TrimSpace(backstory)
	if backstory == "" {
		return nil, fmt.Errorf("backstory is empty")
	}
	if _, err := p.library.Resolve(bookName); err != nil {
		return nil, err
	}
	if p.retriever == nil {
		return nil, fmt.Errorf("index not loaded")
	}

	claims := p.segmenter.Split(backstory)
	vectors, err := p.embedNormalized(ctx, claims.Items)
	if err != nil {
		return nil, fmt.Errorf("embed claims: %w", err)
	}

	// The verdict scans the whole deduplicated pool; the cap bounds
	// only what is shown to the caller. A contradicting passage past
	// the display cap must still flip the verdict.
	pool, err := p.retriever.Evidence(bookName, vectors, 0)
	if err != nil {
		return nil, err
	}

	return &CheckResult{
		Verdict:  p.detector.StoryVerdict(pool),
		Claims:   claims,
		Evidence: capEvidence(pool, p.config.Retrieval.InteractiveLimit),
	}, nil
}

// AnalyzeStory produces the full dossier for one story. An unknown or
// misspelled book name is not fatal here: it retrieves no evidence and
// the story reads as consistent, which is the honest answer for "no
// canon to check against".
func (p *Pipeline) AnalyzeStory(ctx context.Context, story model.Story, runID string) (*model.Dossier, error) {
	if p.retriever == nil {
		return nil, fmt.Errorf("index not loaded")
	}

	claims := p.segmenter.Split(story.Content)
	claimVectors, err := p.embedNormalized(ctx, claims.Items)
	if err != nil {
		return nil, fmt.Errorf("embed claims: %w", err)
	}

	// Analysis runs over the full deduplicated pool; only the persisted
	// evidence list is capped.
	pool, err := p.retriever.Evidence(story.BookName, claimVectors, 0)
	if err != nil {
		return nil, err
	}

	var poolVectors [][]float32
	if len(pool) > 0 {
		texts := make([]string, len(pool))
		for i, c := range pool {
			texts[i] = c.Text
		}
		poolVectors, err = p.embedNormalized(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed evidence: %w", err)
		}
	}

	verdicts := p.detector.Analyze(claims.Items, claimVectors, pool, poolVectors)

	return &model.Dossier{
		StoryID:        story.ID,
		RunID:          runID,
		BookName:       story.BookName,
		Backstory:      story.Content,
		Analysis:       verdicts,
		EvidenceChunks: capEvidence(pool, p.config.Retrieval.DossierLimit),
	}, nil
}

// BatchStats summarizes one batch run.
type BatchStats struct {
	RunID       string
	Total       int
	Consistent  int
	Contradicts int
	Failed      int
}

// RunBatch analyzes every story in the dataset sequentially, writes
// one dossier per story and the results summary table. Stories are
// independent: a failing row is reported and skipped, never allowed to
// sink the rows after it. If runID is empty a fresh one is generated.
func (p *Pipeline) RunBatch(ctx context.Context, datasetPath, runID string) (*BatchStats, error) {
	if p.retriever == nil {
		return nil, fmt.Errorf("index not loaded")
	}

	stories, err := ReadStories(datasetPath)
	if err != nil {
		return nil, err
	}
	if runID == "" {
		runID = uuid.NewString()
	}
	if err := os.MkdirAll(p.config.Data.DossierDir, 0o755); err != nil {
		return nil, fmt.Errorf("create dossier directory: %w", err)
	}
	if dir := filepath.Dir(p.config.Data.ResultsCSV); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create results directory: %w", err)
		}
	}

	stats := &BatchStats{RunID: runID, Total: len(stories)}
	results := make([]model.StoryResult, 0, len(stories))

	for _, story := range stories {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dossier, err := p.AnalyzeStory(ctx, story, runID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: story %d: %v\n", story.ID, err)
			stats.Failed++
			continue
		}

		filename := fmt.Sprintf("story_%d_dossier.json", story.ID)
		if err := writeDossier(filepath.Join(p.config.Data.DossierDir, filename), dossier); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: story %d: %v\n", story.ID, err)
			stats.Failed++
			continue
		}

		label := detect.Aggregate(dossier.Analysis)
		if label == model.LabelContradicts {
			stats.Contradicts++
		} else {
			stats.Consistent++
		}
		results = append(results, model.StoryResult{
			ID:           story.ID,
			Label:        label,
			EvidenceFile: filename,
		})
	}

	if err := WriteResults(p.config.Data.ResultsCSV, results); err != nil {
		return nil, err
	}

	return stats, nil
}

// capEvidence bounds the evidence list handed back to callers or
// persisted in dossiers. limit <= 0 means unbounded.
func capEvidence(pool []model.Chunk, limit int) []model.Chunk {
	if limit > 0 && len(pool) > limit {
		return pool[:limit]
	}
	return pool
}

func (p *Pipeline) embedNormalized(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	embed.Normalize(vectors)
	return vectors, nil
}

func writeDossier(path string, d *model.Dossier) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal dossier: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
