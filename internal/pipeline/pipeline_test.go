package pipeline

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"canoncheck/internal/books"
	"canoncheck/internal/index"
	"canoncheck/internal/model"
)

// bagEmbedder is a deterministic stand-in for the real backend: a
// hashed bag-of-words, so texts sharing vocabulary land close together.
type bagEmbedder struct{}

func (bagEmbedder) Model() string { return "bag-of-words" }

func (bagEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, 16)
		for _, w := range strings.Fields(strings.ToLower(text)) {
			h := fnv.New32a()
			h.Write([]byte(w))
			v[h.Sum32()%16]++
		}
		out[i] = v
	}
	return out, nil
}

func writeBook(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Expected no error writing book, got %v", err)
	}
	return path
}

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	dir := t.TempDir()

	valley := writeBook(t, dir, "valley.txt",
		"Aldous never left the valley and he did not trust the merchants from the coast in all his long years there")
	harbor := writeBook(t, dir, "harbor.txt",
		"Mira sailed to the harbor and sang with the fishermen every morning before the busy market opened its stalls")

	cfg := model.DefaultConfig()
	cfg.Books = map[string]string{
		"Valley Chronicle": valley,
		"Harbor Songs":     harbor,
	}
	cfg.Data.ChunksFile = filepath.Join(dir, "chunks.jsonl")
	cfg.Data.IndexDir = filepath.Join(dir, "index")
	cfg.Data.DossierDir = filepath.Join(dir, "dossiers")
	cfg.Data.ResultsCSV = filepath.Join(dir, "results.csv")
	cfg.Chunking.SizeWords = 8
	cfg.Chunking.OverlapWords = 2
	cfg.Retrieval.ClaimExcerpts = 4
	cfg.Segmenter.MinClaimChars = 5
	return cfg
}

// loadedPipeline chunks, indexes and loads in one go.
func loadedPipeline(t *testing.T, cfg *model.Config) *Pipeline {
	t.Helper()
	if _, err := WriteChunks(cfg, nil); err != nil {
		t.Fatalf("Expected no error from WriteChunks, got %v", err)
	}
	if _, err := BuildIndex(context.Background(), cfg, bagEmbedder{}); err != nil {
		t.Fatalf("Expected no error from BuildIndex, got %v", err)
	}
	p := NewWithEmbedder(cfg, bagEmbedder{})
	if err := p.Load(); err != nil {
		t.Fatalf("Expected no error from Load, got %v", err)
	}
	return p
}

func TestWriteChunks_ProducesOrderedRecords(t *testing.T) {
	cfg := testConfig(t)

	stats, err := WriteChunks(cfg, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if stats.Books != 2 {
		t.Errorf("Expected 2 books chunked, got %d", stats.Books)
	}

	chunks, err := ReadChunks(cfg.Data.ChunksFile)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(chunks) != stats.Chunks {
		t.Fatalf("Expected %d records, got %d", stats.Chunks, len(chunks))
	}

	perBook := map[string]int{}
	for _, c := range chunks {
		if c.ChunkIndex != perBook[c.BookName] {
			t.Errorf("Book %q: expected chunk index %d, got %d", c.BookName, perBook[c.BookName], c.ChunkIndex)
		}
		want := model.ChunkID(c.BookName, c.ChunkIndex)
		if c.ChunkID != want {
			t.Errorf("Expected chunk id %q, got %q", want, c.ChunkID)
		}
		if c.Text == "" {
			t.Errorf("Chunk %s has empty text", c.ChunkID)
		}
		perBook[c.BookName]++
	}
	if len(perBook) != 2 {
		t.Errorf("Expected chunks from 2 books, got %d", len(perBook))
	}
}

func TestWriteChunks_UnknownBookIsFatal(t *testing.T) {
	cfg := testConfig(t)

	_, err := WriteChunks(cfg, []string{"Valley Chronicle", "Atlantis Diaries"})
	if !errors.Is(err, books.ErrUnknownBook) {
		t.Fatalf("Expected ErrUnknownBook, got %v", err)
	}
	if _, statErr := os.Stat(cfg.Data.ChunksFile); statErr == nil {
		t.Error("Expected no chunks file after a fatal book resolution error")
	}
}

func TestBuildIndex_AlignsWithMetadata(t *testing.T) {
	cfg := testConfig(t)
	if _, err := WriteChunks(cfg, nil); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stats, err := BuildIndex(context.Background(), cfg, bagEmbedder{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	idx, meta, err := index.Load(cfg.Data.IndexDir)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if idx.Len() != stats.Chunks || len(meta) != stats.Chunks {
		t.Errorf("Expected %d vectors and records, got %d and %d", stats.Chunks, idx.Len(), len(meta))
	}
	if idx.Dim() != 16 {
		t.Errorf("Expected dimension 16, got %d", idx.Dim())
	}
}

func TestBuildIndex_EmptyChunksFile(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.Data.ChunksFile, nil, 0644); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := BuildIndex(context.Background(), cfg, bagEmbedder{}); err == nil {
		t.Fatal("Expected error for empty chunks file, got nil")
	}
}

func TestCheck_ContradictedByBookEvidence(t *testing.T) {
	cfg := testConfig(t)
	p := loadedPipeline(t, cfg)

	result, err := p.Check(context.Background(), "Valley Chronicle",
		"Aldous trusted the merchants from the coast completely.")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Verdict != model.LabelContradicts {
		t.Errorf("Expected CONTRADICTS, got %s", result.Verdict)
	}
	if len(result.Evidence) == 0 {
		t.Error("Expected supporting evidence passages")
	}
	if len(result.Evidence) > cfg.Retrieval.InteractiveLimit {
		t.Errorf("Evidence exceeds interactive cap: %d", len(result.Evidence))
	}
	for _, c := range result.Evidence {
		if c.BookName != "Valley Chronicle" {
			t.Errorf("Evidence leaked from book %q", c.BookName)
		}
	}
}

func TestCheck_ConsistentBackstory(t *testing.T) {
	cfg := testConfig(t)
	p := loadedPipeline(t, cfg)

	result, err := p.Check(context.Background(), "Harbor Songs",
		"Mira sang with the fishermen at the harbor every single morning.")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Verdict != model.LabelConsistent {
		t.Errorf("Expected CONSISTENT, got %s", result.Verdict)
	}
}

func TestCheck_EmptyBackstory(t *testing.T) {
	cfg := testConfig(t)
	p := loadedPipeline(t, cfg)

	if _, err := p.Check(context.Background(), "Harbor Songs", "   \n\t"); err == nil {
		t.Fatal("Expected error for empty backstory, got nil")
	}
}

func TestCheck_UnknownBook(t *testing.T) {
	cfg := testConfig(t)
	p := loadedPipeline(t, cfg)

	_, err := p.Check(context.Background(), "Atlantis Diaries", "A perfectly plausible backstory.")
	if !errors.Is(err, books.ErrUnknownBook) {
		t.Fatalf("Expected ErrUnknownBook, got %v", err)
	}
}

func TestCheck_WithoutLoadedIndex(t *testing.T) {
	cfg := testConfig(t)
	p := NewWithEmbedder(cfg, bagEmbedder{})

	if _, err := p.Check(context.Background(), "Harbor Songs", "A perfectly plausible backstory."); err == nil {
		t.Fatal("Expected error when index is not loaded, got nil")
	}
}

func TestAnalyzeStory_BuildsDossier(t *testing.T) {
	cfg := testConfig(t)
	p := loadedPipeline(t, cfg)

	story := model.Story{
		ID:       7,
		BookName: "Valley Chronicle",
		Content:  "Aldous trusted the merchants from the coast completely.",
	}
	dossier, err := p.AnalyzeStory(context.Background(), story, "run-1")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if dossier.StoryID != 7 || dossier.RunID != "run-1" || dossier.BookName != story.BookName {
		t.Errorf("Dossier identity fields wrong: %+v", dossier)
	}
	if dossier.Backstory != story.Content {
		t.Errorf("Expected verbatim backstory, got %q", dossier.Backstory)
	}
	if len(dossier.Analysis) == 0 {
		t.Fatal("Expected at least one claim verdict")
	}
	if len(dossier.EvidenceChunks) == 0 {
		t.Error("Expected retrieved evidence in dossier")
	}
	for _, v := range dossier.Analysis {
		if len(v.Excerpts) > cfg.Retrieval.ClaimExcerpts {
			t.Errorf("Claim excerpts exceed cap: %d", len(v.Excerpts))
		}
	}
}

func TestAnalyzeStory_MissingCanonReadsConsistent(t *testing.T) {
	cfg := testConfig(t)
	p := loadedPipeline(t, cfg)

	story := model.Story{ID: 9, BookName: "Atlantis Diaries", Content: "A story about a book that was never indexed."}
	dossier, err := p.AnalyzeStory(context.Background(), story, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(dossier.EvidenceChunks) != 0 {
		t.Errorf("Expected no evidence for unindexed book, got %d chunks", len(dossier.EvidenceChunks))
	}
	for _, v := range dossier.Analysis {
		if v.Label != model.LabelConsistent {
			t.Errorf("Claim %q: expected CONSISTENT without evidence, got %s", v.Claim, v.Label)
		}
	}
}

// capTestConfig builds a single-book corpus whose only negating
// passage ranks far down the retrieval order, so it sits past any
// small evidence cap while still being part of the deduplicated pool.
func capTestConfig(t *testing.T) *model.Config {
	t.Helper()
	dir := t.TempDir()

	text := strings.Join([]string{
		"Mira sang with the fishermen at the harbor every morning before the busy market opened",
		"Mira sang with the fishermen at the harbor every morning before the busy market opened",
		"Mira sang with the fishermen at the harbor",
		"he vowed never to return home",
	}, " ")
	harbor := writeBook(t, dir, "harbor.txt", text)

	cfg := model.DefaultConfig()
	cfg.Books = map[string]string{"Harbor Songs": harbor}
	cfg.Data.ChunksFile = filepath.Join(dir, "chunks.jsonl")
	cfg.Data.IndexDir = filepath.Join(dir, "index")
	cfg.Data.DossierDir = filepath.Join(dir, "dossiers")
	cfg.Data.ResultsCSV = filepath.Join(dir, "results.csv")
	cfg.Chunking.SizeWords = 8
	cfg.Chunking.OverlapWords = 2
	cfg.Segmenter.MinClaimChars = 5
	cfg.Retrieval.InteractiveLimit = 2
	cfg.Retrieval.DossierLimit = 2
	cfg.Retrieval.ClaimExcerpts = 7
	return cfg
}

const capTestBackstory = "Mira sang with the fishermen at the harbor. She adored the busy morning market near the fishermen."

func containsNegation(text string) bool {
	return strings.Contains(strings.ToLower(text), "never")
}

func TestCheck_MarkerPastEvidenceCapStillContradicts(t *testing.T) {
	cfg := capTestConfig(t)
	p := loadedPipeline(t, cfg)

	result, err := p.Check(context.Background(), "Harbor Songs", capTestBackstory)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if result.Verdict != model.LabelContradicts {
		t.Errorf("Expected CONTRADICTS from a passage past the cap, got %s", result.Verdict)
	}
	if len(result.Evidence) != cfg.Retrieval.InteractiveLimit {
		t.Errorf("Expected evidence capped at %d, got %d", cfg.Retrieval.InteractiveLimit, len(result.Evidence))
	}
	for _, c := range result.Evidence {
		if containsNegation(c.Text) {
			t.Errorf("Negating passage should rank past the cap, found %q", c.Text)
		}
	}
}

func TestAnalyzeStory_AnalysisSeesPoolPastPersistedCap(t *testing.T) {
	cfg := capTestConfig(t)
	p := loadedPipeline(t, cfg)

	story := model.Story{ID: 3, BookName: "Harbor Songs", Content: capTestBackstory}
	dossier, err := p.AnalyzeStory(context.Background(), story, "run-cap")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	contradicted := false
	for _, v := range dossier.Analysis {
		if v.Label == model.LabelContradicts {
			contradicted = true
		}
	}
	if !contradicted {
		t.Error("Expected a claim to contradict via a passage past the persisted cap")
	}
	if len(dossier.EvidenceChunks) != cfg.Retrieval.DossierLimit {
		t.Errorf("Expected persisted evidence capped at %d, got %d", cfg.Retrieval.DossierLimit, len(dossier.EvidenceChunks))
	}
	for _, c := range dossier.EvidenceChunks {
		if containsNegation(c.Text) {
			t.Errorf("Negating passage should rank past the cap, found %q", c.Text)
		}
	}
}

const testDataset = `id,book_name,content
1,Valley Chronicle,Aldous trusted the merchants from the coast completely.
2,Harbor Songs,Mira sang with the fishermen at the harbor every single morning.
`

func TestRunBatch_WritesDossiersAndResults(t *testing.T) {
	cfg := testConfig(t)
	p := loadedPipeline(t, cfg)

	dataset := filepath.Join(t.TempDir(), "dataset.csv")
	if err := os.WriteFile(dataset, []byte(testDataset), 0644); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stats, err := p.RunBatch(context.Background(), dataset, "")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if stats.RunID == "" {
		t.Error("Expected a generated run id")
	}
	if stats.Total != 2 || stats.Failed != 0 {
		t.Errorf("Expected 2 stories with no failures, got %+v", stats)
	}
	if stats.Contradicts != 1 || stats.Consistent != 1 {
		t.Errorf("Expected 1 contradiction and 1 consistent story, got %+v", stats)
	}

	for _, id := range []int{1, 2} {
		path := filepath.Join(cfg.Data.DossierDir, fmt.Sprintf("story_%d_dossier.json", id))
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected dossier file for story %d: %v", id, err)
		}
	}

	data, err := os.ReadFile(cfg.Data.ResultsCSV)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	got := string(data)
	want := "id,label,evidence_file\n1,0,story_1_dossier.json\n2,1,story_2_dossier.json\n"
	if got != want {
		t.Errorf("Results table mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRunBatch_RerunIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	p := loadedPipeline(t, cfg)

	dataset := filepath.Join(t.TempDir(), "dataset.csv")
	if err := os.WriteFile(dataset, []byte(testDataset), 0644); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := p.RunBatch(context.Background(), dataset, "fixed-run"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	first, err := os.ReadFile(filepath.Join(cfg.Data.DossierDir, "story_1_dossier.json"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := p.RunBatch(context.Background(), dataset, "fixed-run"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	second, err := os.ReadFile(filepath.Join(cfg.Data.DossierDir, "story_1_dossier.json"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if string(first) != string(second) {
		t.Error("Expected rerun to overwrite dossiers with identical content")
	}
}

func TestRunBatch_CancelledContext(t *testing.T) {
	cfg := testConfig(t)
	p := loadedPipeline(t, cfg)

	dataset := filepath.Join(t.TempDir(), "dataset.csv")
	if err := os.WriteFile(dataset, []byte(testDataset), 0644); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.RunBatch(ctx, dataset, ""); err == nil {
		t.Fatal("Expected error from cancelled context, got nil")
	}
}

func TestReadStories_ColumnOrderIndependent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.csv")
	content := "content,id,book_name,extra\nSome tale.,42,Harbor Songs,ignored\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stories, err := ReadStories(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(stories) != 1 {
		t.Fatalf("Expected 1 story, got %d", len(stories))
	}
	s := stories[0]
	if s.ID != 42 || s.BookName != "Harbor Songs" || s.Content != "Some tale." {
		t.Errorf("Unexpected story: %+v", s)
	}
}

func TestReadStories_MissingColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.csv")
	if err := os.WriteFile(path, []byte("id,content\n1,text\n"), 0644); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := ReadStories(path); err == nil {
		t.Fatal("Expected error for missing book_name column, got nil")
	}
}

func TestDatasetBooks_UniqueFirstSeen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.csv")
	content := "id,book_name,content\n" +
		"1,Harbor Songs,First tale.\n" +
		"2,Valley Chronicle,Second tale.\n" +
		"3,Harbor Songs,Third tale.\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	names, err := DatasetBooks(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(names) != 2 || names[0] != "Harbor Songs" || names[1] != "Valley Chronicle" {
		t.Errorf("Expected unique books in first-seen order, got %v", names)
	}
}

func TestReadStories_BadID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.csv")
	if err := os.WriteFile(path, []byte("id,book_name,content\nseven,Harbor Songs,text\n"), 0644); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if _, err := ReadStories(path); err == nil {
		t.Fatal("Expected error for non-numeric id, got nil")
	}
}
