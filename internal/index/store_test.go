package index

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"canoncheck/internal/model"
)

func buildTestIndex(t *testing.T) (*Flat, []model.Chunk) {
	t.Helper()
	idx, err := NewFlat(3)
	if err != nil {
		t.Fatalf("NewFlat: %v", err)
	}
	vectors := [][]float32{
		unit(1, 0, 0),
		unit(0, 1, 0),
		unit(0, 0, 1),
	}
	if err := idx.Add(vectors); err != nil {
		t.Fatalf("Add: %v", err)
	}
	meta := []model.Chunk{
		{BookName: "Book A", ChunkID: model.ChunkID("Book A", 0), ChunkIndex: 0, Text: "first"},
		{BookName: "Book A", ChunkID: model.ChunkID("Book A", 1), ChunkIndex: 1, Text: "second"},
		{BookName: "Book B", ChunkID: model.ChunkID("Book B", 0), ChunkIndex: 0, Text: "third"},
	}
	return idx, meta
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	dir := t.TempDir()
	idx, meta := buildTestIndex(t)

	if err := Save(dir, idx, meta); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, loadedMeta, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.Dim() != idx.Dim() {
		t.Errorf("expected dim %d, got %d", idx.Dim(), loaded.Dim())
	}
	if loaded.Len() != idx.Len() {
		t.Errorf("expected %d vectors, got %d", idx.Len(), loaded.Len())
	}
	if len(loadedMeta) != len(meta) {
		t.Fatalf("expected %d metadata records, got %d", len(meta), len(loadedMeta))
	}
	for i := range meta {
		if loadedMeta[i] != meta[i] {
			t.Errorf("metadata %d: expected %+v, got %+v", i, meta[i], loadedMeta[i])
		}
	}

	// Search behavior survives the roundtrip.
	hits, err := loaded.Search(unit(0, 1, 0), 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if hits[0].ID != 1 {
		t.Errorf("expected id 1 after roundtrip, got %d", hits[0].ID)
	}
}

func TestSave_RejectsMisalignedInput(t *testing.T) {
	dir := t.TempDir()
	idx, meta := buildTestIndex(t)

	err := Save(dir, idx, meta[:2])
	if !errors.Is(err, ErrMisaligned) {
		t.Fatalf("expected ErrMisaligned, got %v", err)
	}
}

func TestLoad_DetectsMisalignment(t *testing.T) {
	dir := t.TempDir()
	idx, meta := buildTestIndex(t)
	if err := Save(dir, idx, meta); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Tamper: drop one metadata record while leaving vectors intact.
	tampered := `[{"book_name":"Book A","chunk_id":"Book_A_chunk_0","chunk_index":0,"text":"first"}]`
	if err := os.WriteFile(filepath.Join(dir, metadataFile), []byte(tampered), 0644); err != nil {
		t.Fatalf("tamper metadata: %v", err)
	}

	_, _, err := Load(dir)
	if !errors.Is(err, ErrMisaligned) {
		t.Fatalf("expected ErrMisaligned, got %v", err)
	}
}

func TestLoad_MissingArtifacts(t *testing.T) {
	_, _, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error loading from empty dir")
	}
}

func TestLoad_RejectsForeignFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, vectorsFile), []byte("not an index at all"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if _, err := readVectors(filepath.Join(dir, vectorsFile)); err == nil {
		t.Fatal("expected error for non-index file")
	}
}
