package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"canoncheck/internal/books"
	"canoncheck/internal/chunker"
	"canoncheck/internal/model"
)

// ChunkStats summarizes a chunking run.
type ChunkStats struct {
	Books  int
	Chunks int
}

// WriteChunks streams every requested book through the word-window
// chunker and appends one JSON record per chunk to the configured
// chunks file. If bookNames is empty, all configured books are
// processed. An unknown book name is fatal: a silently skipped book
// would poison every downstream verdict against it.
func WriteChunks(cfg *model.Config, bookNames []string) (*ChunkStats, error) {
	library := books.NewLibrary(cfg.Books)
	if len(bookNames) == 0 {
		bookNames = library.Names()
	}
	if len(bookNames) == 0 {
		return nil, fmt.Errorf("no books configured")
	}
	for _, name := range bookNames {
		if _, err := library.Resolve(name); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Data.ChunksFile), 0o755); err != nil {
		return nil, fmt.Errorf("create chunks directory: %w", err)
	}
	out, err := os.Create(cfg.Data.ChunksFile)
	if err != nil {
		return nil, fmt.Errorf("create chunks file: %w", err)
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	stats := &ChunkStats{}

	for _, name := range bookNames {
		n, err := chunkBook(library, name, cfg.Chunking, enc)
		if err != nil {
			return nil, fmt.Errorf("chunk %q: %w", name, err)
		}
		stats.Books++
		stats.Chunks += n
	}

	return stats, nil
}

func chunkBook(library *books.Library, name string, cfg model.ChunkingConfig, enc *json.Encoder) (int, error) {
	src, err := library.Open(name)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	stream, err := chunker.New(src, cfg.SizeWords, cfg.OverlapWords)
	if err != nil {
		return 0, err
	}

	count := 0
	for {
		text, err := stream.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return count, err
		}
		record := model.Chunk{
			BookName:   name,
			ChunkID:    model.ChunkID(name, count),
			ChunkIndex: count,
			Text:       text,
		}
		if err := enc.Encode(record); err != nil {
			return count, fmt.Errorf("write chunk record: %w", err)
		}
		count++
	}

	return count, nil
}

// ReadChunks loads all chunk records from the chunks file in file
// order, which is also index-insertion order.
func ReadChunks(path string) ([]model.Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open chunks file: %w", err)
	}
	defer f.Close()

	var chunks []model.Chunk
	dec := json.NewDecoder(f)
	for dec.More() {
		var c model.Chunk
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode chunk record %d: %w", len(chunks), err)
		}
		chunks = append(chunks, c)
	}

	return chunks, nil
}
