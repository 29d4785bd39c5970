package model

import (
	"fmt"
	"strings"
)

// Chunk is the unit of indexing and retrieval: a fixed-size overlapping
// word window of a book's text.
type Chunk struct {
	BookName   string `json:"book_name"`   // Source work this chunk belongs to
	ChunkID    string `json:"chunk_id"`    // Globally unique across all books
	ChunkIndex int    `json:"chunk_index"` // 0-based ordinal within the book, no gaps
	Text       string `json:"text"`        // Space-joined word window content
}

// ChunkID builds the canonical chunk identifier for a book and ordinal.
// Spaces in the book name are normalized to underscores so the id stays
// filesystem- and query-safe.
func ChunkID(bookName string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", strings.ReplaceAll(bookName, " ", "_"), index)
}
