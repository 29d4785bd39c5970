package chunker

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// Stream reads a text source word by word and yields overlapping
// fixed-size word windows. The sequence is lazy, finite, and
// non-restartable; identical source and parameters always produce the
// identical ordered chunk sequence, which the index build relies on.
type Stream struct {
	sc      *bufio.Scanner
	size    int
	overlap int
	buf     []string
	fresh   int // Words appended since the last emitted chunk
	done    bool
}

// New creates a chunk stream over r. size is the target word count per
// chunk and overlap the word count carried into the next chunk.
// overlap must be smaller than size: an overlap of size or more would
// grow the buffer forever.
func New(r io.Reader, size, overlap int) (*Stream, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", size, overlap)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	sc.Split(bufio.ScanWords)

	return &Stream{
		sc:      sc,
		size:    size,
		overlap: overlap,
		buf:     make([]string, 0, size),
	}, nil
}

// Next returns the next chunk. It returns io.EOF once the source is
// exhausted. A trailing buffer that still holds unemitted words is
// emitted as a final short chunk so no source text is ever lost; a
// trailing buffer holding only the carried overlap is not re-emitted.
func (s *Stream) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}

	for s.sc.Scan() {
		word := s.sc.Text()
		if !utf8.ValidString(word) {
			// Tolerate decoding errors by dropping the bad bytes,
			// never by failing the whole stream.
			word = strings.ToValidUTF8(word, "")
			if word == "" {
				continue
			}
		}

		s.buf = append(s.buf, word)
		s.fresh++
		if len(s.buf) >= s.size {
			chunk := strings.Join(s.buf, " ")
			// Keep only the tail that overlaps into the next window.
			tail := s.buf[len(s.buf)-s.overlap:]
			s.buf = append(s.buf[:0:0], tail...)
			s.fresh = 0
			return chunk, nil
		}
	}

	if err := s.sc.Err(); err != nil {
		s.done = true
		return "", fmt.Errorf("read source: %w", err)
	}

	s.done = true
	if s.fresh > 0 {
		chunk := strings.Join(s.buf, " ")
		s.buf = nil
		return chunk, nil
	}
	return "", io.EOF
}

// All drains the stream and returns every remaining chunk in order.
func (s *Stream) All() ([]string, error) {
	var chunks []string
	for {
		chunk, err := s.Next()
		if err == io.EOF {
			return chunks, nil
		}
		if err != nil {
			return chunks, err
		}
		chunks = append(chunks, chunk)
	}
}
