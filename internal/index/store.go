package index

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"canoncheck/internal/model"
)

const (
	vectorsFile  = "vectors.bin"
	metadataFile = "metadata.json"

	storeMagic   = 0x43434958 // "CCIX"
	storeVersion = 1
)

// ErrMisaligned reports that the persisted vectors and metadata no
// longer describe the same chunks. This is a fatal integrity error:
// a misaligned index silently returns wrong passages, so it must never
// be downgraded to an empty result.
var ErrMisaligned = errors.New("index and metadata are positionally misaligned")

// Save persists the index and its positionally aligned chunk metadata
// under dir. The pair is always rewritten wholesale; the index is never
// patched in place.
func Save(dir string, idx *Flat, meta []model.Chunk) error {
	if idx.Len() != len(meta) {
		return fmt.Errorf("%w: %d vectors, %d metadata records", ErrMisaligned, idx.Len(), len(meta))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	if err := writeVectors(filepath.Join(dir, vectorsFile), idx); err != nil {
		return err
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), data, 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Load reads the index and metadata back and verifies their alignment.
func Load(dir string) (*Flat, []model.Chunk, error) {
	idx, err := readVectors(filepath.Join(dir, vectorsFile))
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, nil, fmt.Errorf("read metadata: %w", err)
	}
	var meta []model.Chunk
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, nil, fmt.Errorf("parse metadata: %w", err)
	}

	if idx.Len() != len(meta) {
		return nil, nil, fmt.Errorf("%w: %d vectors, %d metadata records", ErrMisaligned, idx.Len(), len(meta))
	}
	return idx, meta, nil
}

func writeVectors(path string, idx *Flat) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vectors file: %w", err)
	}
	defer func() { _ = f.Close() }()

	w := bufio.NewWriter(f)
	header := []uint32{storeMagic, storeVersion, uint32(idx.dim), uint32(idx.Len())}
	for _, h := range header {
		if err := binary.Write(w, binary.LittleEndian, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, v := range idx.vectors {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush vectors: %w", err)
	}
	return f.Close()
}

func readVectors(path string) (*Flat, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vectors file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	var magic, version, dim, count uint32
	for _, p := range []*uint32{&magic, &version, &dim, &count} {
		if err := binary.Read(r, binary.LittleEndian, p); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
	}
	if magic != storeMagic {
		return nil, fmt.Errorf("not an index file: bad magic %#x", magic)
	}
	if version != storeVersion {
		return nil, fmt.Errorf("unsupported index version %d", version)
	}

	idx, err := NewFlat(int(dim))
	if err != nil {
		return nil, err
	}
	vectors := make([][]float32, count)
	for i := range vectors {
		v := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, v); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", i, err)
		}
		vectors[i] = v
	}
	if err := idx.Add(vectors); err != nil {
		return nil, err
	}
	return idx, nil
}
