package model

import (
	"path/filepath"
	"time"
)

// Config is the full runtime configuration.
// Populated from defaults, then ~/.canoncheck/config.yaml, then
// CANONCHECK_* environment variables, then CLI flags.
type Config struct {
	Data      DataConfig        `mapstructure:"data" yaml:"data"`
	Books     map[string]string `mapstructure:"books" yaml:"books"` // Book name -> source text path
	Chunking  ChunkingConfig    `mapstructure:"chunking" yaml:"chunking"`
	Retrieval RetrievalConfig   `mapstructure:"retrieval" yaml:"retrieval"`
	Segmenter SegmenterConfig   `mapstructure:"segmenter" yaml:"segmenter"`
	Embedding EmbeddingConfig   `mapstructure:"embedding" yaml:"embedding"`
	Cache     CacheConfig       `mapstructure:"cache" yaml:"cache"`
	Server    ServerConfig      `mapstructure:"server" yaml:"server"`
	Output    OutputConfig      `mapstructure:"output" yaml:"output"`
}

// DataConfig locates the on-disk artifacts.
type DataConfig struct {
	ChunksFile string `mapstructure:"chunks_file" yaml:"chunks_file"` // Line-delimited chunk records
	IndexDir   string `mapstructure:"index_dir" yaml:"index_dir"`     // Vector artifact + metadata.json
	DossierDir string `mapstructure:"dossier_dir" yaml:"dossier_dir"` // One JSON dossier per story
	ResultsCSV string `mapstructure:"results_csv" yaml:"results_csv"` // Batch summary table
}

// ChunkingConfig controls the word-window chunker.
type ChunkingConfig struct {
	SizeWords    int `mapstructure:"size_words" yaml:"size_words"`
	OverlapWords int `mapstructure:"overlap_words" yaml:"overlap_words"`
}

// RetrievalConfig controls nearest-neighbor retrieval and evidence caps.
type RetrievalConfig struct {
	TopK             int `mapstructure:"top_k" yaml:"top_k"`                           // Neighbors per claim query
	InteractiveLimit int `mapstructure:"interactive_limit" yaml:"interactive_limit"`   // Evidence cap for single checks
	DossierLimit     int `mapstructure:"dossier_limit" yaml:"dossier_limit"`           // Evidence cap persisted per dossier
	ClaimExcerpts    int `mapstructure:"claim_excerpts" yaml:"claim_excerpts"`         // Top passages re-ranked per claim
}

// SegmenterConfig controls backstory-to-claim splitting.
type SegmenterConfig struct {
	MinClaimChars int `mapstructure:"min_claim_chars" yaml:"min_claim_chars"`
}

// EmbeddingConfig configures the embedding backend.
type EmbeddingConfig struct {
	Model             string        `mapstructure:"model" yaml:"model"`
	BaseURL           string        `mapstructure:"base_url" yaml:"base_url"` // OpenAI-compatible endpoint override
	APIKey            string        `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	BatchSize         int           `mapstructure:"batch_size" yaml:"batch_size"`
	Workers           int           `mapstructure:"workers" yaml:"workers"` // Parallel embed batches during index build
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int           `mapstructure:"burst" yaml:"burst"`
}

// CacheConfig configures the embedding cache.
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled"`
	Dir       string        `mapstructure:"dir" yaml:"dir"`
	MemoryTTL time.Duration `mapstructure:"memory_ttl" yaml:"memory_ttl"`
	DiskTTL   time.Duration `mapstructure:"disk_ttl" yaml:"disk_ttl"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// OutputConfig controls CLI output behavior.
type OutputConfig struct {
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			ChunksFile: filepath.Join("outputs", "chunks", "chunks.jsonl"),
			IndexDir:   filepath.Join("outputs", "index"),
			DossierDir: filepath.Join("outputs", "dossiers"),
			ResultsCSV: filepath.Join("outputs", "results.csv"),
		},
		Books: map[string]string{},
		Chunking: ChunkingConfig{
			SizeWords:    800,
			OverlapWords: 150,
		},
		Retrieval: RetrievalConfig{
			TopK:             10,
			InteractiveLimit: 5,
			DossierLimit:     20,
			ClaimExcerpts:    3,
		},
		Segmenter: SegmenterConfig{
			MinClaimChars: 20,
		},
		Embedding: EmbeddingConfig{
			Model:             "text-embedding-3-small",
			Timeout:           30 * time.Second,
			BatchSize:         32,
			Workers:           4,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       filepath.Join("outputs", "embed-cache"),
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   30 * 24 * time.Hour,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}
