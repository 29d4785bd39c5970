package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"canoncheck/internal/pipeline"
)

var (
	chunkSize    int
	chunkOverlap int
	chunksOut    string
	chunkDataset string
)

// chunkCmd represents the chunk command
var chunkCmd = &cobra.Command{
	Use:   "chunk [book...]",
	Short: "Split configured books into overlapping word windows",
	Long: `Chunk reads each configured book, splits it into fixed-size
overlapping word windows and writes one JSON record per chunk.

Without arguments every configured book is chunked. With --dataset,
only the books the dataset's book_name column references are chunked.
Naming a book that is not configured is an error either way: the whole
point of chunking is to make the book checkable, so a typo must not
pass silently.

Example:
  canoncheck chunk
  canoncheck chunk "The Count of Monte Cristo"
  canoncheck chunk --dataset stories.csv
  canoncheck chunk --size 500 --overlap 100`,
	RunE: runChunk,
}

func init() {
	rootCmd.AddCommand(chunkCmd)

	chunkCmd.Flags().IntVar(&chunkSize, "size", 0, "chunk size in words (default from config)")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", 0, "overlap between consecutive chunks in words (default from config)")
	chunkCmd.Flags().StringVar(&chunksOut, "out", "", "chunks file path (default from config)")
	chunkCmd.Flags().StringVar(&chunkDataset, "dataset", "", "chunk only the books a dataset CSV references")
}

func runChunk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if chunkSize > 0 {
		cfg.Chunking.SizeWords = chunkSize
	}
	if chunkOverlap > 0 {
		cfg.Chunking.OverlapWords = chunkOverlap
	}
	if chunksOut != "" {
		cfg.Data.ChunksFile = chunksOut
	}

	if chunkDataset != "" {
		if len(args) > 0 {
			return fmt.Errorf("books given both as arguments and via --dataset")
		}
		args, err = pipeline.DatasetBooks(chunkDataset)
		if err != nil {
			return err
		}
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Chunking %d-word windows with %d-word overlap\n",
			cfg.Chunking.SizeWords, cfg.Chunking.OverlapWords)
	}

	stats, err := pipeline.WriteChunks(cfg, args)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Wrote %d chunks from %d books to %s\n", stats.Chunks, stats.Books, cfg.Data.ChunksFile)
	return nil
}
