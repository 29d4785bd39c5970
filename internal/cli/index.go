package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"canoncheck/internal/pipeline"
)

var indexTimeout time.Duration

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed chunks and build the vector index",
	Long: `Index embeds every chunk record and writes the flat vector index
plus its metadata. Embedding runs in parallel batches; vector positions
always match chunks-file order.

Requires an embedding API key (OPENAI_API_KEY or embedding.api_key).

Example:
  canoncheck index
  canoncheck index --timeout 30m`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().DurationVar(&indexTimeout, "timeout", 15*time.Minute, "total timeout for the index build")
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	embedder, err := pipeline.NewEmbedder(cfg)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Embedding with %s, %d-record batches, %d workers\n",
			cfg.Embedding.Model, cfg.Embedding.BatchSize, cfg.Embedding.Workers)
	}

	stats, err := pipeline.BuildIndex(ctx, cfg, embedder)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Indexed %d chunks (dimension %d) into %s\n", stats.Chunks, stats.Dim, cfg.Data.IndexDir)
	return nil
}
