package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"canoncheck/internal/pipeline"
)

var (
	batchTimeout time.Duration
	batchRunID   string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <dataset.csv>",
	Short: "Analyze a dataset of stories and write dossiers",
	Long: `Batch analyzes every story in a CSV dataset (columns: id,
book_name, content) against the indexed books.

Each story gets a full dossier with per-claim verdicts and the evidence
behind them; the summary lands in the results table. Stories are
independent: a failing row is reported and skipped. Reruns overwrite
dossiers in place.

Example:
  canoncheck batch stories.csv
  canoncheck batch stories.csv --timeout 1h`,
	Args: cobra.ExactArgs(1),
	RunE: runBatchCmd,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&batchRunID, "run-id", "", "run identifier stamped into dossiers (default: generated)")
}

func runBatchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	if err := p.Load(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "⚙️  Analyzing stories from %s...\n", args[0])

	stats, err := p.RunBatch(ctx, args[0], batchRunID)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Run:          %s\n", stats.RunID)
	fmt.Fprintf(os.Stderr, "  Total:        %d stories\n", stats.Total)
	fmt.Fprintf(os.Stderr, "  Consistent:   %d\n", stats.Consistent)
	fmt.Fprintf(os.Stderr, "  Contradicts:  %d\n", stats.Contradicts)
	fmt.Fprintf(os.Stderr, "  Failed:       %d\n", stats.Failed)
	fmt.Fprintf(os.Stderr, "  Dossiers:     %s\n", cfg.Data.DossierDir)
	fmt.Fprintf(os.Stderr, "  Results:      %s\n", cfg.Data.ResultsCSV)

	return nil
}
