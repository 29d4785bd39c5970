package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"canoncheck/internal/pipeline"
)

var (
	checkFile    string
	checkTimeout time.Duration
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <book> [backstory]",
	Short: "Check a single backstory against a book",
	Long: `Check verifies one character backstory against the canon of a book.

The backstory is taken from the second argument, from --file, or from
stdin. The verdict is CONSISTENT unless a retrieved passage of the book
contradicts one of the backstory's claims.

Example:
  canoncheck check "The Count of Monte Cristo" "Edmond was a sailor."
  canoncheck check "The Count of Monte Cristo" --file backstory.txt
  cat backstory.txt | canoncheck check "The Count of Monte Cristo"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkFile, "file", "", "read the backstory from a file")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 2*time.Minute, "overall check timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	backstory, err := readBackstory(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	if err := p.Load(); err != nil {
		return err
	}

	result, err := p.Check(ctx, args[0], backstory)
	if err != nil {
		return err
	}

	fmt.Printf("Verdict: %s\n", result.Verdict)
	if result.Claims.Fallback && verbose {
		fmt.Fprintf(os.Stderr, "Backstory did not segment, checked as a single claim\n")
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Claims checked: %d\n", result.Claims.Len())
	}

	if len(result.Evidence) == 0 {
		fmt.Println("No related passages found in the book.")
		return nil
	}

	fmt.Printf("\nEvidence (%d passages):\n", len(result.Evidence))
	for _, c := range result.Evidence {
		fmt.Printf("  [%s] %s\n", c.ChunkID, excerpt(c.Text, 160))
	}

	return nil
}

func readBackstory(args []string) (string, error) {
	if len(args) == 2 && checkFile != "" {
		return "", fmt.Errorf("backstory given both as argument and --file")
	}
	if len(args) == 2 {
		return args[1], nil
	}
	if checkFile != "" {
		data, err := os.ReadFile(checkFile)
		if err != nil {
			return "", fmt.Errorf("read backstory file: %w", err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read backstory from stdin: %w", err)
	}
	return string(data), nil
}

// excerpt truncates text for terminal display on a rune boundary.
func excerpt(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
