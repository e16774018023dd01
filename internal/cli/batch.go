package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/venuescope/internal/pipeline"
	"github.com/ppiankov/venuescope/internal/worker"
)

const maxAbstractBytes = 1 << 20

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Search venues for many manuscripts from a YAML file in parallel",
	Long: `Batch runs a search for every manuscript in a YAML file:

  manuscripts:
    - id: empathy-study
      title: Empathy in toddlers
      abstract: ...
      keywords: [empathy, child development]
      open_access: true

One JSON response is written per manuscript into the output directory.

Example:
  venuescope batch manuscripts.yaml
  venuescope batch manuscripts.yaml --concurrency 4 --output-dir ./results`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent searches")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./venuescope-results", "output directory for responses")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	a, err := newAppFromViper(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	fmt.Fprintf(os.Stderr, "⚙️  Searching manuscripts from %s with %d workers...\n\n", file, concurrency)

	processor := worker.NewBatchProcessor(a.search, concurrency)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	failures := writeBatchResults(os.Stderr, pipeline.NewRenderer(verbose), outputDir, results)

	fmt.Fprintf(os.Stderr, "\n  Total:     %d manuscripts\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", len(results)-failures)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failures)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)

	if failures > 0 && failures == len(results) {
		return fmt.Errorf("all %d searches failed", failures)
	}
	return nil
}

// writeBatchResults writes one JSON file per successful search and returns the failure count
func writeBatchResults(log io.Writer, renderer *pipeline.Renderer, dir string, results []*worker.SearchResult) int {
	failures := 0
	for _, result := range results {
		if result.Error != nil {
			failures++
			fmt.Fprintf(log, "✗ %s: %v\n", result.ID, result.Error)
			continue
		}

		path := filepath.Join(dir, sanitizeFilename(result.ID)+".json")
		if err := renderer.RenderJSONFile(result.Response, path); err != nil {
			failures++
			fmt.Fprintf(log, "✗ %s: failed to write JSON: %v\n", result.ID, err)
			continue
		}
		fmt.Fprintf(log, "✓ %s (%d venues)\n", result.ID, len(result.Response.Venues))
	}
	return failures
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")
	if s == "" {
		s = "manuscript"
	}

	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

func readAllLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxAbstractBytes))
}
