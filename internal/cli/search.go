package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/venuescope/internal/model"
	"github.com/ppiankov/venuescope/internal/pipeline"
)

var (
	searchTitle      string
	searchAbstract   string
	searchAbstractIn string
	searchKeywords   []string
	searchOpenAccess bool
	searchJSON       bool
	searchOutput     string
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Suggest journals for one manuscript",
	Long: `Search resolves a topic signature for the manuscript, ranks catalog
journals by relevance and attaches a trust verdict to each.

Example:
  venuescope search --title "Empathy in toddlers" --abstract-file abstract.txt
  venuescope search --title "..." --abstract "..." -k empathy -k "child development" --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchTitle, "title", "", "manuscript title")
	searchCmd.Flags().StringVar(&searchAbstract, "abstract", "", "manuscript abstract")
	searchCmd.Flags().StringVar(&searchAbstractIn, "abstract-file", "", "read the abstract from a file ('-' for stdin)")
	searchCmd.Flags().StringSliceVarP(&searchKeywords, "keyword", "k", nil, "manuscript keyword (repeatable)")
	searchCmd.Flags().BoolVar(&searchOpenAccess, "open-access", false, "prefer open-access venues")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "print the response as JSON")
	searchCmd.Flags().StringVarP(&searchOutput, "output", "o", "", "also write the JSON response to this file")
	_ = searchCmd.MarkFlagRequired("title")
}

func runSearch(cmd *cobra.Command, args []string) error {
	abstract, err := readAbstract(searchAbstract, searchAbstractIn)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newAppFromViper(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	resp, err := a.search.Search(ctx, model.ManuscriptQuery{
		Title:      searchTitle,
		Abstract:   abstract,
		Keywords:   searchKeywords,
		OpenAccess: searchOpenAccess,
	})
	if err != nil {
		return err
	}

	renderer := pipeline.NewRenderer(verbose)
	if searchOutput != "" {
		if err := renderer.RenderJSONFile(resp, searchOutput); err != nil {
			return err
		}
	}
	if searchJSON {
		return renderer.RenderJSON(cmd.OutOrStdout(), resp)
	}
	return renderer.RenderTable(cmd.OutOrStdout(), resp)
}

// readAbstract prefers inline text and falls back to a file or stdin
func readAbstract(inline, path string) (string, error) {
	if inline != "" || path == "" {
		return inline, nil
	}
	if path == "-" {
		data, err := readAllLimited(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read abstract from stdin: %w", err)
		}
		return string(data), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open abstract file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := readAllLimited(f)
	if err != nil {
		return "", fmt.Errorf("read abstract file: %w", err)
	}
	return string(data), nil
}
