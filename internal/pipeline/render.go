package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	json "github.com/goccy/go-json"

	"github.com/ppiankov/venuescope/internal/model"
)

// Renderer renders search responses for the CLI
type Renderer struct {
	verbose bool
}

// NewRenderer creates a renderer. Verbose output adds match details and trust reasons.
func NewRenderer(verbose bool) *Renderer {
	return &Renderer{verbose: verbose}
}

// RenderJSON writes resp as indented JSON
func (r *Renderer) RenderJSON(w io.Writer, resp *model.SearchResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// RenderJSONFile writes resp to path, creating parent directories
func (r *Renderer) RenderJSONFile(resp *model.SearchResponse, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := r.RenderJSON(f, resp); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// RenderTable writes a ranked table of venues
func (r *Renderer) RenderTable(w io.Writer, resp *model.SearchResponse) error {
	if d := resp.DisciplineDetection; d != nil {
		fmt.Fprintf(w, "Discipline: %s", d.Name)
		if d.Field != "" {
			fmt.Fprintf(w, " (%s)", d.Field)
		}
		fmt.Fprintf(w, "  confidence %.2f via %s\n", d.Confidence, d.Source)
	} else {
		fmt.Fprintln(w, "Discipline: not detected, ranked by catalog metrics")
	}
	fmt.Fprintf(w, "Found %d venues, showing %d\n\n", resp.TotalFound, len(resp.Venues))

	if len(resp.Venues) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tVENUE\tSCORE\tCATEGORY\tTRUST\tOA\tREASON")
	for i, v := range resp.Venues {
		oa := "-"
		if v.OpenAccess {
			oa = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%s\t%s\t%s\t%s\n",
			i+1, truncate(v.Name, 48), v.RelevanceScore, v.Category, v.Verification.Badge, oa, v.MatchReason)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !r.verbose {
		return nil
	}
	for i, v := range resp.Venues {
		fmt.Fprintf(w, "\n%d. %s\n", i+1, v.Name)
		for _, d := range v.MatchDetails {
			fmt.Fprintf(w, "   + %s\n", d)
		}
		if len(v.MatchedTopics) > 0 {
			fmt.Fprintf(w, "   topics: %s\n", strings.Join(v.MatchedTopics, ", "))
		}
		fmt.Fprintf(w, "   trust: %s", v.Verification.StatusText)
		if len(v.Verification.SourcesChecked) > 0 {
			fmt.Fprintf(w, " [%s]", strings.Join(v.Verification.SourcesChecked, ", "))
		}
		fmt.Fprintln(w)
		for _, reason := range v.Verification.Reasons {
			fmt.Fprintf(w, "   ! %s\n", reason)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n || n <= 3 {
		return model.TruncateRunes(s, n)
	}
	return model.TruncateRunes(s, n-3) + "..."
}
