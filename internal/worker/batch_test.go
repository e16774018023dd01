package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ppiankov/venuescope/internal/model"
)

// MockSearcher implements Searcher
type MockSearcher struct {
	FailTitle string
	Delay     time.Duration
}

func (m *MockSearcher) Search(ctx context.Context, q model.ManuscriptQuery) (*model.SearchResponse, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if q.Title == m.FailTitle {
		return nil, errors.New("search error")
	}
	return &model.SearchResponse{SearchID: "id-" + q.Title, TotalFound: 1}, nil
}

func items(titles ...string) []BatchItem {
	out := make([]BatchItem, len(titles))
	for i, title := range titles {
		out[i] = BatchItem{ID: title, ManuscriptQuery: model.ManuscriptQuery{Title: title}}
	}
	return out
}

func TestBatchProcessor_ProcessItems(t *testing.T) {
	processor := NewBatchProcessor(&MockSearcher{Delay: 5 * time.Millisecond}, 2)

	results := processor.ProcessItems(context.Background(), items("a", "b", "c", "d", "e"))

	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, res := range results {
		if res.Index != i {
			t.Errorf("expected input order, got index %d at %d", res.Index, i)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.ID, res.Error)
		}
		if res.Response == nil || res.Response.SearchID != "id-"+res.Title {
			t.Errorf("unexpected response for %s: %+v", res.ID, res.Response)
		}
	}
}

func TestBatchProcessor_ProcessItems_Error(t *testing.T) {
	processor := NewBatchProcessor(&MockSearcher{FailTitle: "b"}, 2)

	results := processor.ProcessItems(context.Background(), items("a", "b"))

	if results[0].Error != nil {
		t.Errorf("expected success for a, got %v", results[0].Error)
	}
	if results[1].Error == nil {
		t.Error("expected error for b, got nil")
	}
	if results[1].Response != nil {
		t.Error("expected nil response on error")
	}
}

func TestBatchProcessor_ProcessItems_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockSearcher{}, 2)

	results := processor.ProcessItems(context.Background(), nil)
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessItems_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(&MockSearcher{Delay: time.Second}, 1)
	results := processor.ProcessItems(ctx, items("a", "b", "c"))

	if len(results) != 3 {
		t.Fatalf("expected a result per item, got %d", len(results))
	}
	for _, res := range results {
		if !errors.Is(res.Error, context.Canceled) {
			t.Errorf("expected context.Canceled for %s, got %v", res.ID, res.Error)
		}
	}
}

func writeBatchFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadManuscriptsFromFile(t *testing.T) {
	path := writeBatchFile(t, `manuscripts:
  - id: empathy
    title: Empathy development in toddlers
    abstract: We followed children aged 18 to 36 months.
    keywords: [empathy, toddlers]
    open_access: true
  - title: Untitled second manuscript
    abstract: Something else entirely.
  - id: empathy
    title: Duplicate id is dropped
`)

	got, err := ReadManuscriptsFromFile(path)
	if err != nil {
		t.Fatalf("ReadManuscriptsFromFile failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 manuscripts, got %d", len(got))
	}
	if got[0].ID != "empathy" || got[0].Title != "Empathy development in toddlers" {
		t.Errorf("unexpected first item: %+v", got[0])
	}
	if !got[0].OpenAccess || len(got[0].Keywords) != 2 {
		t.Errorf("expected inline query fields, got %+v", got[0].ManuscriptQuery)
	}
	if got[1].ID != "manuscript-2" {
		t.Errorf("expected positional id, got %s", got[1].ID)
	}
}

func TestReadManuscriptsFromFile_Errors(t *testing.T) {
	if _, err := ReadManuscriptsFromFile("no_such_file.yaml"); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
	if _, err := ReadManuscriptsFromFile(writeBatchFile(t, "manuscripts: [unclosed")); err == nil {
		t.Error("expected error for malformed YAML, got nil")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeBatchFile(t, "manuscripts:\n  - title: one\n  - title: two\n")

	results, err := NewBatchProcessor(&MockSearcher{}, 2).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results, got %d", len(results))
	}

	empty := writeBatchFile(t, "")
	results, err = NewBatchProcessor(&MockSearcher{}, 2).ProcessFile(context.Background(), empty)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results for empty file, got %d", len(results))
	}
}

func TestSearchResult_GetError(t *testing.T) {
	r1 := &SearchResult{ID: "a"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("search failed")
	r2 := &SearchResult{ID: "a", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}
