package worker

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/venuescope/internal/model"
)

// Searcher runs one manuscript search
type Searcher interface {
	Search(ctx context.Context, q model.ManuscriptQuery) (*model.SearchResponse, error)
}

// BatchItem is one manuscript in a batch file
type BatchItem struct {
	ID                    string `yaml:"id"`
	model.ManuscriptQuery `yaml:",inline"`
}

// batchFile is the YAML layout of a batch file
type batchFile struct {
	Manuscripts []BatchItem `yaml:"manuscripts"`
}

// SearchJob represents one manuscript search
type SearchJob struct {
	Index    int
	Item     BatchItem
	Searcher Searcher
}

// Execute executes the search job
func (j *SearchJob) Execute(ctx context.Context) Result {
	resp, err := j.Searcher.Search(ctx, j.Item.ManuscriptQuery)
	return &SearchResult{
		Index:    j.Index,
		ID:       j.Item.ID,
		Title:    j.Item.Title,
		Response: resp,
		Error:    err,
	}
}

// SearchResult represents the result of a search job
type SearchResult struct {
	Index    int
	ID       string
	Title    string
	Response *model.SearchResponse
	Error    error
}

// GetError returns the error from the search result
func (r *SearchResult) GetError() error {
	return r.Error
}

// BatchProcessor runs many manuscript searches concurrently
type BatchProcessor struct {
	searcher    Searcher
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(searcher Searcher, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		searcher:    searcher,
		concurrency: concurrency,
	}
}

// ProcessItems searches every item and returns results in input order.
// Items never started because ctx ended are reported with ctx's error.
func (b *BatchProcessor) ProcessItems(ctx context.Context, items []BatchItem) []*SearchResult {
	if len(items) == 0 {
		return []*SearchResult{}
	}

	jobs := make([]Job, len(items))
	for i, item := range items {
		jobs[i] = &SearchJob{Index: i, Item: item, Searcher: b.searcher}
	}

	pool := NewPool(ctx, b.concurrency)
	done := pool.Run(jobs)

	results := make([]*SearchResult, len(items))
	for _, r := range done {
		sr := r.(*SearchResult)
		results[sr.Index] = sr
	}
	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = fmt.Errorf("search not started")
			}
			results[i] = &SearchResult{Index: i, ID: items[i].ID, Title: items[i].Title, Error: err}
		}
	}
	return results
}

// ProcessFile reads manuscripts from a YAML file and searches them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*SearchResult, error) {
	items, err := ReadManuscriptsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read manuscripts: %w", err)
	}

	return b.ProcessItems(ctx, items), nil
}

// ReadManuscriptsFromFile reads a YAML batch file. Items without an id are
// numbered by position; later items repeating an id are dropped.
func ReadManuscriptsFromFile(filePath string) ([]BatchItem, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}

	items := make([]BatchItem, 0, len(f.Manuscripts))
	seen := make(map[string]bool)
	for i, item := range f.Manuscripts {
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" {
			item.ID = fmt.Sprintf("manuscript-%d", i+1)
		}
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		items = append(items, item)
	}

	return items, nil
}
