package openalex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ppiankov/venuescope/internal/model"
)

// SimilarWorks returns the top-k works most similar to text, one signal per work.
// Weight is OpenAlex's relevance_score, or a position-based weight when the
// API omits it (results are sorted by relevance).
func (c *Client) SimilarWorks(ctx context.Context, text string, k int) ([]model.WorkSignal, error) {
	if text == "" {
		return nil, fmt.Errorf("empty similarity query")
	}
	if k <= 0 {
		k = 25
	}
	if k > 200 {
		k = 200
	}

	params := url.Values{
		"search":   {text},
		"per_page": {strconv.Itoa(k)},
		"page":     {"1"},
		"select":   {"id,display_name,relevance_score,primary_topic"},
	}

	var resp worksResponse
	if err := c.getJSON(ctx, "works", "/works", params, &resp); err != nil {
		return nil, err
	}

	total := len(resp.Results)
	signals := make([]model.WorkSignal, 0, total)
	for i, work := range resp.Results {
		if work.PrimaryTopic == nil || work.PrimaryTopic.Subfield.DisplayName == "" {
			continue
		}

		weight := work.RelevanceScore
		if weight <= 0 {
			weight = positionalWeight(i, total)
		}

		signals = append(signals, model.WorkSignal{
			Weight:     weight,
			Field:      work.PrimaryTopic.Field.DisplayName,
			Subfield:   work.PrimaryTopic.Subfield.DisplayName,
			Topic:      work.PrimaryTopic.DisplayName,
			WorksCount: 1,
		})
	}

	c.logger.Debug().Int("works", total).Int("signals", len(signals)).Msg("similar works fetched")
	return signals, nil
}

// positionalWeight maps rank i of n onto (0.1, 1]
func positionalWeight(i, n int) float64 {
	if n <= 1 {
		return 1.0
	}
	return 1.0 - float64(i)/float64(n-1)*0.9
}

type worksResponse struct {
	Meta    responseMeta `json:"meta"`
	Results []work       `json:"results"`
}

type responseMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type work struct {
	ID             string  `json:"id"`
	DisplayName    string  `json:"display_name"`
	RelevanceScore float64 `json:"relevance_score"`
	PrimaryTopic   *topic  `json:"primary_topic"`
}

type topic struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Count       int       `json:"count"`
	Subfield    namedNode `json:"subfield"`
	Field       namedNode `json:"field"`
	Domain      namedNode `json:"domain"`
}

type namedNode struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}
