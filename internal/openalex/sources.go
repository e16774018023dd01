package openalex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/venuescope/internal/model"
)

// FetchVenues searches the OpenAlex source catalog for journals matching q
func (c *Client) FetchVenues(ctx context.Context, q model.CatalogQuery) ([]model.VenueCandidate, error) {
	search := strings.TrimSpace(q.Search)
	if search == "" {
		return nil, fmt.Errorf("empty catalog query")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}

	params := url.Values{
		"search":   {search},
		"filter":   {"type:journal"},
		"per_page": {strconv.Itoa(limit)},
		"page":     {"1"},
	}

	var resp sourcesResponse
	if err := c.getJSON(ctx, "sources", "/sources", params, &resp); err != nil {
		return nil, err
	}

	venues := make([]model.VenueCandidate, 0, len(resp.Results))
	for _, src := range resp.Results {
		venues = append(venues, src.toCandidate())
	}

	c.logger.Debug().Str("search", search).Int("venues", len(venues)).Msg("catalog fetched")
	return venues, nil
}

// LookupISSN returns the catalog entry for a single ISSN. The boolean is false
// when OpenAlex has no journal with that ISSN.
func (c *Client) LookupISSN(ctx context.Context, issn string) (model.VenueCandidate, bool, error) {
	issn = strings.ToUpper(strings.TrimSpace(issn))
	if issn == "" {
		return model.VenueCandidate{}, false, fmt.Errorf("empty ISSN")
	}

	params := url.Values{
		"filter":   {"issn:" + issn},
		"per_page": {"1"},
	}

	var resp sourcesResponse
	if err := c.getJSON(ctx, "sources", "/sources", params, &resp); err != nil {
		return model.VenueCandidate{}, false, err
	}
	if len(resp.Results) == 0 {
		return model.VenueCandidate{}, false, nil
	}
	return resp.Results[0].toCandidate(), true, nil
}

type sourcesResponse struct {
	Meta    responseMeta `json:"meta"`
	Results []source     `json:"results"`
}

type source struct {
	ID                   string       `json:"id"`
	DisplayName          string       `json:"display_name"`
	HostOrganizationName string       `json:"host_organization_name"`
	ISSNL                string       `json:"issn_l"`
	ISSN                 []string     `json:"issn"`
	HomepageURL          string       `json:"homepage_url"`
	IsOA                 bool         `json:"is_oa"`
	IsInDOAJ             bool         `json:"is_in_doaj"`
	APCUSD               *float64     `json:"apc_usd"`
	WorksCount           *int         `json:"works_count"`
	CitedByCount         *int         `json:"cited_by_count"`
	SummaryStats         summaryStats `json:"summary_stats"`
	Topics               []topic      `json:"topics"`
}

type summaryStats struct {
	TwoYearMeanCitedness *float64 `json:"2yr_mean_citedness"`
	HIndex               *int     `json:"h_index"`
	I10Index             *int     `json:"i10_index"`
}

func (s source) toCandidate() model.VenueCandidate {
	topics := make([]string, 0, len(s.Topics))
	for _, t := range s.Topics {
		if t.DisplayName != "" {
			topics = append(topics, t.DisplayName)
		}
	}

	return model.VenueCandidate{
		ID:          strings.TrimPrefix(s.ID, "https://openalex.org/"),
		Name:        strings.TrimSpace(s.DisplayName),
		Publisher:   s.HostOrganizationName,
		ISSN:        s.ISSN,
		ISSNL:       s.ISSNL,
		HomepageURL: s.HomepageURL,
		OpenAccess:  s.IsOA,
		InDOAJ:      s.IsInDOAJ,
		APCUSD:      s.APCUSD,
		Metrics: model.Metrics{
			CitedByCount:         s.CitedByCount,
			WorksCount:           s.WorksCount,
			HIndex:               s.SummaryStats.HIndex,
			I10Index:             s.SummaryStats.I10Index,
			TwoYearMeanCitedness: s.SummaryStats.TwoYearMeanCitedness,
		},
		Topics: topics,
	}
}
