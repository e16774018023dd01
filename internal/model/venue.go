package model

// VenueCandidate is a publication venue as returned by the catalog
type VenueCandidate struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Publisher   string   `json:"publisher,omitempty"`
	ISSN        []string `json:"issn,omitempty"`
	ISSNL       string   `json:"issn_l,omitempty"`
	HomepageURL string   `json:"homepage_url,omitempty"`
	OpenAccess  bool     `json:"open_access"`
	InDOAJ      bool     `json:"in_doaj"`
	APCUSD      *float64 `json:"apc_usd,omitempty"` // Article processing charge
	Metrics     Metrics  `json:"metrics"`
	Topics      []string `json:"topics,omitempty"`
}

// Metrics holds optional bibliometric indicators. A nil field is unknown, not zero.
type Metrics struct {
	CitedByCount         *int     `json:"cited_by_count,omitempty"`
	WorksCount           *int     `json:"works_count,omitempty"`
	HIndex               *int     `json:"h_index,omitempty"`
	I10Index             *int     `json:"i10_index,omitempty"`
	TwoYearMeanCitedness *float64 `json:"two_year_mean_citedness,omitempty"`
}

// HIndexOrZero returns the h-index or 0 when unknown
func (m Metrics) HIndexOrZero() int {
	if m.HIndex == nil {
		return 0
	}
	return *m.HIndex
}

// WorksOrZero returns the works count or 0 when unknown
func (m Metrics) WorksOrZero() int {
	if m.WorksCount == nil {
		return 0
	}
	return *m.WorksCount
}

// AllISSNs returns ISSN-L followed by the remaining ISSNs without duplicates
func (v VenueCandidate) AllISSNs() []string {
	var out []string
	seen := make(map[string]bool)
	for _, issn := range append([]string{v.ISSNL}, v.ISSN...) {
		if issn == "" || seen[issn] {
			continue
		}
		seen[issn] = true
		out = append(out, issn)
	}
	return out
}

// Category classifies a scored venue
type Category string

const (
	CategoryTopTier       Category = "top_tier"
	CategoryBroadAudience Category = "broad_audience"
	CategoryNiche         Category = "niche"
	CategoryEmerging      Category = "emerging"
	CategoryNone          Category = "none"
)

// ScoredVenue is a candidate with its relevance score for one manuscript.
// Scores are only comparable within the request that produced them.
type ScoredVenue struct {
	VenueCandidate
	RelevanceScore float64  `json:"relevance_score"`
	Category       Category `json:"category"`
	MatchReason    string   `json:"match_reason"`
	MatchDetails   []string `json:"match_details,omitempty"`  // At most 3
	MatchedTopics  []string `json:"matched_topics,omitempty"` // At most 5
}

// VerifiedVenue pairs a scored venue with its trust verdict
type VerifiedVenue struct {
	ScoredVenue
	Verification VerificationVerdict `json:"verification"`
}

// CatalogQuery asks the catalog for candidate venues
type CatalogQuery struct {
	Search string
	Limit  int
}
