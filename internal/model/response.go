package model

// SearchResponse is the response shape of the search operation
type SearchResponse struct {
	SearchID            string               `json:"search_id"`
	Discipline          *string              `json:"discipline"`
	DisciplineDetection *DisciplineDetection `json:"discipline_detection"`
	TotalFound          int                  `json:"total_found"`
	Venues              []VerifiedVenue      `json:"venues"`
}

// ExplanationResponse is the response shape of the explanation operation
type ExplanationResponse struct {
	Explanation    string `json:"explanation"`
	IsAIGenerated  bool   `json:"is_ai_generated"`
	Cached         bool   `json:"cached"`
	RemainingToday *int   `json:"remaining_today"` // nil for unlimited tiers
}
