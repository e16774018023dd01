package score

import "github.com/ppiankov/venuescope/internal/model"

// Thresholds are the independent cut-offs used for category assignment
type Thresholds struct {
	TopTierHIndex      int
	BroadAudienceWorks int
	EmergingWorks      int
	EmergingCitedness  float64
	MinScore           float64 // Venues in CategoryNone below this are dropped
}

// categorize applies the category rules in order; the first match wins.
// It depends only on the topic term and the venue metrics, never on rank.
func (t Thresholds) categorize(topicTerm float64, m model.Metrics) model.Category {
	h := m.HIndexOrZero()
	works := m.WorksOrZero()

	switch {
	case topicTerm > 0 && h >= t.TopTierHIndex:
		return model.CategoryTopTier
	case works >= t.BroadAudienceWorks:
		return model.CategoryBroadAudience
	case topicTerm > 0 && works < t.BroadAudienceWorks:
		return model.CategoryNiche
	case t.emerging(m):
		return model.CategoryEmerging
	default:
		return model.CategoryNone
	}
}

// emerging requires a known small output with recent citations
func (t Thresholds) emerging(m model.Metrics) bool {
	if m.WorksCount == nil || m.TwoYearMeanCitedness == nil {
		return false
	}
	return *m.WorksCount < t.EmergingWorks && *m.TwoYearMeanCitedness >= t.EmergingCitedness
}

func matchReason(c model.Category) string {
	switch c {
	case model.CategoryTopTier:
		return "High-impact venue covering your topic"
	case model.CategoryBroadAudience:
		return "Large venue with a broad readership"
	case model.CategoryNiche:
		return "Specialized venue matching your topic"
	case model.CategoryEmerging:
		return "Emerging venue with growing citations"
	default:
		return "Ranked by venue metrics"
	}
}
