// Package score ranks candidate venues against a manuscript's topic signature
package score

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ppiankov/venuescope/internal/model"
)

const (
	maxMatchDetails  = 3
	maxMatchedTopics = 5
)

// Weights controls how much each relevance term contributes
type Weights struct {
	Topic       float64 // Per matched topic, scaled by signature confidence
	Authority   float64 // Ceiling of the saturating authority term
	OpenAccess  float64 // Flat bonus when requested and available
	WorksScale  float64 // Works count at which the works half reaches ~63%
	HIndexScale float64 // h-index at which the h half reaches ~63%
}

// Scorer calculates relevance scores and categories for venues
type Scorer struct {
	weights    Weights
	thresholds Thresholds
}

// NewScorer creates a scorer from configuration
func NewScorer(cfg model.ScoringConfig) *Scorer {
	return &Scorer{
		weights: Weights{
			Topic:       cfg.TopicWeight,
			Authority:   cfg.AuthorityWeight,
			OpenAccess:  cfg.OpenAccessBonus,
			WorksScale:  cfg.WorksScale,
			HIndexScale: cfg.HIndexScale,
		},
		thresholds: Thresholds{
			TopTierHIndex:      cfg.TopTierHIndex,
			BroadAudienceWorks: cfg.BroadAudienceWorks,
			EmergingWorks:      cfg.EmergingWorks,
			EmergingCitedness:  cfg.EmergingCitedness,
			MinScore:           cfg.MinRelevanceScore,
		},
	}
}

// term is one non-zero contribution to a venue's score
type term struct {
	value  float64
	detail string
}

// Score ranks candidates against sig. A nil signature ranks on metrics alone.
// Output is sorted by score desc, then h-index desc, then name asc.
func (s *Scorer) Score(sig *model.TopicSignature, candidates []model.VenueCandidate, openAccess bool) []model.ScoredVenue {
	var sigTopics map[string]bool
	var confidence float64
	if sig != nil {
		sigTopics = normalizeSet(sig.Topics)
		confidence = sig.Confidence
	}

	scored := make([]model.ScoredVenue, 0, len(candidates))
	for _, venue := range candidates {
		// 1. Topic overlap
		matched := matchTopics(venue.Topics, sigTopics)
		topicTerm := float64(len(matched)) * confidence * s.weights.Topic

		// 2. Authority
		authorityTerm := s.authority(venue.Metrics)

		// 3. Open-access bonus
		var oaTerm float64
		if openAccess && venue.OpenAccess {
			oaTerm = s.weights.OpenAccess
		}

		total := topicTerm + authorityTerm + oaTerm
		category := s.thresholds.categorize(topicTerm, venue.Metrics)
		if category == model.CategoryNone && total < s.thresholds.MinScore {
			continue
		}

		terms := []term{
			{topicTerm, topicDetail(matched)},
			{authorityTerm, authorityDetail(venue.Metrics)},
			{oaTerm, "Open access, as requested"},
		}

		if len(matched) > maxMatchedTopics {
			matched = matched[:maxMatchedTopics]
		}

		scored = append(scored, model.ScoredVenue{
			VenueCandidate: venue,
			RelevanceScore: round(total),
			Category:       category,
			MatchReason:    matchReason(category),
			MatchDetails:   details(terms),
			MatchedTopics:  matched,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		if ha, hb := a.Metrics.HIndexOrZero(), b.Metrics.HIndexOrZero(); ha != hb {
			return ha > hb
		}
		return a.Name < b.Name
	})

	return scored
}

// authority is a saturating blend of output volume and h-index, each half in [0, 0.5).
// Absent metrics contribute zero.
func (s *Scorer) authority(m model.Metrics) float64 {
	var v float64
	if m.WorksCount != nil && *m.WorksCount > 0 && s.weights.WorksScale > 0 {
		v += 0.5 * (1 - math.Exp(-float64(*m.WorksCount)/s.weights.WorksScale))
	}
	if m.HIndex != nil && *m.HIndex > 0 && s.weights.HIndexScale > 0 {
		v += 0.5 * (1 - math.Exp(-float64(*m.HIndex)/s.weights.HIndexScale))
	}
	return v * s.weights.Authority
}

// matchTopics returns the venue's own labels that normalize to a signature topic,
// in venue order and without duplicates
func matchTopics(venueTopics []string, sigTopics map[string]bool) []string {
	if len(sigTopics) == 0 {
		return nil
	}

	var matched []string
	seen := make(map[string]bool)
	for _, label := range venueTopics {
		n := Normalize(label)
		if n == "" || !sigTopics[n] || seen[n] {
			continue
		}
		seen[n] = true
		matched = append(matched, label)
	}
	return matched
}

func topicDetail(matched []string) string {
	shown := matched
	if len(shown) > 3 {
		shown = shown[:3]
	}
	if len(matched) == 1 {
		return fmt.Sprintf("Publishes on %s", shown[0])
	}
	return fmt.Sprintf("Publishes on %d of your topics: %s", len(matched), strings.Join(shown, ", "))
}

func authorityDetail(m model.Metrics) string {
	var parts []string
	if m.HIndex != nil {
		parts = append(parts, fmt.Sprintf("h-index %d", *m.HIndex))
	}
	if m.WorksCount != nil {
		parts = append(parts, fmt.Sprintf("%d works published", *m.WorksCount))
	}
	return "Established venue: " + strings.Join(parts, ", ")
}

// details keeps non-zero terms ordered by contribution, capped at maxMatchDetails
func details(terms []term) []string {
	sort.SliceStable(terms, func(i, j int) bool { return terms[i].value > terms[j].value })

	var out []string
	for _, t := range terms {
		if t.value <= 0 {
			continue
		}
		out = append(out, t.detail)
		if len(out) == maxMatchDetails {
			break
		}
	}
	return out
}

// round keeps scores stable for display and comparison
func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
