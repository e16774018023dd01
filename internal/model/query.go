package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MinTitleLength    = 5
	MinAbstractLength = 50
)

// ManuscriptQuery is the manuscript submitted for venue matching
type ManuscriptQuery struct {
	Title      string   `json:"title" yaml:"title"`
	Abstract   string   `json:"abstract" yaml:"abstract"`
	Keywords   []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	OpenAccess bool     `json:"open_access" yaml:"open_access"` // Caller prefers open-access venues
}

// Validate checks the minimum lengths and normalizes keywords in place
func (q *ManuscriptQuery) Validate() error {
	q.Title = strings.TrimSpace(q.Title)
	q.Abstract = strings.TrimSpace(q.Abstract)

	if utf8.RuneCountInString(q.Title) < MinTitleLength {
		return fmt.Errorf("%w: title must be at least %d characters", ErrInvalidQuery, MinTitleLength)
	}
	if utf8.RuneCountInString(q.Abstract) < MinAbstractLength {
		return fmt.Errorf("%w: abstract must be at least %d characters", ErrInvalidQuery, MinAbstractLength)
	}

	q.Keywords = dedupeKeywords(q.Keywords)
	return nil
}

// Text joins title, the abstract prefix (in runes) and keywords into one lookup string
func (q ManuscriptQuery) Text(abstractPrefix int) string {
	parts := []string{q.Title}
	if abs := TruncateRunes(q.Abstract, abstractPrefix); abs != "" {
		parts = append(parts, abs)
	}
	parts = append(parts, q.Keywords...)
	return strings.Join(parts, " ")
}

// TruncateRunes returns at most n runes of s. n <= 0 returns s unchanged.
func TruncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// dedupeKeywords trims keywords and drops case-insensitive duplicates, keeping first-seen order
func dedupeKeywords(keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	return out
}
