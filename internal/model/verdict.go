package model

import "time"

// Severity ranks a single trust flag
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities; unknown values rank below low
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	default:
		return 0
	}
}

// Badge returns the badge a flag of this severity implies
func (s Severity) Badge() Badge {
	switch s {
	case SeverityLow:
		return BadgeVerified
	case SeverityMedium:
		return BadgeCaution
	case SeverityHigh, SeverityCritical:
		return BadgeHighRisk
	default:
		return BadgeUnverified
	}
}

// ParseSeverity converts a string into a Severity, defaulting to medium
func ParseSeverity(s string) Severity {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(s)
	default:
		return SeverityMedium
	}
}

// Badge is the coarse, user-facing trust tier of a venue
type Badge string

const (
	BadgeVerified   Badge = "verified"
	BadgeCaution    Badge = "caution"
	BadgeHighRisk   Badge = "high_risk"
	BadgeUnverified Badge = "unverified"
)

// Rank orders badges: high_risk > caution > unverified > verified
func (b Badge) Rank() int {
	switch b {
	case BadgeHighRisk:
		return 4
	case BadgeCaution:
		return 3
	case BadgeUnverified:
		return 2
	case BadgeVerified:
		return 1
	default:
		return 0
	}
}

// Flag is a single signal produced by one trust source
type Flag struct {
	Source   string   `json:"source"`
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
}

// VerificationVerdict is the merged trust verdict for one venue
type VerificationVerdict struct {
	Badge           Badge      `json:"badge_color"`
	StatusText      string     `json:"status_text"`
	Subtitle        string     `json:"subtitle,omitempty"`
	Reasons         []string   `json:"reasons"`
	Flags           []Flag     `json:"flags"`
	SourcesChecked  []string   `json:"sources_checked"`
	VerifiedBy      string     `json:"verified_by,omitempty"`
	CheckedAt       time.Time  `json:"checked_at"`
	CacheValidUntil *time.Time `json:"cache_valid_until,omitempty"`
}

// CheckState tracks a venue through verification
type CheckState string

const (
	StateUnchecked CheckState = "unchecked"
	StateChecking  CheckState = "checking"
	StateVerdict   CheckState = "verdict"
)
