package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/venuescope/internal/model"
)

var testOrder = map[string]int{"allow": 0, "doaj": 1, "deny": 2, "issn": 3, "metrics": 4}

func TestMerge_NoFlagsIsUnverified(t *testing.T) {
	v := Merge(nil, []string{"doaj", "issn"}, testOrder, time.Now())
	assert.Equal(t, model.BadgeUnverified, v.Badge)
	assert.Empty(t, v.Reasons)
	assert.Empty(t, v.VerifiedBy)
	assert.Equal(t, "Not found on any authority list", v.Subtitle)
}

func TestMerge_NothingChecked(t *testing.T) {
	v := Merge(nil, nil, testOrder, time.Now())
	assert.Equal(t, model.BadgeUnverified, v.Badge)
	assert.Equal(t, "No trust source could be reached", v.Subtitle)
}

func TestMerge_CriticalIsHighRisk(t *testing.T) {
	flags := []model.Flag{
		{Source: "allow", Reason: "Indexed in DOAJ", Severity: model.SeverityLow},
		{Source: "deny", Reason: "Predatory publisher", Severity: model.SeverityCritical},
		{Source: "metrics", Reason: "Low citations", Severity: model.SeverityMedium},
	}
	v := Merge(flags, []string{"metrics", "deny", "allow"}, testOrder, time.Now())

	assert.Equal(t, model.BadgeHighRisk, v.Badge)
	assert.Equal(t, []string{"Predatory publisher", "Low citations", "Indexed in DOAJ"}, v.Reasons)
	assert.Equal(t, []string{"allow", "deny", "metrics"}, v.SourcesChecked)
	assert.Empty(t, v.VerifiedBy)
	assert.Equal(t, "Predatory publisher", v.Subtitle)
}

func TestMerge_SeverityMapping(t *testing.T) {
	tests := []struct {
		sev  model.Severity
		want model.Badge
	}{
		{model.SeverityLow, model.BadgeVerified},
		{model.SeverityMedium, model.BadgeCaution},
		{model.SeverityHigh, model.BadgeHighRisk},
		{model.SeverityCritical, model.BadgeHighRisk},
	}
	for _, tt := range tests {
		v := Merge([]model.Flag{{Source: "issn", Reason: "r", Severity: tt.sev}}, []string{"issn"}, testOrder, time.Now())
		assert.Equal(t, tt.want, v.Badge, "severity %s", tt.sev)
	}
}

func TestMerge_ReasonsDedupedAndOrdered(t *testing.T) {
	flags := []model.Flag{
		{Source: "metrics", Reason: "B", Severity: model.SeverityMedium},
		{Source: "issn", Reason: "A", Severity: model.SeverityMedium},
		{Source: "metrics", Reason: "A", Severity: model.SeverityMedium},
		{Source: "unknown", Reason: "C", Severity: model.SeverityMedium},
		{Source: "deny", Reason: "D", Severity: model.SeverityHigh},
	}
	v := Merge(flags, nil, testOrder, time.Now())
	assert.Equal(t, []string{"D", "A", "B", "C"}, v.Reasons)
}

func TestMerge_VerifiedBy(t *testing.T) {
	flags := []model.Flag{
		{Source: "doaj", Reason: "Indexed in DOAJ", Severity: model.SeverityLow},
		{Source: "allow", Reason: "On allow list", Severity: model.SeverityLow},
	}
	v := Merge(flags, []string{"doaj", "allow"}, testOrder, time.Now())
	assert.Equal(t, model.BadgeVerified, v.Badge)
	assert.Equal(t, "allow", v.VerifiedBy)
	assert.Equal(t, "Verified venue", v.StatusText)
}
