package validate

import (
	"sort"
	"time"

	"github.com/ppiankov/venuescope/internal/model"
)

// Merge builds one verdict from the flags of the sources that answered.
// order maps source names to their check position; unknown sources sort last.
func Merge(flags []model.Flag, checked []string, order map[string]int, now time.Time) model.VerificationVerdict {
	pos := func(source string) int {
		if p, ok := order[source]; ok {
			return p
		}
		return len(order)
	}

	sorted := append([]model.Flag(nil), flags...)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := sorted[i].Severity.Rank(), sorted[j].Severity.Rank()
		if ri != rj {
			return ri > rj
		}
		return pos(sorted[i].Source) < pos(sorted[j].Source)
	})

	sources := append([]string(nil), checked...)
	sort.SliceStable(sources, func(i, j int) bool { return pos(sources[i]) < pos(sources[j]) })

	badge := model.BadgeUnverified
	if len(sorted) > 0 {
		badge = model.BadgeVerified
		for _, f := range sorted {
			if b := f.Severity.Badge(); b.Rank() > badge.Rank() {
				badge = b
			}
		}
	}

	reasons := make([]string, 0, len(sorted))
	seen := make(map[string]bool)
	for _, f := range sorted {
		if seen[f.Reason] {
			continue
		}
		seen[f.Reason] = true
		reasons = append(reasons, f.Reason)
	}

	verdict := model.VerificationVerdict{
		Badge:          badge,
		Reasons:        reasons,
		Flags:          sorted,
		SourcesChecked: sources,
		CheckedAt:      now,
	}

	if badge == model.BadgeVerified {
		byOrder := append([]model.Flag(nil), sorted...)
		sort.SliceStable(byOrder, func(i, j int) bool { return pos(byOrder[i].Source) < pos(byOrder[j].Source) })
		for _, f := range byOrder {
			if f.Severity == model.SeverityLow {
				verdict.VerifiedBy = f.Source
				break
			}
		}
	}

	verdict.StatusText, verdict.Subtitle = describe(verdict)
	return verdict
}

func describe(v model.VerificationVerdict) (status, subtitle string) {
	switch v.Badge {
	case model.BadgeVerified:
		return "Verified venue", "Confirmed by " + v.VerifiedBy
	case model.BadgeCaution:
		return "Proceed with caution", v.Reasons[0]
	case model.BadgeHighRisk:
		return "High risk venue", v.Reasons[0]
	default:
		if len(v.SourcesChecked) == 0 {
			return "Not verified", "No trust source could be reached"
		}
		return "Not verified", "Not found on any authority list"
	}
}
