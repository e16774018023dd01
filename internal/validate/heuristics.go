package validate

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/ppiankov/venuescope/internal/model"
)

// DOAJFlagChecker trusts the catalog's own DOAJ membership flag
type DOAJFlagChecker struct{}

// Name returns the source tag
func (DOAJFlagChecker) Name() string { return "doaj" }

// Check flags DOAJ-indexed venues as low severity
func (DOAJFlagChecker) Check(_ context.Context, venue model.VenueCandidate) ([]model.Flag, error) {
	if !venue.InDOAJ {
		return nil, nil
	}
	return []model.Flag{flag("doaj", "Indexed in the Directory of Open Access Journals", model.SeverityLow)}, nil
}

// ISSNChecker validates ISSN check digits
type ISSNChecker struct{}

// Name returns the source tag
func (ISSNChecker) Name() string { return "issn" }

// Check flags missing ISSNs as medium and malformed ones as high
func (ISSNChecker) Check(_ context.Context, venue model.VenueCandidate) ([]model.Flag, error) {
	issns := venue.AllISSNs()
	if len(issns) == 0 {
		return []model.Flag{flag("issn", "No ISSN registered", model.SeverityMedium)}, nil
	}

	var flags []model.Flag
	for _, issn := range issns {
		if !ValidISSN(issn) {
			flags = append(flags, flag("issn", fmt.Sprintf("ISSN %s fails checksum validation", issn), model.SeverityHigh))
		}
	}
	return flags, nil
}

// ValidISSN reports whether s is an 8-character ISSN with a correct check digit
func ValidISSN(s string) bool {
	n := normalizeISSN(s)
	if len(n) != 9 {
		return false
	}

	sum := 0
	weight := 8
	for i, d := range []byte(n[:8]) {
		if i == 4 {
			continue
		}
		if d < '0' || d > '9' {
			return false
		}
		sum += int(d-'0') * weight
		weight--
	}

	check := (11 - sum%11) % 11
	last := n[8]
	if check == 10 {
		return last == 'X'
	}
	return last == byte('0'+check)
}

// normalizeISSN returns the NNNN-NNNC form, or "" when s cannot be an ISSN
func normalizeISSN(s string) string {
	s = strings.ToUpper(strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(s)))
	if len(s) != 8 {
		return ""
	}
	return s[:4] + "-" + s[4:]
}

// MetricsChecker applies bibliometric red-flag heuristics
type MetricsChecker struct {
	HighOutputWorks int     // Works count above which a low citation rate is suspicious
	LowCitedness    float64 // 2yr mean citedness considered near zero
}

// NewMetricsChecker creates a checker with default thresholds
func NewMetricsChecker() *MetricsChecker {
	return &MetricsChecker{HighOutputWorks: 5000, LowCitedness: 0.2}
}

// Name returns the source tag
func (c *MetricsChecker) Name() string { return "metrics" }

// Check flags venues whose metrics resemble high-volume, low-impact publishers
func (c *MetricsChecker) Check(_ context.Context, venue model.VenueCandidate) ([]model.Flag, error) {
	m := venue.Metrics
	var flags []model.Flag

	if m.WorksCount != nil && *m.WorksCount >= c.HighOutputWorks &&
		m.TwoYearMeanCitedness != nil && *m.TwoYearMeanCitedness < c.LowCitedness {
		flags = append(flags, flag("metrics",
			fmt.Sprintf("High output (%d works) with very low citation rate", *m.WorksCount), model.SeverityMedium))
	}

	if venue.APCUSD != nil && *venue.APCUSD > 0 && m.HIndexOrZero() == 0 {
		flags = append(flags, flag("metrics", "Charges publication fees without a citation record", model.SeverityMedium))
	}

	if m.CitedByCount != nil && *m.CitedByCount == 0 && m.WorksOrZero() > 100 {
		flags = append(flags, flag("metrics", "No citations recorded across published works", model.SeverityMedium))
	}

	return flags, nil
}

// DomainChecker inspects the venue homepage's domain
type DomainChecker struct {
	suspiciousTLDs map[string]bool
	freeHosts      []string
}

// NewDomainChecker creates a checker from suffix and host lists
func NewDomainChecker(suspiciousTLDs, freeHosts []string) *DomainChecker {
	c := &DomainChecker{suspiciousTLDs: make(map[string]bool)}
	for _, tld := range suspiciousTLDs {
		c.suspiciousTLDs[strings.TrimPrefix(strings.ToLower(tld), ".")] = true
	}
	for _, h := range freeHosts {
		c.freeHosts = append(c.freeHosts, strings.ToLower(h))
	}
	return c
}

// Name returns the source tag
func (c *DomainChecker) Name() string { return "domain" }

// Check flags homepages on suspicious TLDs or free hosting
func (c *DomainChecker) Check(_ context.Context, venue model.VenueCandidate) ([]model.Flag, error) {
	if venue.HomepageURL == "" {
		return nil, nil
	}

	parsed, err := url.Parse(venue.HomepageURL)
	if err != nil || parsed.Hostname() == "" {
		return []model.Flag{flag("domain", "Homepage URL is malformed", model.SeverityMedium)}, nil
	}
	host := strings.ToLower(parsed.Hostname())

	var flags []model.Flag

	// Check free hosting
	for _, free := range c.freeHosts {
		if host == free || strings.HasSuffix(host, "."+free) {
			flags = append(flags, flag("domain", fmt.Sprintf("Homepage hosted on free platform %s", free), model.SeverityMedium))
			break
		}
	}

	// Check public suffix
	suffix, _ := publicsuffix.PublicSuffix(host)
	if c.suspiciousTLDs[suffix] {
		registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
		if err != nil {
			registrable = host
		}
		flags = append(flags, flag("domain", fmt.Sprintf("Homepage domain %s uses a high-abuse TLD", registrable), model.SeverityMedium))
	}

	return flags, nil
}
