package validate

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/venuescope/internal/model"
)

// AuthorityList is an allow or deny list of venues, loaded from YAML
type AuthorityList struct {
	Name         string   `yaml:"name"`
	Severity     string   `yaml:"severity"` // Severity of a hit: low for allow lists, high/critical for deny lists
	Reason       string   `yaml:"reason"`
	ISSNs        []string `yaml:"issns,omitempty"`
	Publishers   []string `yaml:"publishers,omitempty"`
	Names        []string `yaml:"names,omitempty"`
	NamePatterns []string `yaml:"name_patterns,omitempty"` // Regular expressions matched against the venue name
}

// LoadAuthorityList reads an authority list file
func LoadAuthorityList(path string) (*AuthorityList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read authority list: %w", err)
	}

	var list AuthorityList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse authority list %s: %w", path, err)
	}
	if list.Name == "" {
		return nil, fmt.Errorf("authority list %s has no name", path)
	}
	return &list, nil
}

// ListChecker flags venues that appear on an authority list
type ListChecker struct {
	name         string
	severity     model.Severity
	reason       string
	issnMap      map[string]bool
	publisherMap map[string]bool
	nameMap      map[string]bool
	namePatterns []*regexp.Regexp
}

// NewListChecker builds the lookup maps for list. Invalid patterns are skipped.
func NewListChecker(list *AuthorityList) *ListChecker {
	c := &ListChecker{
		name:         list.Name,
		severity:     model.ParseSeverity(list.Severity),
		reason:       list.Reason,
		issnMap:      make(map[string]bool),
		publisherMap: make(map[string]bool),
		nameMap:      make(map[string]bool),
	}
	if c.reason == "" {
		c.reason = "Listed in " + list.Name
	}

	for _, issn := range list.ISSNs {
		if n := normalizeISSN(issn); n != "" {
			c.issnMap[n] = true
		}
	}
	for _, p := range list.Publishers {
		c.publisherMap[foldName(p)] = true
	}
	for _, n := range list.Names {
		c.nameMap[foldName(n)] = true
	}
	for _, pattern := range list.NamePatterns {
		if re, err := regexp.Compile(pattern); err == nil {
			c.namePatterns = append(c.namePatterns, re)
		}
	}

	return c
}

// Name returns the list name
func (c *ListChecker) Name() string { return c.name }

// Check returns at most one flag: the first ISSN, name, publisher or pattern hit
func (c *ListChecker) Check(_ context.Context, venue model.VenueCandidate) ([]model.Flag, error) {
	// Check ISSNs
	for _, issn := range venue.AllISSNs() {
		if c.issnMap[normalizeISSN(issn)] {
			return []model.Flag{flag(c.name, fmt.Sprintf("%s (ISSN %s)", c.reason, issn), c.severity)}, nil
		}
	}

	// Check exact venue name
	if c.nameMap[foldName(venue.Name)] {
		return []model.Flag{flag(c.name, c.reason, c.severity)}, nil
	}

	// Check publisher
	if venue.Publisher != "" && c.publisherMap[foldName(venue.Publisher)] {
		return []model.Flag{flag(c.name, fmt.Sprintf("%s (publisher %s)", c.reason, venue.Publisher), c.severity)}, nil
	}

	// Check name patterns
	for _, re := range c.namePatterns {
		if re.MatchString(venue.Name) {
			return []model.Flag{flag(c.name, c.reason, c.severity)}, nil
		}
	}

	return nil, nil
}

// foldName lowercases and collapses whitespace
func foldName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
