package validate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/publicsuffix"

	"github.com/ppiankov/venuescope/internal/metrics"
	"github.com/ppiankov/venuescope/internal/model"
	"github.com/ppiankov/venuescope/internal/util"
	"github.com/ppiankov/venuescope/internal/worker"
)

const homepageMaxBytes = 2 << 20

// ErrRobotsDisallowed means the homepage's robots.txt forbids the fetch
var ErrRobotsDisallowed = errors.New("homepage disallowed by robots.txt")

// HomepageChecker fetches a venue's homepage and looks for solicitation
// language and links to metric services that are not real indexes.
type HomepageChecker struct {
	httpClient  *http.Client
	limiter     *worker.Limiter
	robots      *util.RobotsChecker
	userAgent   string
	phrases     []string
	metricHosts map[string]bool
}

// NewHomepageChecker creates a homepage scanner. limiter and robots may be nil.
func NewHomepageChecker(httpClient *http.Client, limiter *worker.Limiter, robots *util.RobotsChecker, userAgent string) *HomepageChecker {
	return &HomepageChecker{
		httpClient: httpClient,
		limiter:    limiter,
		robots:     robots,
		userAgent:  userAgent,
		phrases: []string{
			"guaranteed acceptance", "guaranteed publication", "100% acceptance",
			"publication within 24 hours", "publication within 48 hours", "publish within 7 days",
			"acceptance within 24 hours", "acceptance within 72 hours", "fast track publication",
			"without peer review", "no peer review",
		},
		metricHosts: map[string]bool{
			"globalimpactfactor.com":    true,
			"sjifactor.com":             true,
			"citefactor.org":            true,
			"i2or.com":                  true,
			"universalimpactfactor.org": true,
			"impactfactorservice.com":   true,
			"journalimpactfactor.org":   true,
			"indexcopernicus.com":       true,
		},
	}
}

// Name returns the source tag
func (c *HomepageChecker) Name() string { return "homepage" }

// Check scans the homepage. Venues without a usable homepage URL are skipped;
// the domain checker reports those.
func (c *HomepageChecker) Check(ctx context.Context, venue model.VenueCandidate) (flags []model.Flag, err error) {
	base, err := url.Parse(strings.TrimSpace(venue.HomepageURL))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, nil
	}

	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("trust", "homepage", start, err) }()

	doc, status, err := c.fetch(ctx, base.String())
	if err != nil {
		return nil, err
	}
	if status != 0 {
		return []model.Flag{flag("homepage", fmt.Sprintf("Homepage returned HTTP %d", status), model.SeverityMedium)}, nil
	}

	text := strings.ToLower(visibleText(doc))
	for _, phrase := range c.phrases {
		if strings.Contains(text, phrase) {
			flags = append(flags, flag("homepage", fmt.Sprintf("Homepage advertises %q", phrase), model.SeverityHigh))
		}
	}

	seen := make(map[string]bool)
	for _, link := range outboundLinks(doc, base) {
		domain := registrableDomain(link.Hostname())
		if !c.metricHosts[domain] || seen[domain] {
			continue
		}
		seen[domain] = true
		flags = append(flags, flag("homepage", fmt.Sprintf("Homepage cites %s, which is not a recognized index", domain), model.SeverityMedium))
	}
	return flags, nil
}

// fetch returns the parsed page, or a non-zero status for client errors.
// Server errors are reported as errors so the source counts as unchecked.
func (c *HomepageChecker) fetch(ctx context.Context, pageURL string) (*html.Node, int, error) {
	if c.robots != nil {
		allowed, err := c.robots.CanFetch(ctx, pageURL)
		if err != nil {
			return nil, 0, err
		}
		if !allowed {
			return nil, 0, ErrRobotsDisallowed
		}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, pageURL); err != nil {
			return nil, 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch homepage: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return nil, 0, fmt.Errorf("homepage returned HTTP %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, resp.StatusCode, nil
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, homepageMaxBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("parse homepage: %w", err)
	}
	return doc, 0, nil
}

// visibleText joins text nodes, skipping scripts and styles
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return buf.String()
}

// outboundLinks returns the resolved http(s) links that leave the base host
func outboundLinks(doc *html.Node, base *url.URL) []*url.URL {
	var links []*url.URL
	seen := make(map[string]bool)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "a" || n.Data == "img") {
			for _, attr := range n.Attr {
				if attr.Key != "href" && attr.Key != "src" {
					continue
				}
				link := resolveLink(base, attr.Val)
				if link == nil || link.Host == base.Host || seen[link.String()] {
					continue
				}
				seen[link.String()] = true
				links = append(links, link)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(doc)
	return links
}

func resolveLink(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return nil
	}
	resolved := base.ResolveReference(parsed)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil
	}
	return resolved
}

func registrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}
