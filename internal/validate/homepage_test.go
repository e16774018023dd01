package validate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/venuescope/internal/model"
	"github.com/ppiankov/venuescope/internal/util"
)

const predatoryPage = `<html><head><title>Global Journal</title>
<script>var msg = "guaranteed acceptance";</script></head>
<body>
  <h1>Global Journal of Everything</h1>
  <p>Submit today:   Publication within
     24 hours, guaranteed!</p>
  <a href="http://www.globalimpactfactor.com/gje"><img src="https://sjifactor.com/badge.png"></a>
  <a href="https://www.globalimpactfactor.com/other">Impact factor 7.2</a>
  <a href="/about">About</a>
  <a href="mailto:editor@gje.xyz">Contact</a>
</body></html>`

const testUserAgent = "venuescope-test/1.0"

func newHomepageTestChecker() *HomepageChecker {
	client := util.NewHTTPClient(5*time.Second, util.ProxyConfig{})
	return NewHomepageChecker(client, nil, util.NewRobotsChecker(testUserAgent, client), testUserAgent)
}

// siteHandler serves robots (404 when empty) and hands every other path to page
func siteHandler(robots string, page http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			if robots == "" {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(robots))
			return
		}
		page(w, r)
	}
}

func TestHomepageChecker_Flags(t *testing.T) {
	server := httptest.NewServer(siteHandler("", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(predatoryPage))
	}))
	defer server.Close()

	flags, err := newHomepageTestChecker().Check(context.Background(), model.VenueCandidate{ID: "S1", HomepageURL: server.URL})
	require.NoError(t, err)

	reasons := make([]string, len(flags))
	for i, f := range flags {
		reasons[i] = f.Reason
		assert.Equal(t, "homepage", f.Source)
	}
	assert.Equal(t, []string{
		`Homepage advertises "publication within 24 hours"`,
		"Homepage cites globalimpactfactor.com, which is not a recognized index",
		"Homepage cites sjifactor.com, which is not a recognized index",
	}, reasons)
	assert.Equal(t, model.SeverityHigh, flags[0].Severity)
	assert.Equal(t, model.SeverityMedium, flags[1].Severity)
}

func TestHomepageChecker_CleanPage(t *testing.T) {
	server := httptest.NewServer(siteHandler("User-agent: *\nDisallow: /private/\n", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>Peer-reviewed since 1930.</p><a href="https://doaj.org">DOAJ</a></body></html>`))
	}))
	defer server.Close()

	flags, err := newHomepageTestChecker().Check(context.Background(), model.VenueCandidate{HomepageURL: server.URL})
	require.NoError(t, err)
	assert.Empty(t, flags)
}

func TestHomepageChecker_Status(t *testing.T) {
	status := http.StatusNotFound
	server := httptest.NewServer(siteHandler("", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer server.Close()

	c := newHomepageTestChecker()
	flags, err := c.Check(context.Background(), model.VenueCandidate{HomepageURL: server.URL})
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, "Homepage returned HTTP 404", flags[0].Reason)

	status = http.StatusBadGateway
	_, err = c.Check(context.Background(), model.VenueCandidate{HomepageURL: server.URL})
	assert.Error(t, err)
}

func TestHomepageChecker_SkipsUnusableURL(t *testing.T) {
	c := newHomepageTestChecker()
	for _, u := range []string{"", "ftp://journal.example", "not a url", "https://"} {
		flags, err := c.Check(context.Background(), model.VenueCandidate{HomepageURL: u})
		assert.NoError(t, err, u)
		assert.Empty(t, flags, u)
	}
}

func TestHomepageChecker_RobotsDisallowed(t *testing.T) {
	var pageHits atomic.Int32
	server := httptest.NewServer(siteHandler("User-agent: *\nDisallow: /\n", func(w http.ResponseWriter, r *http.Request) {
		pageHits.Add(1)
		_, _ = w.Write([]byte(predatoryPage))
	}))
	defer server.Close()

	c := newHomepageTestChecker()
	for i := 0; i < 2; i++ {
		flags, err := c.Check(context.Background(), model.VenueCandidate{HomepageURL: server.URL + "/journal"})
		assert.ErrorIs(t, err, ErrRobotsDisallowed)
		assert.Empty(t, flags)
	}
	assert.Equal(t, int32(0), pageHits.Load())
}

func TestHomepageChecker_DisallowedSourceIsUnchecked(t *testing.T) {
	server := httptest.NewServer(siteHandler("User-agent: *\nDisallow: /\n", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(predatoryPage))
	}))
	defer server.Close()

	v := NewVerifier([]Checker{DOAJFlagChecker{}, newHomepageTestChecker()}, trustConfig(), zerolog.Nop())
	verdict := v.Verify(context.Background(), model.VenueCandidate{ID: "S1", HomepageURL: server.URL})

	assert.Equal(t, []string{"doaj"}, verdict.SourcesChecked)
	assert.Empty(t, verdict.Flags)
}
