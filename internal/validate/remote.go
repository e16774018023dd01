package validate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/ppiankov/venuescope/internal/metrics"
	"github.com/ppiankov/venuescope/internal/model"
	"github.com/ppiankov/venuescope/internal/worker"
)

const remoteMaxRetries = 3

// remoteSleepFunc waits between retries (injectable for tests)
var remoteSleepFunc = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// RemoteChecker queries an HTTP authority-list service.
// The service answers GET {url}?id=&issn=&name= with {"flags":[{"reason","severity"}]};
// 404 means the venue is unknown to the list.
type RemoteChecker struct {
	name       string
	endpoint   string
	apiKey     string
	httpClient *http.Client
	limiter    *worker.Limiter
}

// NewRemoteChecker creates a checker for one remote source
func NewRemoteChecker(src model.RemoteSource, httpClient *http.Client, limiter *worker.Limiter) *RemoteChecker {
	return &RemoteChecker{
		name:       src.Name,
		endpoint:   src.URL,
		apiKey:     src.APIKey,
		httpClient: httpClient,
		limiter:    limiter,
	}
}

// Name returns the source tag
func (c *RemoteChecker) Name() string { return c.name }

type remoteResponse struct {
	Flags []struct {
		Reason   string `json:"reason"`
		Severity string `json:"severity"`
	} `json:"flags"`
}

// Check queries the service, retrying transient failures with exponential backoff
func (c *RemoteChecker) Check(ctx context.Context, venue model.VenueCandidate) (flags []model.Flag, err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("trust", c.name, start, err) }()

	params := url.Values{"id": {venue.ID}, "name": {venue.Name}}
	if issns := venue.AllISSNs(); len(issns) > 0 {
		params.Set("issn", strings.Join(issns, ","))
	}
	reqURL := c.endpoint
	if strings.Contains(reqURL, "?") {
		reqURL += "&" + params.Encode()
	} else {
		reqURL += "?" + params.Encode()
	}

	for attempt := 0; attempt < remoteMaxRetries; attempt++ {
		var retryable bool
		flags, retryable, err = c.checkOnce(ctx, reqURL)
		if err == nil || !retryable {
			return flags, err
		}
		if attempt < remoteMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			if serr := remoteSleepFunc(ctx, backoff); serr != nil {
				return nil, serr
			}
		}
	}
	return nil, err
}

// checkOnce performs a single request. The bool reports whether a failure is transient.
func (c *RemoteChecker) checkOnce(ctx context.Context, reqURL string) ([]model.Flag, bool, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, reqURL); err != nil {
			return nil, false, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil && isRetryableNetworkError(err.Error()), fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%s returned HTTP %d", c.name, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("%s returned HTTP %d", c.name, resp.StatusCode)
	}

	var body remoteResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, false, fmt.Errorf("decode %s response: %w", c.name, err)
	}

	flags := make([]model.Flag, 0, len(body.Flags))
	for _, f := range body.Flags {
		if f.Reason == "" {
			continue
		}
		flags = append(flags, flag(c.name, f.Reason, model.ParseSeverity(f.Severity)))
	}
	return flags, false, nil
}

// isRetryableNetworkError checks error strings for transient network failures
func isRetryableNetworkError(errMsg string) bool {
	s := strings.ToLower(errMsg)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
