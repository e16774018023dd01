// Package openalex is the transport to the OpenAlex bibliographic graph.
// It provides the similar-works lookup used for topic signatures and the
// source catalog used for venue candidates.
package openalex

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/ppiankov/venuescope/internal/metrics"
	"github.com/ppiankov/venuescope/internal/model"
	"github.com/ppiankov/venuescope/internal/util"
	"github.com/ppiankov/venuescope/internal/worker"
)

// SourceTag is the provenance tag for signatures resolved from OpenAlex
const SourceTag = "openalex"

// retryBaseDelay controls the base duration for exponential backoff on
// HTTP 429 responses. Tests override this to avoid real sleeps.
var retryBaseDelay = 2 * time.Second

// Client queries the OpenAlex REST API
type Client struct {
	baseURL    string
	mailto     string
	userAgent  string
	maxRetries int
	httpClient *http.Client
	limiter    *worker.Limiter
	logger     zerolog.Logger
}

// NewClient creates a client from configuration
func NewClient(cfg model.OpenAlexConfig, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		mailto:     cfg.Mailto,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		httpClient: util.NewHTTPClient(cfg.Timeout, util.ProxyConfig{
			HTTPProxy:  cfg.HTTPProxy,
			HTTPSProxy: cfg.HTTPSProxy,
			NoProxy:    cfg.NoProxy,
		}),
		limiter: worker.NewLimiter(cfg.RequestsPerSec, cfg.Burst),
		logger:  logger.With().Str("component", "openalex").Logger(),
	}
}

// getJSON issues a rate-limited GET against path and decodes the body into out.
// Every failure is wrapped in model.ErrUpstreamUnavailable.
func (c *Client) getJSON(ctx context.Context, operation, path string, params url.Values, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveNetworkRequest("openalex", operation, start, err) }()

	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}
	reqURL := c.baseURL + path + "?" + params.Encode()

	if err := c.limiter.Wait(ctx, reqURL); err != nil {
		return fmt.Errorf("%w: rate limit wait: %v", model.ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: OpenAlex %s: %v", model.ErrUpstreamUnavailable, operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: OpenAlex %s returned HTTP %d: %s",
			model.ErrUpstreamUnavailable, operation, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: parsing OpenAlex %s response: %v", model.ErrUpstreamUnavailable, operation, err)
	}
	return nil
}

// doWithRetry executes req and retries on HTTP 429 with exponential backoff.
// After exhausting retries the last 429 response is returned so the caller can inspect it.
func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	maxRetries := c.maxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	for attempt := 0; ; attempt++ {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= maxRetries {
			return resp, nil
		}

		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		backoff := time.Duration(math.Pow(2, float64(attempt))) * retryBaseDelay
		c.logger.Debug().Dur("backoff", backoff).Int("attempt", attempt+1).Msg("rate limited by OpenAlex, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
