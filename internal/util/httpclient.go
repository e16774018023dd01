package util

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// ProxyConfig holds explicit proxy overrides. Empty values fall back to the environment.
type ProxyConfig struct {
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// NewProxyFunc creates a proxy function based on configuration.
// Unset fields fall back to HTTP_PROXY, HTTPS_PROXY and NO_PROXY. An HTTP
// proxy without an HTTPS proxy serves both schemes.
func NewProxyFunc(cfg ProxyConfig) func(*http.Request) (*url.URL, error) {
	if cfg.HTTPProxy == "" && cfg.HTTPSProxy == "" && cfg.NoProxy == "" {
		return http.ProxyFromEnvironment
	}

	env := httpproxy.FromEnvironment()
	if cfg.HTTPProxy != "" {
		env.HTTPProxy = cfg.HTTPProxy
		if cfg.HTTPSProxy == "" {
			env.HTTPSProxy = cfg.HTTPProxy
		}
	}
	if cfg.HTTPSProxy != "" {
		env.HTTPSProxy = cfg.HTTPSProxy
	}
	if cfg.NoProxy != "" {
		env.NoProxy = cfg.NoProxy
	}

	proxyFunc := env.ProxyFunc()
	return func(req *http.Request) (*url.URL, error) {
		return proxyFunc(req.URL)
	}
}

// NewHTTPClient returns a client for JSON APIs with a bounded timeout and redirect chain
func NewHTTPClient(timeout time.Duration, proxy ProxyConfig) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               NewProxyFunc(proxy),
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}
}
