package validate

import (
	"fmt"
	"net/url"

	"github.com/ppiankov/venuescope/internal/model"
	"github.com/ppiankov/venuescope/internal/util"
	"github.com/ppiankov/venuescope/internal/worker"
)

// NewCheckers builds the configured trust sources in check order:
// allow list, catalog DOAJ flag, deny list, ISSN, metrics, domain, homepage, then remote services.
func NewCheckers(cfg model.TrustConfig, proxy util.ProxyConfig) ([]Checker, error) {
	var checkers []Checker

	if cfg.AllowListFile != "" {
		list, err := LoadAuthorityList(cfg.AllowListFile)
		if err != nil {
			return nil, fmt.Errorf("allow list: %w", err)
		}
		if list.Severity == "" {
			list.Severity = string(model.SeverityLow)
		}
		checkers = append(checkers, NewListChecker(list))
	}

	checkers = append(checkers, DOAJFlagChecker{})

	if cfg.DenyListFile != "" {
		list, err := LoadAuthorityList(cfg.DenyListFile)
		if err != nil {
			return nil, fmt.Errorf("deny list: %w", err)
		}
		if list.Severity == "" {
			list.Severity = string(model.SeverityCritical)
		}
		checkers = append(checkers, NewListChecker(list))
	}

	checkers = append(checkers,
		ISSNChecker{},
		NewMetricsChecker(),
		NewDomainChecker(cfg.SuspiciousTLDs, cfg.FreeHostDomains),
	)

	if len(cfg.RemoteSources) == 0 && !cfg.HomepageScan {
		return checkers, nil
	}

	httpClient := util.NewHTTPClient(cfg.SourceTimeout, proxy)
	limiter := worker.NewLimiter(cfg.RemoteRatePerSec, 2)
	if cfg.HomepageScan {
		robots := util.NewRobotsChecker(cfg.UserAgent, httpClient)
		checkers = append(checkers, NewHomepageChecker(httpClient, limiter, robots, cfg.UserAgent))
	}
	for _, src := range cfg.RemoteSources {
		if src.Name == "" || src.URL == "" {
			return nil, fmt.Errorf("remote source needs a name and url")
		}
		if src.RatePerSec > 0 {
			u, err := url.Parse(src.URL)
			if err != nil || u.Host == "" {
				return nil, fmt.Errorf("remote source %s: invalid url %q", src.Name, src.URL)
			}
			limiter.SetHostRate(u.Host, src.RatePerSec, 0)
		}
		checkers = append(checkers, NewRemoteChecker(src, httpClient, limiter))
	}

	return checkers, nil
}
