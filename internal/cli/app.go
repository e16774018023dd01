package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/ppiankov/venuescope/internal/cache"
	"github.com/ppiankov/venuescope/internal/explain"
	"github.com/ppiankov/venuescope/internal/llm"
	"github.com/ppiankov/venuescope/internal/logging"
	"github.com/ppiankov/venuescope/internal/model"
	"github.com/ppiankov/venuescope/internal/openalex"
	"github.com/ppiankov/venuescope/internal/pipeline"
	"github.com/ppiankov/venuescope/internal/score"
	"github.com/ppiankov/venuescope/internal/server"
	"github.com/ppiankov/venuescope/internal/signature"
	"github.com/ppiankov/venuescope/internal/store"
	"github.com/ppiankov/venuescope/internal/util"
	"github.com/ppiankov/venuescope/internal/validate"
)

// app holds the wired components shared by every command
type app struct {
	cfg      *model.Config
	logger   zerolog.Logger
	openalex *openalex.Client
	catalog  *pipeline.BreakerCatalog
	verifier *validate.Verifier
	search   *pipeline.Pipeline
	explain  *explain.Service
	provider llm.Provider
	checks   []server.Option
	closers  []func() error
}

// newAppFromViper loads configuration and builds the app
func newAppFromViper(ctx context.Context) (*app, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	return newApp(ctx, cfg, logger)
}

func newApp(ctx context.Context, cfg *model.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	proxy := util.ProxyConfig{
		HTTPProxy:  cfg.OpenAlex.HTTPProxy,
		HTTPSProxy: cfg.OpenAlex.HTTPSProxy,
		NoProxy:    cfg.OpenAlex.NoProxy,
	}

	a.openalex = openalex.NewClient(cfg.OpenAlex, logger)
	resolver := signature.NewResolver(a.openalex, openalex.SourceTag, cfg.Search, logger)
	a.catalog = pipeline.NewBreakerCatalog(a.openalex, cfg.OpenAlex.BreakerFailures, cfg.OpenAlex.BreakerCooldown, logger)

	checkers, err := validate.NewCheckers(cfg.Trust, proxy)
	if err != nil {
		return fmt.Errorf("trust sources: %w", err)
	}
	a.verifier = validate.NewVerifier(checkers, cfg.Trust, logger)
	a.search = pipeline.NewPipeline(resolver, a.catalog, score.NewScorer(cfg.Scoring), a.verifier, cfg.Search, logger)
	a.checks = append(a.checks, server.WithHealthCheck("catalog", a.catalogHealth))

	entries, quota, err := a.openStores(ctx)
	if err != nil {
		return err
	}

	a.provider, err = llm.NewProvider(llm.ConfigFromModel(cfg.LLM, proxy))
	if err != nil {
		return fmt.Errorf("llm provider: %w", err)
	}
	if a.provider != nil {
		a.checks = append(a.checks, server.WithHealthCheck("llm", a.provider.Ping))
		logger.Info().Str("provider", a.provider.Name()).Msg("explanations use generative provider")
	} else {
		logger.Info().Msg("no LLM provider configured, explanations use the template fallback")
	}

	opts, err := explain.OptionsFromConfig(cfg.Explain)
	if err != nil {
		return err
	}
	gen := llm.NewGenerator(a.provider, cfg.LLM.MaxTokens, logger)
	a.explain = explain.NewService(entries, quota, gen, opts, logger)
	return nil
}

// openStores selects the explanation cache and quota ledger for the store driver
func (a *app) openStores(ctx context.Context) (cache.Store, explain.QuotaStore, error) {
	cfg := a.cfg
	switch cfg.Store.Driver {
	case "sqlite":
		db, err := a.openSQLite()
		if err != nil {
			return nil, nil, err
		}
		return cache.NewLayeredStore(db, cfg.Explain.MemoryFrontTTL), db, nil

	case "redis":
		rdb, err := store.NewRedisClient(ctx, cfg.Store.RedisAddr, cfg.Store.RedisPassword)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		a.checks = append(a.checks, server.WithHealthCheck("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}))

		var entries cache.Store = cache.NewMemoryStore(cfg.Explain.SweepInterval)
		if cfg.Store.Path != "" {
			db, err := a.openSQLite()
			if err != nil {
				return nil, nil, err
			}
			entries = cache.NewLayeredStore(db, cfg.Explain.MemoryFrontTTL)
		}
		return entries, store.NewRedisQuota(rdb), nil

	default:
		return cache.NewMemoryStore(cfg.Explain.SweepInterval), explain.NewMemoryQuota(), nil
	}
}

func (a *app) openSQLite() (*store.SQLite, error) {
	db, err := store.Open(a.cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	a.checks = append(a.checks, server.WithHealthCheck("sqlite", db.Ping))
	return db, nil
}

func (a *app) catalogHealth(context.Context) error {
	if state := a.catalog.State(); state == "open" {
		return fmt.Errorf("catalog circuit is %s", state)
	}
	return nil
}

// runSweeper removes expired explanation entries until ctx is done
func (a *app) runSweeper(ctx context.Context) {
	interval := a.cfg.Explain.SweepInterval
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.explain.Sweep(ctx)
			if err != nil {
				a.logger.Warn().Err(err).Msg("explanation sweep failed")
				continue
			}
			a.logger.Debug().Int("removed", n).Msg("explanation sweep")
		}
	}
}

// Close releases stores in reverse order of opening
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
