// Package server exposes search and explanation over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ppiankov/venuescope/internal/explain"
	"github.com/ppiankov/venuescope/internal/model"
)

// Searcher runs a manuscript search
type Searcher interface {
	Search(ctx context.Context, q model.ManuscriptQuery) (*model.SearchResponse, error)
}

// Explainer serves venue explanations
type Explainer interface {
	GetOrCreate(ctx context.Context, req explain.Request) (*explain.Result, error)
}

// HealthCheck reports a dependency's health; a non-nil error marks it degraded
type HealthCheck func(ctx context.Context) error

// Server is the HTTP surface
type Server struct {
	searcher  Searcher
	explainer Explainer
	tiers     model.ExplainConfig
	cfg       model.ServerConfig
	checks    map[string]HealthCheck
	gatherer  prometheus.Gatherer
	validate  *validator.Validate
	logger    zerolog.Logger
	router    chi.Router
}

// Option customizes a Server
type Option func(*Server)

// WithHealthCheck adds a named dependency check to /healthz
func WithHealthCheck(name string, check HealthCheck) Option {
	return func(s *Server) { s.checks[name] = check }
}

// WithGatherer serves metrics from g instead of the default registry
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// New builds the router. tiers resolves X-User-Tier to a quota tier.
func New(searcher Searcher, explainer Explainer, tiers model.ExplainConfig, cfg model.ServerConfig, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		searcher:  searcher,
		explainer: explainer,
		tiers:     tiers,
		cfg:       cfg,
		checks:    make(map[string]HealthCheck),
		gatherer:  prometheus.DefaultGatherer,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		logger:    logger.With().Str("component", "server").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimw.Recoverer)
	if len(s.cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", headerUserID, headerUserTier},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		if s.cfg.RateLimit > 0 {
			window := s.cfg.RateWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(httprate.Limit(s.cfg.RateLimit, window,
				httprate.WithKeyFuncs(httprate.KeyByRealIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				}),
			))
		}
		if s.cfg.RequestTimeout > 0 {
			r.Use(chimw.Timeout(s.cfg.RequestTimeout))
		}

		r.Post("/search", s.handleSearch)
		r.With(s.requireUser).Post("/explanations", s.handleExplanation)
	})

	return r
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info().Msg("shutting down")
	if err := srv.Shutdown(shutCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
