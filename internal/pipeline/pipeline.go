// Package pipeline composes signature resolution, catalog fetch, scoring and
// trust verification into one search.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ppiankov/venuescope/internal/metrics"
	"github.com/ppiankov/venuescope/internal/model"
	"github.com/ppiankov/venuescope/internal/score"
)

// SignatureResolver derives a topic signature. Any error is a soft failure.
type SignatureResolver interface {
	Resolve(ctx context.Context, q model.ManuscriptQuery) (*model.TopicSignature, error)
}

// Catalog fetches candidate venues
type Catalog interface {
	FetchVenues(ctx context.Context, q model.CatalogQuery) ([]model.VenueCandidate, error)
}

// Verifier attaches one verdict per venue, index-aligned
type Verifier interface {
	VerifyAll(ctx context.Context, venues []model.VenueCandidate) []model.VerificationVerdict
}

// catalogTopics bounds how many signature topics go into the catalog query
const catalogTopics = 3

// Pipeline orchestrates the complete search process
type Pipeline struct {
	resolver SignatureResolver
	catalog  Catalog
	scorer   *score.Scorer
	verifier Verifier
	cfg      model.SearchConfig
	logger   zerolog.Logger
	newID    func() string
}

// NewPipeline creates a new pipeline
func NewPipeline(resolver SignatureResolver, catalog Catalog, scorer *score.Scorer, verifier Verifier, cfg model.SearchConfig, logger zerolog.Logger) *Pipeline {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 20
	}
	if cfg.CatalogLimit <= 0 {
		cfg.CatalogLimit = 50
	}
	if cfg.CatalogTimeout <= 0 {
		cfg.CatalogTimeout = 15 * time.Second
	}
	return &Pipeline{
		resolver: resolver,
		catalog:  catalog,
		scorer:   scorer,
		verifier: verifier,
		cfg:      cfg,
		logger:   logger.With().Str("component", "pipeline").Logger(),
		newID:    uuid.NewString,
	}
}

// Search runs one manuscript through the engine. Only an invalid query or an
// unreachable catalog fail the search; a missing signature degrades ranking to
// catalog metrics.
func (p *Pipeline) Search(ctx context.Context, q model.ManuscriptQuery) (*model.SearchResponse, error) {
	start := time.Now()
	defer func() { metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()

	if err := q.Validate(); err != nil {
		metrics.SearchesTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	searchID := p.newID()
	log := p.logger.With().Str("search_id", searchID).Logger()

	sig, err := p.resolver.Resolve(ctx, q)
	if err != nil {
		ev := log.Warn()
		if errors.Is(err, model.ErrNoSignal) {
			ev = log.Info()
		}
		ev.Err(err).Msg("continuing without topic signature")
		sig = nil
	}

	candidates, err := p.fetch(ctx, CatalogQuery(sig, q, p.cfg.CatalogLimit))
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("upstream_error").Inc()
		log.Error().Err(err).Msg("catalog fetch failed")
		return nil, err
	}

	scored := p.scorer.Score(sig, FilterCandidates(candidates), q.OpenAccess)
	total := len(scored)
	if len(scored) > p.cfg.MaxResults {
		scored = scored[:p.cfg.MaxResults]
	}

	venues := make([]model.VenueCandidate, len(scored))
	for i, s := range scored {
		venues[i] = s.VenueCandidate
	}
	verdicts := p.verifier.VerifyAll(ctx, venues)

	out := make([]model.VerifiedVenue, len(scored))
	for i, s := range scored {
		out[i] = model.VerifiedVenue{ScoredVenue: s, Verification: verdicts[i]}
	}

	resp := &model.SearchResponse{
		SearchID:            searchID,
		DisciplineDetection: sig.Detection(),
		TotalFound:          total,
		Venues:              out,
	}
	if sig != nil {
		discipline := sig.Discipline
		resp.Discipline = &discipline
	}

	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	log.Info().
		Int("candidates", len(candidates)).
		Int("returned", len(out)).
		Bool("signature", sig != nil).
		Dur("took", time.Since(start)).
		Msg("search complete")
	return resp, nil
}

// fetch bounds the catalog call and normalizes its failure to ErrUpstreamUnavailable
func (p *Pipeline) fetch(ctx context.Context, q model.CatalogQuery) ([]model.VenueCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.CatalogTimeout)
	defer cancel()

	candidates, err := p.catalog.FetchVenues(ctx, q)
	if err == nil {
		return candidates, nil
	}
	if errors.Is(err, model.ErrUpstreamUnavailable) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: catalog: %v", model.ErrUpstreamUnavailable, err)
}

// CatalogQuery builds the catalog search from the signature discipline and its
// leading topics plus keywords, or from keywords and title without a signature.
func CatalogQuery(sig *model.TopicSignature, q model.ManuscriptQuery, limit int) model.CatalogQuery {
	var parts []string
	if sig != nil {
		parts = append(parts, sig.Discipline)
		topics := sig.Topics
		if len(topics) > catalogTopics {
			topics = topics[:catalogTopics]
		}
		parts = append(parts, topics...)
		parts = append(parts, q.Keywords...)
	} else {
		parts = append(parts, q.Keywords...)
		parts = append(parts, q.Title)
	}

	seen := make(map[string]bool, len(parts))
	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		key := strings.ToLower(part)
		if part == "" || seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, part)
	}

	return model.CatalogQuery{Search: strings.Join(terms, " "), Limit: limit}
}

// FilterCandidates drops nameless venues and repeated ids, keeping catalog order
func FilterCandidates(candidates []model.VenueCandidate) []model.VenueCandidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]model.VenueCandidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.Name) == "" || c.ID == "" || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}
