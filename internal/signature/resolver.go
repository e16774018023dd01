package signature

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/venuescope/internal/metrics"
	"github.com/ppiankov/venuescope/internal/model"
)

// SimilarityLookup returns the works most similar to a text, best first
type SimilarityLookup interface {
	SimilarWorks(ctx context.Context, text string, k int) ([]model.WorkSignal, error)
}

// Resolver turns a manuscript into a topic signature
type Resolver struct {
	lookup         SimilarityLookup
	source         string
	similarWorks   int
	maxTopics      int
	abstractPrefix int
	timeout        time.Duration
	logger         zerolog.Logger
}

// NewResolver creates a resolver. source is the provenance tag stamped on signatures.
func NewResolver(lookup SimilarityLookup, source string, cfg model.SearchConfig, logger zerolog.Logger) *Resolver {
	return &Resolver{
		lookup:         lookup,
		source:         source,
		similarWorks:   cfg.SimilarWorks,
		maxTopics:      cfg.SignatureTopics,
		abstractPrefix: cfg.AbstractPrefix,
		timeout:        cfg.SignatureTimeout,
		logger:         logger.With().Str("component", "signature").Logger(),
	}
}

// Resolve returns the manuscript's signature. Errors wrap model.ErrNoSignal or
// model.ErrUpstreamUnavailable; both are soft failures for the caller.
func (r *Resolver) Resolve(ctx context.Context, q model.ManuscriptQuery) (*model.TopicSignature, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	works, err := r.lookup.SimilarWorks(ctx, q.Text(r.abstractPrefix), r.similarWorks)
	if err != nil {
		if errors.Is(err, model.ErrNoSignal) {
			metrics.SignatureResolutions.WithLabelValues("no_signal").Inc()
			return nil, err
		}
		metrics.SignatureResolutions.WithLabelValues("upstream_error").Inc()
		if !errors.Is(err, model.ErrUpstreamUnavailable) {
			err = fmt.Errorf("%w: similarity lookup: %v", model.ErrUpstreamUnavailable, err)
		}
		return nil, err
	}

	sig, err := Aggregate(works, r.maxTopics)
	if err != nil {
		metrics.SignatureResolutions.WithLabelValues("no_signal").Inc()
		return nil, fmt.Errorf("aggregating %d works: %w", len(works), err)
	}
	sig.Source = r.source

	metrics.SignatureResolutions.WithLabelValues("resolved").Inc()
	r.logger.Debug().
		Str("discipline", sig.Discipline).
		Float64("confidence", sig.Confidence).
		Int("works", len(works)).
		Msg("signature resolved")

	return sig, nil
}
