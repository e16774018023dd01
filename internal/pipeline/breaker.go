package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/ppiankov/venuescope/internal/model"
)

// BreakerCatalog fails fast while the catalog keeps failing
type BreakerCatalog struct {
	next Catalog
	cb   *gobreaker.CircuitBreaker[[]model.VenueCandidate]
}

// NewBreakerCatalog wraps next. The circuit opens after failures consecutive
// errors and half-opens after cooldown.
func NewBreakerCatalog(next Catalog, failures int, cooldown time.Duration, logger zerolog.Logger) *BreakerCatalog {
	if failures <= 0 {
		failures = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	logger = logger.With().Str("component", "catalog_breaker").Logger()

	return &BreakerCatalog{
		next: next,
		cb: gobreaker.NewCircuitBreaker[[]model.VenueCandidate](gobreaker.Settings{
			Name:        "catalog",
			MaxRequests: 1,
			Timeout:     cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(failures)
			},
			// Caller cancellation is not a catalog failure
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn().Str("from", from.String()).Str("to", to.String()).Msg("circuit state changed")
			},
		}),
	}
}

// FetchVenues implements Catalog
func (b *BreakerCatalog) FetchVenues(ctx context.Context, q model.CatalogQuery) ([]model.VenueCandidate, error) {
	venues, err := b.cb.Execute(func() ([]model.VenueCandidate, error) {
		return b.next.FetchVenues(ctx, q)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: catalog circuit %v", model.ErrUpstreamUnavailable, err)
	}
	return venues, err
}

// State reports the circuit state for health checks
func (b *BreakerCatalog) State() string {
	return b.cb.State().String()
}
