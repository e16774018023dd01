package validate

import (
	"context"
	"errors"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/ppiankov/venuescope/internal/metrics"
	"github.com/ppiankov/venuescope/internal/model"
	"github.com/ppiankov/venuescope/internal/worker"
)

// Verifier runs every checker against each venue through a bounded worker
// pool and merges the answers into one verdict per venue
type Verifier struct {
	checkers      []Checker
	order         map[string]int
	workers       int
	sourceTimeout time.Duration
	ttl           time.Duration
	verdicts      *gocache.Cache
	logger        zerolog.Logger
	now           func() time.Time

	mu       sync.Mutex
	checking map[string]int // in-flight runs per venue id
}

// NewVerifier creates a verifier. Checker order is the source check order.
func NewVerifier(checkers []Checker, cfg model.TrustConfig, logger zerolog.Logger) *Verifier {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 8
	}

	order := make(map[string]int, len(checkers))
	for i, c := range checkers {
		if _, ok := order[c.Name()]; !ok {
			order[c.Name()] = i
		}
	}

	cleanup := cfg.VerdictTTL * 2
	if cleanup <= 0 {
		cleanup = 10 * time.Minute
	}

	return &Verifier{
		checkers:      checkers,
		order:         order,
		workers:       workers,
		sourceTimeout: cfg.SourceTimeout,
		ttl:           cfg.VerdictTTL,
		verdicts:      gocache.New(cfg.VerdictTTL, cleanup),
		logger:        logger.With().Str("component", "verifier").Logger(),
		now:           time.Now,
		checking:      make(map[string]int),
	}
}

// Sources returns the source tags in check order
func (v *Verifier) Sources() []string {
	names := make([]string, len(v.checkers))
	for i, c := range v.checkers {
		names[i] = c.Name()
	}
	return names
}

// State returns where a venue is in verification. A venue whose cached
// verdict has expired is unchecked again.
func (v *Verifier) State(venueID string) model.CheckState {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.checking[venueID] > 0 {
		return model.StateChecking
	}
	if _, ok := v.cached(venueID); ok {
		return model.StateVerdict
	}
	return model.StateUnchecked
}

// Verify returns the verdict for a single venue
func (v *Verifier) Verify(ctx context.Context, venue model.VenueCandidate) model.VerificationVerdict {
	return v.run(ctx, []model.VenueCandidate{venue}, true)[0]
}

// VerifyAll returns one verdict per venue, in input order. Valid cached
// verdicts are reused. It never fails: sources that error or time out are
// left out of SourcesChecked.
func (v *Verifier) VerifyAll(ctx context.Context, venues []model.VenueCandidate) []model.VerificationVerdict {
	return v.run(ctx, venues, true)
}

// Recheck is VerifyAll without cache reads. A fresh verdict that is less
// severe than a still-valid cached one does not replace it.
func (v *Verifier) Recheck(ctx context.Context, venues []model.VenueCandidate) []model.VerificationVerdict {
	return v.run(ctx, venues, false)
}

func (v *Verifier) run(ctx context.Context, venues []model.VenueCandidate, useCache bool) []model.VerificationVerdict {
	out := make([]model.VerificationVerdict, len(venues))
	var pending []int
	var jobs []worker.Job

	for i, venue := range venues {
		if useCache {
			if cached, ok := v.cached(venue.ID); ok {
				metrics.VerdictCacheTotal.WithLabelValues("hit").Inc()
				out[i] = cached
				continue
			}
			metrics.VerdictCacheTotal.WithLabelValues("miss").Inc()
		}

		v.beginCheck(venue.ID)
		pending = append(pending, i)
		for _, c := range v.checkers {
			jobs = append(jobs, &checkJob{venueIdx: i, venue: venue, checker: c, timeout: v.sourceTimeout})
		}
	}

	if len(pending) == 0 {
		return out
	}

	flagsBy := make(map[int][]model.Flag)
	checkedBy := make(map[int][]string)

	if len(jobs) > 0 {
		pool := worker.NewPool(ctx, v.workers)
		for _, r := range pool.Run(jobs) {
			res := r.(*checkResult)
			if res.err != nil {
				status := "error"
				if errors.Is(res.err, context.DeadlineExceeded) {
					status = "timeout"
				}
				metrics.TrustChecksTotal.WithLabelValues(res.source, status).Inc()
				v.logger.Warn().Err(res.err).Str("source", res.source).Str("venue", res.venueID).Msg("trust source not checked")
				continue
			}
			metrics.TrustChecksTotal.WithLabelValues(res.source, "ok").Inc()
			checkedBy[res.venueIdx] = append(checkedBy[res.venueIdx], res.source)
			flagsBy[res.venueIdx] = append(flagsBy[res.venueIdx], res.flags...)
		}
	}

	now := v.now()
	for _, i := range pending {
		verdict := Merge(flagsBy[i], checkedBy[i], v.order, now)
		out[i] = v.store(venues[i].ID, verdict)
		v.endCheck(venues[i].ID)
	}

	return out
}

// cached returns a verdict whose validity window has not passed
func (v *Verifier) cached(venueID string) (model.VerificationVerdict, bool) {
	if venueID == "" || v.ttl <= 0 {
		return model.VerificationVerdict{}, false
	}
	item, ok := v.verdicts.Get(venueID)
	if !ok {
		return model.VerificationVerdict{}, false
	}
	verdict := item.(model.VerificationVerdict)
	if verdict.CacheValidUntil == nil || !v.now().Before(*verdict.CacheValidUntil) {
		v.verdicts.Delete(venueID)
		return model.VerificationVerdict{}, false
	}
	return verdict, true
}

// store caches verdict unless a still-valid cached verdict is more severe,
// in which case the cached one is returned instead
func (v *Verifier) store(venueID string, verdict model.VerificationVerdict) model.VerificationVerdict {
	if venueID == "" || v.ttl <= 0 || len(verdict.SourcesChecked) == 0 {
		return verdict
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if existing, ok := v.cached(venueID); ok && existing.Badge.Rank() > verdict.Badge.Rank() {
		metrics.VerdictCacheTotal.WithLabelValues("kept_more_severe").Inc()
		return existing
	}

	until := verdict.CheckedAt.Add(v.ttl)
	verdict.CacheValidUntil = &until
	v.verdicts.Set(venueID, verdict, v.ttl)
	return verdict
}

func (v *Verifier) beginCheck(venueID string) {
	if venueID == "" {
		return
	}
	v.mu.Lock()
	v.checking[venueID]++
	v.mu.Unlock()
}

func (v *Verifier) endCheck(venueID string) {
	if venueID == "" {
		return
	}
	v.mu.Lock()
	if v.checking[venueID] <= 1 {
		delete(v.checking, venueID)
	} else {
		v.checking[venueID]--
	}
	v.mu.Unlock()
}

// checkJob runs one source against one venue
type checkJob struct {
	venueIdx int
	venue    model.VenueCandidate
	checker  Checker
	timeout  time.Duration
}

type checkResult struct {
	venueIdx int
	venueID  string
	source   string
	flags    []model.Flag
	err      error
}

// GetError returns the source error, if any
func (r *checkResult) GetError() error { return r.err }

// Execute bounds the check by the source timeout even if the checker ignores ctx
func (j *checkJob) Execute(ctx context.Context) worker.Result {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	res := &checkResult{venueIdx: j.venueIdx, venueID: j.venue.ID, source: j.checker.Name()}
	done := make(chan struct{})
	var flags []model.Flag
	var err error

	go func() {
		defer close(done)
		flags, err = j.checker.Check(ctx, j.venue)
	}()

	select {
	case <-done:
		res.flags, res.err = flags, err
	case <-ctx.Done():
		res.err = ctx.Err()
	}
	return res
}
