// Package explain serves generated venue-fit explanations from a TTL cache,
// generating at most once per cache key and charging per-user daily quotas.
package explain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/ppiankov/venuescope/internal/cache"
	"github.com/ppiankov/venuescope/internal/metrics"
	"github.com/ppiankov/venuescope/internal/model"
)

// VenueContext describes the venue to the generator
type VenueContext struct {
	Name        string   `json:"name"`
	Publisher   string   `json:"publisher,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Category    string   `json:"category,omitempty"`
	MatchReason string   `json:"match_reason,omitempty"`
	OpenAccess  bool     `json:"open_access,omitempty"`
}

// Request asks for an explanation of why a venue fits a manuscript
type Request struct {
	Abstract string
	VenueID  string
	Venue    VenueContext
	User     model.User
}

// Generator produces explanation text. It must honor ctx.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Result is a served explanation
type Result struct {
	Explanation   string
	IsAIGenerated bool
	Cached        bool
	Remaining     *int // nil for unlimited tiers
}

// Options configure a Service
type Options struct {
	TTL               time.Duration
	AbstractPrefix    int
	GenerationTimeout time.Duration
	Location          *time.Location // Defines "today" for quotas
}

// OptionsFromConfig converts configuration, resolving the quota timezone
func OptionsFromConfig(cfg model.ExplainConfig) (Options, error) {
	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Options{}, fmt.Errorf("explain timezone %q: %w", tz, err)
	}
	return Options{
		TTL:               cfg.TTL,
		AbstractPrefix:    cfg.AbstractPrefix,
		GenerationTimeout: cfg.GenerationTimeout,
		Location:          loc,
	}, nil
}

// Service implements get-or-create over a cache store and a quota ledger
type Service struct {
	store  cache.Store
	quota  QuotaStore
	gen    Generator
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	keyFlights singleflight.Group

	mu          sync.Mutex
	userFlights map[string]*userCall
}

// userCall is one user's in-flight miss for one key
type userCall struct {
	done     chan struct{}
	waiters  int
	finished bool
	res      *Result
	err      error
}

// generated is the outcome of a key flight
type generated struct {
	text  string
	fresh bool // false when the cache already held the entry
}

// NewService creates a service. A nil generator serves non-AI fallback text.
func NewService(store cache.Store, quota QuotaStore, gen Generator, opts Options, logger zerolog.Logger) *Service {
	if opts.TTL <= 0 {
		opts.TTL = 7 * 24 * time.Hour
	}
	if opts.AbstractPrefix <= 0 {
		opts.AbstractPrefix = 500
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 45 * time.Second
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{
		store:       store,
		quota:       quota,
		gen:         gen,
		opts:        opts,
		logger:      logger.With().Str("component", "explain").Logger(),
		now:         time.Now,
		userFlights: make(map[string]*userCall),
	}
}

// Today returns the quota day for t
func (s *Service) Today(t time.Time) string {
	return t.In(s.opts.Location).Format("2006-01-02")
}

// GetOrCreate returns the cached explanation for (abstract, venue) or
// generates one. Cache hits are free. A miss charges the user one unit,
// refunded if generation fails or the caller gives up before it completes.
func (s *Service) GetOrCreate(ctx context.Context, req Request) (*Result, error) {
	if s.gen == nil {
		metrics.ExplanationRequests.WithLabelValues("fallback").Inc()
		return &Result{Explanation: Fallback(req.Venue), Remaining: s.remaining(ctx, req.User)}, nil
	}

	// 1. Cache key
	key := cache.Key(req.Abstract, req.VenueID, s.opts.AbstractPrefix)

	// 2. Lookup
	if entry, found := s.lookup(ctx, key); found {
		metrics.ExplanationRequests.WithLabelValues("hit").Inc()
		return &Result{
			Explanation:   entry.Explanation,
			IsAIGenerated: true,
			Cached:        true,
			Remaining:     s.remaining(ctx, req.User),
		}, nil
	}

	// 3-5. Miss: one flight per (user, key)
	res, err := s.joinUserFlight(ctx, req, key)
	switch {
	case err == nil && res.Cached:
		metrics.ExplanationRequests.WithLabelValues("hit").Inc()
	case err == nil:
		metrics.ExplanationRequests.WithLabelValues("generated").Inc()
	case errors.Is(err, model.ErrQuotaExceeded):
		metrics.ExplanationRequests.WithLabelValues("quota_exceeded").Inc()
	case errors.Is(err, model.ErrGenerationFailed):
		metrics.ExplanationRequests.WithLabelValues("generation_failed").Inc()
	default:
		metrics.ExplanationRequests.WithLabelValues("cancelled").Inc()
	}
	return res, err
}

// Remaining returns the user's remaining quota today, nil for unlimited tiers
func (s *Service) Remaining(ctx context.Context, user model.User) *int {
	return s.remaining(ctx, user)
}

// Sweep removes expired entries from the store
func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.store.Sweep(ctx, s.now())
}

func (s *Service) lookup(ctx context.Context, key string) (*model.ExplanationEntry, bool) {
	entry, found, err := s.store.Get(ctx, key, s.now())
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed, treating as miss")
		return nil, false
	}
	return entry, found
}

// joinUserFlight waits for the user's flight for key, starting it if needed.
// The caller leaves on ctx cancellation without affecting other waiters.
func (s *Service) joinUserFlight(ctx context.Context, req Request, key string) (*Result, error) {
	flightKey := req.User.ID + "|" + key

	s.mu.Lock()
	call, ok := s.userFlights[flightKey]
	if !ok {
		call = &userCall{done: make(chan struct{})}
		s.userFlights[flightKey] = call
		go s.runUserFlight(context.WithoutCancel(ctx), req, key, flightKey, call)
	}
	call.waiters++
	s.mu.Unlock()

	select {
	case <-call.done:
		return call.res, call.err
	case <-ctx.Done():
		s.mu.Lock()
		defer s.mu.Unlock()
		if call.finished {
			return call.res, call.err
		}
		call.waiters--
		return nil, ctx.Err()
	}
}

// runUserFlight reserves quota, joins the key flight and settles the charge.
// If every waiter left before completion, the reservation is refunded.
func (s *Service) runUserFlight(ctx context.Context, req Request, key, flightKey string, call *userCall) {
	res, day, charged, err := s.miss(ctx, req, key)

	s.mu.Lock()
	refund := charged && call.waiters == 0
	if refund {
		res, err = nil, context.Canceled
	}
	call.res, call.err = res, err
	call.finished = true
	delete(s.userFlights, flightKey)
	s.mu.Unlock()

	if refund {
		s.release(ctx, req.User, day)
	}
	close(call.done)
}

// miss handles a cache miss. charged reports whether a quota unit stays consumed.
func (s *Service) miss(ctx context.Context, req Request, key string) (res *Result, day string, charged bool, err error) {
	// Another flight may have filled the cache since the first lookup
	if entry, found := s.lookup(ctx, key); found {
		return &Result{Explanation: entry.Explanation, IsAIGenerated: true, Cached: true, Remaining: s.remaining(ctx, req.User)}, "", false, nil
	}

	// 3. Quota check, lazily reset by date
	day = s.Today(s.now())
	tier := req.User.Tier
	used := 0
	if !tier.Unlimited() {
		used, err = s.quota.Reserve(ctx, req.User.ID, day, tier.DailyLimit)
		if err != nil {
			if !errors.Is(err, model.ErrQuotaExceeded) {
				s.logger.Error().Err(err).Str("user", req.User.ID).Msg("quota reservation failed")
			}
			return nil, day, false, err
		}
	}

	// 4. At most one generation per key
	ch := s.keyFlights.DoChan(key, func() (any, error) {
		return s.generate(ctx, req, key)
	})
	out := <-ch

	if out.Err != nil {
		if !tier.Unlimited() {
			s.release(ctx, req.User, day)
		}
		s.logger.Warn().Err(out.Err).Str("venue", req.VenueID).Msg("explanation generation failed")
		return nil, day, false, fmt.Errorf("%w: %v", model.ErrGenerationFailed, out.Err)
	}

	g := out.Val.(generated)
	if !g.fresh {
		if !tier.Unlimited() {
			s.release(ctx, req.User, day)
		}
		return &Result{Explanation: g.text, IsAIGenerated: true, Cached: true, Remaining: s.remaining(ctx, req.User)}, day, false, nil
	}

	res = &Result{Explanation: g.text, IsAIGenerated: true}
	if !tier.Unlimited() {
		left := tier.DailyLimit - used
		if left < 0 {
			left = 0
		}
		res.Remaining = &left
	}
	return res, day, !tier.Unlimited(), nil
}

// generate runs inside the key flight on a context detached from any single caller
func (s *Service) generate(parent context.Context, req Request, key string) (any, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.opts.GenerationTimeout)
	defer cancel()

	if entry, found := s.lookup(ctx, key); found {
		return generated{text: entry.Explanation}, nil
	}

	start := s.now()
	text, err := s.gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, errors.New("empty explanation")
	}

	created := s.now()
	entry := model.ExplanationEntry{
		Key:         key,
		Explanation: text,
		CreatedAt:   created,
		ExpiresAt:   created.Add(s.opts.TTL),
	}
	if err := s.store.Set(ctx, entry); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}

	s.logger.Debug().Str("venue", req.VenueID).Dur("took", created.Sub(start)).Msg("explanation generated")
	return generated{text: text, fresh: true}, nil
}

func (s *Service) release(ctx context.Context, user model.User, day string) {
	if err := s.quota.Release(ctx, user.ID, day); err != nil {
		s.logger.Error().Err(err).Str("user", user.ID).Msg("quota release failed")
	}
}

func (s *Service) remaining(ctx context.Context, user model.User) *int {
	if user.Tier.Unlimited() {
		return nil
	}
	state, err := s.quota.Usage(ctx, user.ID, s.Today(s.now()))
	if err != nil {
		s.logger.Warn().Err(err).Str("user", user.ID).Msg("quota read failed")
	}
	left := user.Tier.DailyLimit - state.UsedToday
	if left < 0 {
		left = 0
	}
	return &left
}
