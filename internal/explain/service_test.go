package explain

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/venuescope/internal/cache"
	"github.com/ppiankov/venuescope/internal/model"
)

type fakeGenerator struct {
	calls atomic.Int32
	gate  chan struct{} // when non-nil, Generate blocks until closed
	err   error
}

func (g *fakeGenerator) Generate(ctx context.Context, req Request) (string, error) {
	n := g.calls.Add(1)
	if g.gate != nil {
		select {
		case <-g.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if g.err != nil {
		return "", g.err
	}
	return "explanation #" + string(rune('0'+n)) + " for " + req.Venue.Name, nil
}

type countingStore struct {
	cache.Store
	sets atomic.Int32
}

func (c *countingStore) Set(ctx context.Context, e model.ExplanationEntry) error {
	c.sets.Add(1)
	return c.Store.Set(ctx, e)
}

var (
	free      = model.Tier{Name: "free", DailyLimit: 2}
	unlimited = model.Tier{Name: "unlimited", DailyLimit: -1}
	abstract  = strings.Repeat("Empathic concern in toddlers emerges with language. ", 4)
)

type fixture struct {
	svc   *Service
	gen   *fakeGenerator
	quota *MemoryQuota
	store *countingStore
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gen:   &fakeGenerator{},
		quota: NewMemoryQuota(),
		store: &countingStore{Store: cache.NewMemoryStore(time.Minute)},
		now:   time.Now(),
	}
	f.svc = NewService(f.store, f.quota, f.gen, Options{
		TTL:               7 * 24 * time.Hour,
		AbstractPrefix:    500,
		GenerationTimeout: 2 * time.Second,
		Location:          time.UTC,
	}, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) used(t *testing.T, userID string) int {
	t.Helper()
	state, err := f.quota.Usage(context.Background(), userID, f.svc.Today(f.now))
	require.NoError(t, err)
	return state.UsedToday
}

func request(userID, venueID string, tier model.Tier) Request {
	return Request{
		Abstract: abstract,
		VenueID:  venueID,
		Venue:    VenueContext{Name: "Child Development"},
		User:     model.User{ID: userID, Tier: tier},
	}
}

func TestGetOrCreate_MissThenFreeHit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetOrCreate(ctx, request("u1", "S1", free))
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.True(t, first.IsAIGenerated)
	require.NotNil(t, first.Remaining)
	assert.Equal(t, 1, *first.Remaining)

	second, err := f.svc.GetOrCreate(ctx, request("u1", "S1", free))
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Explanation, second.Explanation)
	assert.Equal(t, 1, *second.Remaining)

	assert.Equal(t, int32(1), f.gen.calls.Load())
	assert.Equal(t, 1, f.used(t, "u1"))
}

func TestGetOrCreate_SameUserConcurrentChargedOnce(t *testing.T) {
	f := newFixture(t)
	f.gen.gate = make(chan struct{})

	var wg sync.WaitGroup
	results := make([]*Result, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.svc.GetOrCreate(context.Background(), request("u1", "S1", free))
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}

	require.Eventually(t, func() bool { return f.gen.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.gen.gate)
	wg.Wait()

	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, results[0].Explanation, r.Explanation)
	}
	assert.Equal(t, int32(1), f.gen.calls.Load())
	assert.Equal(t, 1, f.used(t, "u1"))
}

func TestGetOrCreate_TwoUsersOneGeneration(t *testing.T) {
	f := newFixture(t)
	f.gen.gate = make(chan struct{})

	var wg sync.WaitGroup
	var errs [2]error
	var texts [2]string
	for i, user := range []string{"alice", "bob"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			res, err := f.svc.GetOrCreate(context.Background(), request(user, "S1", free))
			errs[i] = err
			if res != nil {
				texts[i] = res.Explanation
			}
		}(i, user)
	}

	require.Eventually(t, func() bool {
		return f.used(t, "alice") == 1 && f.used(t, "bob") == 1
	}, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(f.gen.gate)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, texts[0], texts[1])
	assert.Equal(t, int32(1), f.gen.calls.Load())
	assert.Equal(t, int32(1), f.store.sets.Load())
	assert.Equal(t, 1, f.used(t, "alice"))
	assert.Equal(t, 1, f.used(t, "bob"))
}

func TestGetOrCreate_ExpiredEntryRegenerates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetOrCreate(ctx, request("u1", "S1", unlimited))
	require.NoError(t, err)

	f.now = f.now.Add(7*24*time.Hour - time.Second)
	res, err := f.svc.GetOrCreate(ctx, request("u1", "S1", unlimited))
	require.NoError(t, err)
	assert.True(t, res.Cached)

	f.now = f.now.Add(time.Second)
	res, err = f.svc.GetOrCreate(ctx, request("u1", "S1", unlimited))
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, int32(2), f.gen.calls.Load())
}

// slowGenerator moves the fixture clock forward while generating
type slowGenerator struct {
	f    *fixture
	took time.Duration
}

func (g *slowGenerator) Generate(_ context.Context, req Request) (string, error) {
	g.f.now = g.f.now.Add(g.took)
	return "slow explanation for " + req.Venue.Name, nil
}

func TestGetOrCreate_ExpiryCountsFromCompletion(t *testing.T) {
	f := newFixture(t)
	f.now = time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
	f.svc.gen = &slowGenerator{f: f, took: 40 * time.Second}

	req := request("u1", "S1", unlimited)
	_, err := f.svc.GetOrCreate(context.Background(), req)
	require.NoError(t, err)

	entry, found, err := f.store.Get(context.Background(), cache.Key(req.Abstract, req.VenueID, 500), f.now)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, time.Date(2026, 3, 1, 1, 0, 40, 0, time.UTC), entry.CreatedAt)
	assert.Equal(t, time.Date(2026, 3, 8, 1, 0, 40, 0, time.UTC), entry.ExpiresAt)
}

func TestGetOrCreate_LastQuotaSlotConcurrentMisses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tier := model.Tier{Name: "pro", DailyLimit: 3}

	for _, venue := range []string{"S1", "S2"} {
		_, err := f.svc.GetOrCreate(ctx, request("u1", venue, tier))
		require.NoError(t, err)
	}

	venues := []string{"V1", "V2", "V3", "V4", "V5", "V6", "V7", "V8"}
	errs := make([]error, len(venues))
	var wg sync.WaitGroup
	for i, venue := range venues {
		wg.Add(1)
		go func(i int, venue string) {
			defer wg.Done()
			_, errs[i] = f.svc.GetOrCreate(ctx, request("u1", venue, tier))
		}(i, venue)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, model.ErrQuotaExceeded)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 3, f.used(t, "u1"))
	assert.Equal(t, int32(3), f.gen.calls.Load())
}

func TestGetOrCreate_QuotaExceededAndRollover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.now = time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)

	for _, venue := range []string{"S1", "S2"} {
		_, err := f.svc.GetOrCreate(ctx, request("u1", venue, free))
		require.NoError(t, err)
	}

	_, err := f.svc.GetOrCreate(ctx, request("u1", "S3", free))
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)

	// Hits stay free at the limit
	res, err := f.svc.GetOrCreate(ctx, request("u1", "S1", free))
	require.NoError(t, err)
	assert.Equal(t, 0, *res.Remaining)

	// Next day the counter starts from zero
	f.now = time.Date(2026, 3, 2, 0, 0, 1, 0, time.UTC)
	assert.Equal(t, 0, f.used(t, "u1"))
	res, err = f.svc.GetOrCreate(ctx, request("u1", "S3", free))
	require.NoError(t, err)
	assert.Equal(t, 1, *res.Remaining)
	assert.Equal(t, 1, f.used(t, "u1"))
}

func TestGetOrCreate_DayFollowsConfiguredZone(t *testing.T) {
	f := newFixture(t)
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	f.svc.opts.Location = tokyo

	// 16:00 UTC is already the next day in Tokyo
	assert.Equal(t, "2026-03-02", f.svc.Today(time.Date(2026, 3, 1, 16, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-03-01", f.svc.Today(time.Date(2026, 3, 1, 14, 59, 0, 0, time.UTC)))
}

func TestGetOrCreate_GenerationFailureNotCharged(t *testing.T) {
	f := newFixture(t)
	f.gen.err = errors.New("model overloaded")

	_, err := f.svc.GetOrCreate(context.Background(), request("u1", "S1", free))
	assert.ErrorIs(t, err, model.ErrGenerationFailed)
	assert.NotErrorIs(t, err, model.ErrQuotaExceeded)
	assert.Equal(t, 0, f.used(t, "u1"))
	assert.Equal(t, int32(0), f.store.sets.Load())

	// Retry succeeds once the generator recovers
	f.gen.err = nil
	res, err := f.svc.GetOrCreate(context.Background(), request("u1", "S1", free))
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, f.used(t, "u1"))
}

func TestGetOrCreate_GenerationTimeout(t *testing.T) {
	f := newFixture(t)
	f.gen.gate = make(chan struct{})
	f.svc.opts.GenerationTimeout = 30 * time.Millisecond

	_, err := f.svc.GetOrCreate(context.Background(), request("u1", "S1", free))
	assert.ErrorIs(t, err, model.ErrGenerationFailed)
	assert.Equal(t, 0, f.used(t, "u1"))
}

func TestGetOrCreate_CancelledWaiterDoesNotStarveOthers(t *testing.T) {
	f := newFixture(t)
	f.gen.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	cancelled := make(chan error, 1)
	go func() {
		_, err := f.svc.GetOrCreate(ctx, request("alice", "S1", free))
		cancelled <- err
	}()
	require.Eventually(t, func() bool { return f.gen.calls.Load() == 1 }, time.Second, time.Millisecond)

	done := make(chan *Result, 1)
	go func() {
		res, err := f.svc.GetOrCreate(context.Background(), request("bob", "S1", free))
		assert.NoError(t, err)
		done <- res
	}()
	require.Eventually(t, func() bool { return f.used(t, "bob") == 1 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-cancelled, context.Canceled)

	time.Sleep(20 * time.Millisecond)
	close(f.gen.gate)

	res := <-done
	require.NotNil(t, res)
	assert.NotEmpty(t, res.Explanation)
	assert.Equal(t, int32(1), f.gen.calls.Load())

	// Alice gave up before completion and is refunded; the entry is cached for her
	require.Eventually(t, func() bool { return f.used(t, "alice") == 0 }, time.Second, time.Millisecond)
	again, err := f.svc.GetOrCreate(context.Background(), request("alice", "S1", free))
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, 0, f.used(t, "alice"))
}

func TestGetOrCreate_UnlimitedTier(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		res, err := f.svc.GetOrCreate(context.Background(), request("admin", "S"+string(rune('0'+i)), unlimited))
		require.NoError(t, err)
		assert.Nil(t, res.Remaining)
	}
	assert.Equal(t, 0, f.used(t, "admin"))
}

func TestGetOrCreate_NoGeneratorFallsBack(t *testing.T) {
	svc := NewService(cache.NewMemoryStore(time.Minute), NewMemoryQuota(), nil, Options{}, zerolog.Nop())
	res, err := svc.GetOrCreate(context.Background(), Request{
		VenueID: "S1",
		Venue:   VenueContext{Name: "Child Development", MatchReason: "Specialized venue matching your topic", Topics: []string{"Empathy"}},
		User:    model.User{ID: "u1", Tier: free},
	})
	require.NoError(t, err)
	assert.False(t, res.IsAIGenerated)
	assert.Equal(t, "Child Development was suggested because: Specialized venue matching your topic. It publishes on Empathy.", res.Explanation)
}

func TestMemoryQuota(t *testing.T) {
	ctx := context.Background()
	q := NewMemoryQuota()

	_, err := q.Reserve(ctx, "u1", "2026-03-01", 1)
	require.NoError(t, err)
	_, err = q.Reserve(ctx, "u1", "2026-03-01", 1)
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)

	require.NoError(t, q.Release(ctx, "u1", "2026-02-28"))
	state, _ := q.Usage(ctx, "u1", "2026-03-01")
	assert.Equal(t, 1, state.UsedToday)

	require.NoError(t, q.Release(ctx, "u1", "2026-03-01"))
	state, _ = q.Usage(ctx, "u1", "2026-03-01")
	assert.Equal(t, 0, state.UsedToday)

	used, err := q.Reserve(ctx, "u1", "2026-03-02", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, used)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := model.DefaultConfig().Explain
	opts, err := OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, time.UTC.String(), opts.Location.String())

	cfg.Timezone = "Not/AZone"
	_, err = OptionsFromConfig(cfg)
	assert.Error(t, err)
}
