package store

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/venuescope/internal/cache"
	"github.com/ppiankov/venuescope/internal/explain"
	"github.com/ppiankov/venuescope/internal/model"
)

var (
	_ cache.Store        = (*SQLite)(nil)
	_ explain.QuotaStore = (*SQLite)(nil)
	_ explain.QuotaStore = (*RedisQuota)(nil)
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "venuescope.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func key(c string) string { return strings.Repeat(c, 64) }

func TestExplanationCache(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)
	now := time.Now()

	entry := model.ExplanationEntry{Key: key("a"), Explanation: "Good fit", CreatedAt: now, ExpiresAt: now.Add(7 * 24 * time.Hour)}
	require.NoError(t, s.Set(ctx, entry))

	got, found, err := s.Get(ctx, key("a"), now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Good fit", got.Explanation)
	assert.True(t, got.ExpiresAt.Equal(entry.ExpiresAt))

	// A live row is never overwritten
	require.NoError(t, s.Set(ctx, model.ExplanationEntry{Key: key("a"), Explanation: "Other", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
	got, _, _ = s.Get(ctx, key("a"), now)
	assert.Equal(t, "Good fit", got.Explanation)

	// Expired on read: not served, row deleted
	_, found, err = s.Get(ctx, key("a"), entry.ExpiresAt)
	require.NoError(t, err)
	assert.False(t, found)

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT count(*) FROM explanation_cache`).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestExplanationCacheRejectsBadKey(t *testing.T) {
	s := openTestDB(t)
	err := s.Set(context.Background(), model.ExplanationEntry{Key: "short", Explanation: "x", CreatedAt: time.Now(), ExpiresAt: time.Now().Add(time.Hour)})
	assert.Error(t, err)
}

func TestSweep(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)
	now := time.Now()

	_ = s.Set(ctx, model.ExplanationEntry{Key: key("a"), Explanation: "x", CreatedAt: now, ExpiresAt: now.Add(time.Minute)})
	_ = s.Set(ctx, model.ExplanationEntry{Key: key("b"), Explanation: "y", CreatedAt: now, ExpiresAt: now.Add(time.Hour)})

	removed, err := s.Sweep(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, found, _ := s.Get(ctx, key("b"), now)
	assert.True(t, found)

	require.NoError(t, s.Delete(ctx, key("b")))
	_, found, _ = s.Get(ctx, key("b"), now)
	assert.False(t, found)
}

func TestReserveLimit(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	for i := 1; i <= 3; i++ {
		used, err := s.Reserve(ctx, "u1", "2026-03-01", 3)
		require.NoError(t, err)
		assert.Equal(t, i, used)
	}

	_, err := s.Reserve(ctx, "u1", "2026-03-01", 3)
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)

	state, err := s.Usage(ctx, "u1", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, 3, state.UsedToday)

	// Other users are independent
	used, err := s.Reserve(ctx, "u2", "2026-03-01", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, used)

	_, err = s.Reserve(ctx, "u3", "2026-03-01", 0)
	assert.ErrorIs(t, err, model.ErrQuotaExceeded)
}

func TestReserveDayRollover(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	for i := 0; i < 2; i++ {
		_, err := s.Reserve(ctx, "u1", "2026-03-01", 2)
		require.NoError(t, err)
	}
	_, err := s.Reserve(ctx, "u1", "2026-03-01", 2)
	require.ErrorIs(t, err, model.ErrQuotaExceeded)

	state, _ := s.Usage(ctx, "u1", "2026-03-02")
	assert.Equal(t, 0, state.UsedToday)

	used, err := s.Reserve(ctx, "u1", "2026-03-02", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, used)
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	_, _ = s.Reserve(ctx, "u1", "2026-03-01", 1)
	require.NoError(t, s.Release(ctx, "u1", "2026-03-01"))
	require.NoError(t, s.Release(ctx, "u1", "2026-03-01"))

	state, _ := s.Usage(ctx, "u1", "2026-03-01")
	assert.Equal(t, 0, state.UsedToday)

	// Releasing against another day does nothing
	_, _ = s.Reserve(ctx, "u1", "2026-03-01", 1)
	require.NoError(t, s.Release(ctx, "u1", "2026-02-28"))
	state, _ = s.Usage(ctx, "u1", "2026-03-01")
	assert.Equal(t, 1, state.UsedToday)
}

func TestReserveConcurrent(t *testing.T) {
	ctx := context.Background()
	s := openTestDB(t)

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Reserve(ctx, "u1", "2026-03-01", 5); err == nil {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(5), granted.Load())
	state, _ := s.Usage(ctx, "u1", "2026-03-01")
	assert.Equal(t, 5, state.UsedToday)
}

func TestPing(t *testing.T) {
	s := openTestDB(t)
	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, s.Close())
	assert.Error(t, s.Ping(context.Background()))
}
