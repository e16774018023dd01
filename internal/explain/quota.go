package explain

import (
	"context"
	"sync"

	"github.com/ppiankov/venuescope/internal/model"
)

// QuotaStore holds per-user daily counters. Reserve must be an atomic
// compare-and-increment: a counter whose date differs from day restarts,
// and no two callers can both take the last unit.
type QuotaStore interface {
	Reserve(ctx context.Context, userID, day string, limit int) (int, error)
	Release(ctx context.Context, userID, day string) error
	Usage(ctx context.Context, userID, day string) (model.QuotaState, error)
}

// MemoryQuota is a process-local QuotaStore
type MemoryQuota struct {
	mu    sync.Mutex
	users map[string]*model.QuotaState
}

// NewMemoryQuota creates an empty ledger
func NewMemoryQuota() *MemoryQuota {
	return &MemoryQuota{users: make(map[string]*model.QuotaState)}
}

// Reserve takes one unit of the user's quota for day
func (q *MemoryQuota) Reserve(_ context.Context, userID, day string, limit int) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state := q.state(userID, day)
	if state.UsedToday >= limit {
		return state.UsedToday, model.ErrQuotaExceeded
	}
	state.UsedToday++
	return state.UsedToday, nil
}

// Release returns a unit reserved for day
func (q *MemoryQuota) Release(_ context.Context, userID, day string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if state, ok := q.users[userID]; ok && state.LastResetDate == day && state.UsedToday > 0 {
		state.UsedToday--
	}
	return nil
}

// Usage returns the user's counter as of day
func (q *MemoryQuota) Usage(_ context.Context, userID, day string) (model.QuotaState, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	state, ok := q.users[userID]
	if !ok || state.LastResetDate != day {
		return model.QuotaState{UserID: userID, LastResetDate: day}, nil
	}
	return *state, nil
}

// state returns the user's counter, lazily reset to day. Caller holds mu.
func (q *MemoryQuota) state(userID, day string) *model.QuotaState {
	state, ok := q.users[userID]
	if !ok {
		state = &model.QuotaState{UserID: userID}
		q.users[userID] = state
	}
	if state.LastResetDate != day {
		state.LastResetDate = day
		state.UsedToday = 0
	}
	return state
}
