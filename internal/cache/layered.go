package cache

import (
	"context"
	"time"

	"github.com/ppiankov/venuescope/internal/model"
)

// LayeredStore keeps a short-lived memory layer in front of a durable store
type LayeredStore struct {
	memory   *MemoryStore
	durable  Store
	frontTTL time.Duration
}

// NewLayeredStore creates a layered store. Entries stay in memory for at most frontTTL.
func NewLayeredStore(durable Store, frontTTL time.Duration) *LayeredStore {
	if frontTTL <= 0 {
		frontTTL = 30 * time.Minute
	}
	return &LayeredStore{
		memory:   NewMemoryStore(frontTTL),
		durable:  durable,
		frontTTL: frontTTL,
	}
}

// Get checks memory first, then the durable store
func (s *LayeredStore) Get(ctx context.Context, key string, now time.Time) (*model.ExplanationEntry, bool, error) {
	// Check memory first
	if entry, found, _ := s.memory.Get(ctx, key, now); found {
		return entry, true, nil
	}

	// Check durable store
	entry, found, err := s.durable.Get(ctx, key, now)
	if err != nil || !found {
		return nil, false, err
	}

	// Promote to memory
	s.memory.setWithTTL(*entry, s.promoteTTL(*entry, now))
	return entry, true, nil
}

// Set writes the durable store, then memory
func (s *LayeredStore) Set(ctx context.Context, entry model.ExplanationEntry) error {
	if err := s.durable.Set(ctx, entry); err != nil {
		return err
	}
	s.memory.setWithTTL(entry, s.promoteTTL(entry, entry.CreatedAt))
	return nil
}

// Delete removes the entry from both layers
func (s *LayeredStore) Delete(ctx context.Context, key string) error {
	_ = s.memory.Delete(ctx, key)
	return s.durable.Delete(ctx, key)
}

// Sweep sweeps both layers and reports what the durable store removed
func (s *LayeredStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	_, _ = s.memory.Sweep(ctx, now)
	return s.durable.Sweep(ctx, now)
}

func (s *LayeredStore) promoteTTL(entry model.ExplanationEntry, now time.Time) time.Duration {
	ttl := entry.ExpiresAt.Sub(now)
	if ttl > s.frontTTL {
		ttl = s.frontTTL
	}
	return ttl
}
