package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/venuescope/internal/model"
)

// MemoryStore keeps entries in process memory
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a memory store. Go-cache's janitor runs every cleanupInterval.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{
		cache: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

// Get retrieves an unexpired entry
func (s *MemoryStore) Get(_ context.Context, key string, now time.Time) (*model.ExplanationEntry, bool, error) {
	val, found := s.cache.Get(key)
	if !found {
		return nil, false, nil
	}
	entry := val.(model.ExplanationEntry)
	if entry.Expired(now) {
		s.cache.Delete(key)
		return nil, false, nil
	}
	return &entry, true, nil
}

// Set stores entry for its lifetime
func (s *MemoryStore) Set(_ context.Context, entry model.ExplanationEntry) error {
	s.setWithTTL(entry, entry.ExpiresAt.Sub(entry.CreatedAt))
	return nil
}

// setWithTTL bounds how long go-cache keeps the entry. Expiry at read time
// is still decided by ExpiresAt.
func (s *MemoryStore) setWithTTL(entry model.ExplanationEntry, ttl time.Duration) {
	if ttl <= 0 {
		ttl = time.Second
	}
	s.cache.Set(entry.Key, entry, ttl)
}

// Delete removes an entry
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

// Sweep removes entries expired at now
func (s *MemoryStore) Sweep(_ context.Context, now time.Time) (int, error) {
	removed := 0
	for key, item := range s.cache.Items() {
		if entry, ok := item.Object.(model.ExplanationEntry); ok && entry.Expired(now) {
			s.cache.Delete(key)
			removed++
		}
	}
	return removed, nil
}
