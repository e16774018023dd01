// Package cache stores generated explanations keyed by a digest of the
// abstract prefix and the venue id.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/ppiankov/venuescope/internal/model"
)

// Store persists explanation entries. Get never returns an entry that is
// expired at now; expired entries found on read are deleted.
type Store interface {
	Get(ctx context.Context, key string, now time.Time) (*model.ExplanationEntry, bool, error)
	Set(ctx context.Context, entry model.ExplanationEntry) error
	Delete(ctx context.Context, key string) error
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Key returns the 64-character hex digest of the abstract prefix (in runes) and venue id
func Key(abstract, venueID string, prefix int) string {
	hash := sha256.Sum256([]byte(model.TruncateRunes(abstract, prefix) + "|" + venueID))
	return hex.EncodeToString(hash[:])
}
