package model

import "time"

// ExplanationEntry is a cached generated explanation. Entries are never
// mutated after creation; expired entries must not be served.
type ExplanationEntry struct {
	Key         string    `json:"cache_key"`
	Explanation string    `json:"explanation"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the entry is no longer servable at now
func (e ExplanationEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// QuotaState is a user's running daily counter
type QuotaState struct {
	UserID        string `json:"user_id"`
	UsedToday     int    `json:"count_used_today"`
	LastResetDate string `json:"last_reset_date"` // YYYY-MM-DD in the quota timezone
}

// Tier is a subscription class. A negative DailyLimit means unlimited.
type Tier struct {
	Name       string `json:"name" yaml:"name" mapstructure:"name"`
	DailyLimit int    `json:"daily_limit" yaml:"daily_limit" mapstructure:"daily_limit"`
}

// Unlimited reports whether the tier bypasses quota checks
func (t Tier) Unlimited() bool {
	return t.DailyLimit < 0
}

// User is the authenticated caller as provided by the identity layer
type User struct {
	ID   string
	Tier Tier
}
