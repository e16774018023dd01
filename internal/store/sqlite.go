// Package store persists explanation entries and per-user daily quota
// counters in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ppiankov/venuescope/internal/model"
)

// SQLite implements cache.Store and explain.QuotaStore on one database
type SQLite struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema exists
func Open(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One writer at a time; quota updates are single statements
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS explanation_cache (
			cache_key TEXT PRIMARY KEY CHECK (length(cache_key) = 64),
			explanation TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_explanation_cache_expires ON explanation_cache(expires_at)`,
		`CREATE TABLE IF NOT EXISTS user_quota (
			user_id TEXT PRIMARY KEY,
			used INTEGER NOT NULL CHECK (used >= 0),
			reset_date TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Get returns the entry for key unless it is expired at now; expired rows are deleted
func (s *SQLite) Get(ctx context.Context, key string, now time.Time) (*model.ExplanationEntry, bool, error) {
	var explanation string
	var created, expires int64
	err := s.db.QueryRowContext(ctx,
		`SELECT explanation, created_at, expires_at FROM explanation_cache WHERE cache_key = ?`, key,
	).Scan(&explanation, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}

	entry := model.ExplanationEntry{
		Key:         key,
		Explanation: explanation,
		CreatedAt:   time.Unix(0, created),
		ExpiresAt:   time.Unix(0, expires),
	}
	if entry.Expired(now) {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM explanation_cache WHERE cache_key = ? AND expires_at <= ?`, key, now.UnixNano(),
		); err != nil {
			return nil, false, fmt.Errorf("deleting expired entry: %w", err)
		}
		return nil, false, nil
	}
	return &entry, true, nil
}

// Set inserts entry. An existing row is only replaced once it has expired.
func (s *SQLite) Set(ctx context.Context, entry model.ExplanationEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO explanation_cache (cache_key, explanation, created_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			explanation = excluded.explanation,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
		WHERE explanation_cache.expires_at <= excluded.created_at`,
		entry.Key, entry.Explanation, entry.CreatedAt.UnixNano(), entry.ExpiresAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM explanation_cache WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// Sweep removes every entry expired at now
func (s *SQLite) Sweep(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM explanation_cache WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("sweeping cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// Reserve takes one unit of the user's quota for day. A stored counter from
// an earlier day restarts at 1. Returns the new count, or model.ErrQuotaExceeded.
func (s *SQLite) Reserve(ctx context.Context, userID, day string, limit int) (int, error) {
	if limit <= 0 {
		return 0, model.ErrQuotaExceeded
	}

	var used int
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO user_quota (user_id, used, reset_date) VALUES (?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			used = CASE WHEN user_quota.reset_date != excluded.reset_date THEN 1 ELSE user_quota.used + 1 END,
			reset_date = excluded.reset_date
		WHERE user_quota.reset_date != excluded.reset_date OR user_quota.used < ?
		RETURNING used`,
		userID, day, limit,
	).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrQuotaExceeded
	}
	if err != nil {
		return 0, fmt.Errorf("reserving quota: %w", err)
	}
	return used, nil
}

// Release returns a unit reserved for day. Counters from other days are untouched.
func (s *SQLite) Release(ctx context.Context, userID, day string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE user_quota SET used = used - 1 WHERE user_id = ? AND reset_date = ? AND used > 0`,
		userID, day,
	)
	if err != nil {
		return fmt.Errorf("releasing quota: %w", err)
	}
	return nil
}

// Usage returns the user's state as of day; a stale counter reads as zero
func (s *SQLite) Usage(ctx context.Context, userID, day string) (model.QuotaState, error) {
	state := model.QuotaState{UserID: userID, LastResetDate: day}

	var used int
	var resetDate string
	err := s.db.QueryRowContext(ctx,
		`SELECT used, reset_date FROM user_quota WHERE user_id = ?`, userID,
	).Scan(&used, &resetDate)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("reading quota: %w", err)
	}

	if resetDate == day {
		state.UsedToday = used
	}
	return state, nil
}
