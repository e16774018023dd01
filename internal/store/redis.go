package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ppiankov/venuescope/internal/model"
)

// NewRedisClient creates and pings a Redis client with optional password auth
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Counters live in a hash per user: {date, used}. Keys expire two days after
// their last write so idle users do not accumulate.
const quotaKeyTTL = 48 * time.Hour

var reserveScript = redis.NewScript(`
local date = redis.call('HGET', KEYS[1], 'date')
local used = tonumber(redis.call('HGET', KEYS[1], 'used') or '0')
if date ~= ARGV[1] then
	used = 0
end
if used >= tonumber(ARGV[2]) then
	return -1
end
used = used + 1
redis.call('HSET', KEYS[1], 'date', ARGV[1], 'used', used)
redis.call('EXPIRE', KEYS[1], ARGV[3])
return used
`)

var releaseScript = redis.NewScript(`
local date = redis.call('HGET', KEYS[1], 'date')
local used = tonumber(redis.call('HGET', KEYS[1], 'used') or '0')
if date == ARGV[1] and used > 0 then
	redis.call('HSET', KEYS[1], 'used', used - 1)
end
return 0
`)

// RedisQuota shares quota counters across server replicas
type RedisQuota struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisQuota creates a ledger under the "venuescope:quota:" key prefix
func NewRedisQuota(rdb redis.Cmdable) *RedisQuota {
	return &RedisQuota{rdb: rdb, prefix: "venuescope:quota:"}
}

// Reserve atomically takes one unit of the user's quota for day
func (q *RedisQuota) Reserve(ctx context.Context, userID, day string, limit int) (int, error) {
	used, err := reserveScript.Run(ctx, q.rdb, []string{q.prefix + userID},
		day, limit, int(quotaKeyTTL.Seconds())).Int()
	if err != nil {
		return 0, fmt.Errorf("reserving quota: %w", err)
	}
	if used < 0 {
		return 0, model.ErrQuotaExceeded
	}
	return used, nil
}

// Release returns a unit reserved for day
func (q *RedisQuota) Release(ctx context.Context, userID, day string) error {
	if err := releaseScript.Run(ctx, q.rdb, []string{q.prefix + userID}, day).Err(); err != nil {
		return fmt.Errorf("releasing quota: %w", err)
	}
	return nil
}

// Usage reads the user's counter as of day
func (q *RedisQuota) Usage(ctx context.Context, userID, day string) (model.QuotaState, error) {
	state := model.QuotaState{UserID: userID, LastResetDate: day}

	vals, err := q.rdb.HMGet(ctx, q.prefix+userID, "date", "used").Result()
	if errors.Is(err, redis.Nil) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("reading quota: %w", err)
	}

	date, _ := vals[0].(string)
	used, _ := vals[1].(string)
	if date == day {
		state.UsedToday, _ = strconv.Atoi(used)
	}
	return state, nil
}
