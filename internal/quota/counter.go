package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter holds per-user usage. Reserve must be atomic: two callers at
// limit-1 cannot both succeed.
type Counter interface {
	// Reserve raises the counter to at least seed, then increments it unless
	// it already reached limit. It returns the counter value after the call
	// and whether a unit was taken.
	Reserve(ctx context.Context, userID string, seed, limit int) (int, bool, error)
	// Release gives back one unit. It never goes below zero.
	Release(ctx context.Context, userID string) error
}

var reserveScript = redis.NewScript(`
local seed = tonumber(ARGV[1])
local current = tonumber(redis.call("GET", KEYS[1]) or ARGV[1])
if current < seed then
	current = seed
end
if current >= tonumber(ARGV[2]) then
	return {0, current}
end
current = current + 1
redis.call("SET", KEYS[1], current, "EX", ARGV[3])
return {1, current}
`)

var releaseScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current > 0 then
	return redis.call("DECR", KEYS[1])
end
return 0
`)

type RedisCounter struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCounter keeps counters for ttl after the last reservation so that
// resets made in the identity provider are picked up once the key expires.
func NewRedisCounter(client *redis.Client, ttl time.Duration) *RedisCounter {
	return &RedisCounter{client: client, ttl: ttl}
}

func counterKey(userID string) string {
	return "quota:usage:" + userID
}

func (c *RedisCounter) Reserve(ctx context.Context, userID string, seed, limit int) (int, bool, error) {
	ttl := int64(c.ttl / time.Second)
	if ttl <= 0 {
		ttl = 1
	}

	res, err := reserveScript.Run(ctx, c.client, []string{counterKey(userID)}, seed, limit, ttl).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("failed to reserve usage: %w", err)
	}
	if len(res) != 2 {
		return 0, false, fmt.Errorf("unexpected reserve reply: %v", res)
	}
	return int(res[1]), res[0] == 1, nil
}

func (c *RedisCounter) Release(ctx context.Context, userID string) error {
	if err := releaseScript.Run(ctx, c.client, []string{counterKey(userID)}).Err(); err != nil {
		return fmt.Errorf("failed to release usage: %w", err)
	}
	return nil
}
