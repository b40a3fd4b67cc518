package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trystantbm/portfolio-contact/internal/models"
)

// hitScript increments the window counter only while it is below the limit,
// so a key's count never exceeds the maximum.
// Returns {allowed (0|1), remaining window in ms}.
var hitScript = redis.NewScript(`
local count = tonumber(redis.call('GET', KEYS[1]) or '0')
if count >= tonumber(ARGV[1]) then
	return {0, redis.call('PTTL', KEYS[1])}
end
count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return {1, redis.call('PTTL', KEYS[1])}
`)

// RedisRateLimitRepository keeps fixed-window counters in Redis so every
// process behind the edge shares one limit. Expiry is handled by key TTL.
type RedisRateLimitRepository struct {
	rdb         *redis.Client
	prefix      string
	maxRequests int
	window      time.Duration
}

// NewRedisRateLimitRepository creates a Redis-backed rate limit store
func NewRedisRateLimitRepository(rdb *redis.Client, maxRequests int, window time.Duration) *RedisRateLimitRepository {
	return &RedisRateLimitRepository{
		rdb:         rdb,
		prefix:      "contact:ratelimit",
		maxRequests: maxRequests,
		window:      window,
	}
}

// Hit records one request for key atomically on the server
func (r *RedisRateLimitRepository) Hit(ctx context.Context, key string, now time.Time) (models.RateLimitDecision, error) {
	redisKey := r.prefix + ":" + strings.TrimSpace(key)

	result, err := hitScript.Run(ctx, r.rdb, []string{redisKey}, r.maxRequests, r.window.Milliseconds()).Int64Slice()
	if err != nil {
		return models.RateLimitDecision{}, fmt.Errorf("failed to record rate limit hit: %w", err)
	}
	if len(result) != 2 {
		return models.RateLimitDecision{}, fmt.Errorf("unexpected rate limit script result: %v", result)
	}

	if result[0] == 1 {
		return models.RateLimitDecision{Allowed: true}, nil
	}

	// PTTL is -1 (no expiry) or -2 (gone) only if the key was touched outside this store
	remaining := time.Duration(result[1]) * time.Millisecond
	if remaining < 0 {
		remaining = r.window
	}
	return models.RateLimitDecision{Allowed: false, ResetTime: now.Add(remaining)}, nil
}

// Ping checks connectivity for health reporting
func (r *RedisRateLimitRepository) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
