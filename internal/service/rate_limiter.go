package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/prperemyshlev/bridge-service/pkg/database"
)

// slidingWindowScript trims, counts and records in one round trip so that
// concurrent requests cannot all observe count < limit and slip past it.
// Scores are unix milliseconds. Returns {allowed, retry_after_ms}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
	local retry = window
	local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
	if oldest[2] then
		retry = window - (now - tonumber(oldest[2]))
		if retry < 0 then
			retry = 0
		end
	end
	return {0, retry}
end
redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window + 60000)
return {1, 0}
`)

// RateLimiter enforces per-key request limits with a Redis sliding window log
type RateLimiter struct {
	redis *database.Redis
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(redis *database.Redis) *RateLimiter {
	return &RateLimiter{redis: redis}
}

// Allow reports whether one more request fits inside the window for this
// key. When the limit is reached it also returns how long until the oldest
// entry ages out.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	redisKey := fmt.Sprintf("ratelimit:%s", key)
	member := fmt.Sprintf("%d-%s", time.Now().UnixNano(), uuid.New().String())

	result, err := slidingWindowScript.Run(ctx, r.redis.Client,
		[]string{redisKey},
		time.Now().UnixMilli(), window.Milliseconds(), limit, member,
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("failed to run rate limit script: %w", err)
	}
	if len(result) != 2 {
		return false, 0, fmt.Errorf("unexpected rate limit script reply: %v", result)
	}

	if result[0] == 0 {
		retryAfter := time.Duration(result[1]) * time.Millisecond
		return false, retryAfter.Round(time.Second), nil
	}

	return true, 0, nil
}

// GetRemainingRequests returns the number of requests left in the window
func (r *RateLimiter) GetRemainingRequests(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	now := time.Now()
	windowStart := now.Add(-window)
	redisKey := fmt.Sprintf("ratelimit:%s", key)

	err := r.redis.Client.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", windowStart.UnixMilli())).Err()
	if err != nil {
		return 0, fmt.Errorf("failed to clean old entries: %w", err)
	}

	count, err := r.redis.Client.ZCard(ctx, redisKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}

	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}

	return remaining, nil
}
