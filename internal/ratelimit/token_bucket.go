// Package ratelimit implements a redis-backed token bucket. State lives in
// redis with a TTL, not in process memory, so limits hold across restarts
// and multiple instances.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])
local now = tonumber(ARGV[4])

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
  ts = now
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  local refill = (delta / 1000) * rate
  tokens = math.min(burst, tokens + refill)
  ts = now
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HMSET", KEYS[1], "tokens", tokens, "ts", ts)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens)}
`

type TokenBucket struct {
	client *redis.Client
	script *redis.Script
	now    func() time.Time
}

type Result struct {
	Allowed   bool
	Remaining int
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(tokenBucketScript),
		now:    time.Now,
	}
}

// Allow consumes one token from the bucket at key, refilling at rate tokens
// per second up to burst. A nil bucket fails open so a missing redis never
// blocks the request path.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (Result, error) {
	if t == nil || t.client == nil {
		return Result{Allowed: true}, nil
	}
	if key == "" {
		return Result{Allowed: false}, errors.New("rate limiter key is empty")
	}
	if rate <= 0 || burst <= 0 {
		return Result{Allowed: false}, nil
	}

	ttl := int64(math.Ceil(float64(burst)/rate)*1000) + 60_000
	nowMillis := t.now().UnixMilli()

	raw, err := t.script.Run(ctx, t.client, []string{"ratelimit:" + key},
		rate, burst, ttl, nowMillis).Result()
	if err != nil {
		// Fail open: rate limiting protects capacity, it is not a
		// correctness guarantee.
		return Result{Allowed: true}, err
	}

	values, ok := raw.([]any)
	if !ok || len(values) < 2 {
		return Result{Allowed: true}, nil
	}
	allowed, _ := values[0].(int64)
	remaining := 0
	if s, ok := values[1].(string); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			remaining = int(f)
		}
	}
	return Result{Allowed: allowed == 1, Remaining: remaining}, nil
}
