// Package ratelimit enforces request and token quotas in Redis so that
// several processes sharing a summarization provider stay within its limits.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/s33g/promptfit/internal/config"
	"github.com/s33g/promptfit/internal/storage"
)

// requestScript counts one request against every window in KEYS, or none of
// them if any window is full. ARGV holds a limit and a ttl per key; a limit
// of 0 never blocks. Returns {index of the full window or 0, seconds to reset}.
var requestScript = redis.NewScript(`
for i, key in ipairs(KEYS) do
    local limit = tonumber(ARGV[2 * i - 1])
    local count = tonumber(redis.call('GET', key) or '0')
    if limit > 0 and count >= limit then
        local ttl = redis.call('TTL', key)
        if ttl <= 0 then ttl = tonumber(ARGV[2 * i]) end
        return {i, ttl}
    end
end

for i, key in ipairs(KEYS) do
    if redis.call('INCR', key) == 1 then
        redis.call('EXPIRE', key, tonumber(ARGV[2 * i]))
    end
end

return {0, 0}
`)

// tokenScript adds ARGV[3] tokens to the period counter in KEYS[1] unless the
// total would pass ARGV[1]. Returns {allowed, used, remaining, seconds to reset}.
var tokenScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local period = tonumber(ARGV[2])
local add = tonumber(ARGV[3])

local used = tonumber(redis.call('GET', KEYS[1]) or '0')
if used + add > limit then
    local ttl = redis.call('TTL', KEYS[1])
    if ttl <= 0 then ttl = period end
    return {0, used, limit - used, ttl}
end

used = redis.call('INCRBY', KEYS[1], add)
if used == add then
    redis.call('EXPIRE', KEYS[1], period)
end

return {1, used, limit - used, 0}
`)

// Limiter checks request and token quotas with atomic Lua scripts
type Limiter struct {
	client *storage.Client
}

// NewLimiter loads the quota scripts so a broken server fails at startup
func NewLimiter(ctx context.Context, client *storage.Client) (*Limiter, error) {
	for name, script := range map[string]*redis.Script{"request": requestScript, "token": tokenScript} {
		if err := script.Load(ctx, client.Redis()).Err(); err != nil {
			return nil, fmt.Errorf("failed to load %s quota script: %w", name, err)
		}
	}
	return &Limiter{client: client}, nil
}

// RateLimitResult holds the result of a rate limit check
type RateLimitResult struct {
	Allowed        bool
	SecondsToReset int
	LimitType      string // "minute" or "hour"
}

type window struct {
	name  string
	key   string
	limit int
	ttl   time.Duration
}

// CheckRateLimit counts one request against scope and reports whether it is allowed
func (l *Limiter) CheckRateLimit(ctx context.Context, scope string, limits config.RateLimit) (*RateLimitResult, error) {
	windows := []window{
		{name: "minute", key: l.client.Keys().RateLimitMinute(scope), limit: limits.RequestsPerMinute, ttl: time.Minute},
		{name: "hour", key: l.client.Keys().RateLimitHour(scope), limit: limits.RequestsPerHour, ttl: time.Hour},
	}

	keys := make([]string, 0, len(windows))
	args := make([]any, 0, 2*len(windows))
	for _, w := range windows {
		keys = append(keys, w.key)
		args = append(args, w.limit, int(w.ttl.Seconds()))
	}

	res, err := requestScript.Run(ctx, l.client.Redis(), keys, args...).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("rate limit check failed: %w", err)
	}
	if len(res) != 2 || res[0] < 0 || int(res[0]) > len(windows) {
		return nil, fmt.Errorf("unexpected rate limit result %v", res)
	}

	if res[0] == 0 {
		return &RateLimitResult{Allowed: true}, nil
	}
	return &RateLimitResult{
		SecondsToReset: int(res[1]),
		LimitType:      windows[res[0]-1].name,
	}, nil
}

// TokenLimitResult holds the result of a token limit check
type TokenLimitResult struct {
	Allowed         bool
	TokensUsed      int
	TokensRemaining int
	SecondsToReset  int
}

// CheckTokenLimit adds tokens to scope's usage for the current period unless that would exceed the limit
func (l *Limiter) CheckTokenLimit(ctx context.Context, scope string, limit config.TokenLimit, tokens int) (*TokenLimitResult, error) {
	if !limit.Enabled() {
		return &TokenLimitResult{Allowed: true}, nil
	}
	if limit.PeriodHours <= 0 {
		return nil, fmt.Errorf("token limit period must be positive, got %d hours", limit.PeriodHours)
	}

	period := int64(limit.PeriodHours) * 3600
	key := l.client.Keys().TokenLimit(scope, time.Now().Unix()/period*period)

	res, err := tokenScript.Run(ctx, l.client.Redis(), []string{key}, limit.TokensPerPeriod, period, tokens).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("token limit check failed: %w", err)
	}
	if len(res) != 4 {
		return nil, fmt.Errorf("unexpected token limit result %v", res)
	}

	return &TokenLimitResult{
		Allowed:         res[0] == 1,
		TokensUsed:      int(res[1]),
		TokensRemaining: int(res[2]),
		SecondsToReset:  int(res[3]),
	}, nil
}
