package ratelimit

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local nowData = redis.call("TIME")
local now = (nowData[1] * 1000) + math.floor(nowData[2] / 1000)

local data = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])

if tokens == nil then
  tokens = burst
else
  local delta = now - ts
  if delta < 0 then
    delta = 0
  end
  tokens = math.min(burst, tokens + (delta / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return allowed
`

// Redis is a token bucket shared by every replica through one Redis key per bucket.
type Redis struct {
	client redis.UniversalClient
	script *redis.Script
	prefix string
	cfg    Config
}

// NewRedis returns a Limiter storing buckets under prefix.
func NewRedis(client redis.UniversalClient, prefix string, cfg Config) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "ratelimit:notify:"
	}
	return &Redis{client: client, script: redis.NewScript(tokenBucketScript), prefix: prefix, cfg: cfg}, nil
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("rate limiter key is empty")
	}
	allowed, err := r.script.Run(ctx, r.client, []string{r.prefix + key},
		r.cfg.perSecond(),
		r.cfg.Burst,
		r.cfg.ttl().Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return allowed == 1, nil
}
