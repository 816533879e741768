package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trezcool/shkola/core"
)

// the counter expires with its window, so keys never need cleaning up
var windowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

const redisTimeout = 2 * time.Second

// RedisLimiter shares the windows between API instances.
// It falls back on an in-memory limiter when Redis cannot be reached.
type RedisLimiter struct {
	client   redis.Scripter
	limit    int
	window   time.Duration
	prefix   string
	fallback *InMemoryLimiter
	logger   core.Logger
}

var _ Limiter = (*RedisLimiter)(nil)

func NewRedis(client redis.Scripter, limit int, window time.Duration, logger core.Logger) *RedisLimiter {
	fallback := NewInMemory(limit, window)
	return &RedisLimiter{
		client:   client,
		limit:    fallback.limit,
		window:   fallback.window,
		prefix:   "shkola:rl:",
		fallback: fallback,
		logger:   logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) Decision {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	res, err := windowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds()).Int64Slice()
	if err != nil || len(res) < 2 {
		if err != nil {
			l.logger.Warn("rate limiter: redis unavailable, using in-memory counters", err)
		}
		return l.fallback.Allow(ctx, key)
	}

	count, ttl := res[0], res[1]
	if ttl < 0 {
		ttl = l.window.Milliseconds()
	}
	return decide(int(count), l.limit, nowFunc().UTC().Add(time.Duration(ttl)*time.Millisecond))
}
