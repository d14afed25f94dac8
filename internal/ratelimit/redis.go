package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter implements Limiter as a fixed-window token bucket per
// key: capacity tokens refill every window. INCR+EXPIRE keeps the
// whole check atomic per Redis call, the way telemetry/ratelimiter.go
// keeps its single gate's read-then-write atomic under one mutex.
type RedisLimiter struct {
	client   *redis.Client
	prefix   string
	capacity int
	window   time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, capacity int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "sentinel:ratelimit"
	}
	return &RedisLimiter{client: client, prefix: prefix, capacity: capacity, window: window}
}

const incrAndExpireScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)
	res, err := l.client.Eval(ctx, incrAndExpireScript, []string{redisKey}, l.window.Milliseconds()).Result()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit: checking bucket for %s: %w", key, err)
	}
	count, ok := res.(int64)
	if !ok {
		return false, 0, fmt.Errorf("ratelimit: unexpected script result type %T", res)
	}
	if int(count) <= l.capacity {
		return true, 0, nil
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil || ttl < 0 {
		return false, int(l.window.Seconds()), nil
	}
	retryAfter := int((ttl + time.Second - 1) / time.Second)
	return false, retryAfter, nil
}
