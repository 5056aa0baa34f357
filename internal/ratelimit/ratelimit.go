// Package ratelimit throttles abusive callers of the auth and download endpoints.
package ratelimit

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Result is the outcome of one Allow call.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Limiter admits or rejects one request for key.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// MemoryLimiter is a per-key token bucket held in process memory.
type MemoryLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter creates a limiter with the given requests per second and burst size.
// Idle keys are evicted until ctx is done.
func NewMemoryLimiter(ctx context.Context, rps float64, burst int) *MemoryLimiter {
	ml := &MemoryLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(rps),
		burst:    burst,
		idle:     3 * time.Minute,
		now:      time.Now,
	}
	go ml.cleanup(ctx)
	return ml
}

// NewWindowMemoryLimiter spreads limit requests per window as a token bucket.
func NewWindowMemoryLimiter(ctx context.Context, limit int, window time.Duration) *MemoryLimiter {
	return NewMemoryLimiter(ctx, float64(limit)/window.Seconds(), limit)
}

func (ml *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := ml.now()

	ml.mu.Lock()
	v, ok := ml.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(ml.rate, ml.burst)}
		ml.visitors[key] = v
	}
	v.lastSeen = now
	ml.mu.Unlock()

	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		return Result{RetryAfter: time.Second}, nil
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Result{RetryAfter: delay}, nil
	}
	return Result{Allowed: true}, nil
}

func (ml *MemoryLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ml.evictIdle()
		}
	}
}

func (ml *MemoryLimiter) evictIdle() {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	for key, v := range ml.visitors {
		if ml.now().Sub(v.lastSeen) > ml.idle {
			delete(ml.visitors, key)
		}
	}
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisLimiter is a fixed window counter shared by every API instance.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "storefront:rate_limit"
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	if r.limit <= 0 || r.window <= 0 {
		return Result{Allowed: true}, nil
	}
	windowMs := max(r.window.Milliseconds(), 1000)

	raw, err := fixedWindowScript.Run(ctx, r.client, []string{r.prefix + ":" + key}, windowMs).Result()
	if err != nil {
		return Result{}, fmt.Errorf("run rate limit script: %w", err)
	}
	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return Result{}, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return Result{}, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok || ttlMs < 0 {
		ttlMs = windowMs
	}
	if int(count) <= r.limit {
		return Result{Allowed: true}, nil
	}
	retry := time.Duration(math.Ceil(float64(ttlMs)/1000)) * time.Second
	return Result{RetryAfter: max(retry, time.Second)}, nil
}
