package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request from key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// MemoryLimiter is a per-key token bucket held in process memory.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     int           // tokens per interval, also the bucket size
	interval time.Duration // refill interval
	now      func() time.Time
}

type visitor struct {
	tokens   int
	lastSeen time.Time
}

// NewMemoryLimiter allows rate requests per interval per key.
// PRE: rate > 0, interval > 0
func NewMemoryLimiter(rate int, interval time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		interval: interval,
		now:      time.Now,
	}
}

// Allow consumes a token for key.
// POST: returns false once the bucket is empty until the next refill
func (ml *MemoryLimiter) Allow(_ context.Context, key string) bool {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	now := ml.now()
	v, exists := ml.visitors[key]
	if !exists {
		ml.visitors[key] = &visitor{tokens: ml.rate - 1, lastSeen: now}
		return true
	}

	refill := int(now.Sub(v.lastSeen)/ml.interval) * ml.rate
	if refill > 0 {
		v.tokens = min(v.tokens+refill, ml.rate)
		v.lastSeen = now
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// Sweep drops visitors idle for longer than idle.
func (ml *MemoryLimiter) Sweep(idle time.Duration) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	now := ml.now()
	for key, v := range ml.visitors {
		if now.Sub(v.lastSeen) > idle {
			delete(ml.visitors, key)
		}
	}
}

// RunSweeper sweeps idle visitors every minute until ctx is done.
func (ml *MemoryLimiter) RunSweeper(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ml.Sweep(5 * time.Minute)
		}
	}
}

// tokenBucketScript refills and takes one token atomically; returns 1 when allowed.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local interval_ms = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil or last == nil then
	tokens = capacity
	last = now_ms
end

local intervals = math.floor(math.max(0, now_ms - last) / interval_ms)
if intervals > 0 then
	tokens = math.min(capacity, tokens + intervals * capacity)
	last = last + intervals * interval_ms
end

local allowed = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
end
redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', key, ttl)
return allowed
`)

// RedisLimiter is a token bucket shared by every process using the same redis.
// INVARIANT: redis failures allow the request (fail open) after logging
type RedisLimiter struct {
	client   redis.Scripter
	rate     int
	interval time.Duration
	prefix   string
	now      func() time.Time
}

// NewRedisLimiter allows rate requests per interval per key across processes.
func NewRedisLimiter(client redis.Scripter, rate int, interval time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		rate:     rate,
		interval: interval,
		prefix:   "makerspace:ratelimit:",
		now:      time.Now,
	}
}

// Allow runs the token bucket script for key.
func (rl *RedisLimiter) Allow(ctx context.Context, key string) bool {
	ttl := max(int64(rl.interval/time.Second)*10, 60)
	res, err := tokenBucketScript.Run(ctx, rl.client, []string{rl.prefix + key},
		rl.now().UnixMilli(), rl.rate, rl.interval.Milliseconds(), ttl).Int64()
	if err != nil {
		slog.Warn("rate_limit_backend_error", "key", key, "error", err.Error())
		return true
	}
	return res == 1
}

// ClientIP returns the remote host without its port.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimit returns middleware that limits requests per client IP.
func RateLimit(limiter Limiter, perSecond int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			if !limiter.Allow(r.Context(), ip) {
				slog.Warn("rate_limit_exceeded", "ip", ip, "path", r.URL.Path)
				w.Header().Set("Retry-After", "1")
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(perSecond))
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
