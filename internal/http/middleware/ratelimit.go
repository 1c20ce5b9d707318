package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zapagenda/zapagenda/pkg/logging"
)

// RedisRateLimiter is a fixed-window rate limiter backed by Redis, keyed on
// the webhook sender. A Redis outage fails open.
type RedisRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
	logger *logging.Logger
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

// NewRedisRateLimiter creates a limiter allowing limit requests per window.
func NewRedisRateLimiter(rdb *redis.Client, limit int, window time.Duration, logger *logging.Logger) *RedisRateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, prefix: "rl:webhook", logger: logger}
}

// Allow reports whether another request from key fits in the current window.
func (rl *RedisRateLimiter) Allow(ctx context.Context, key string) bool {
	count, err := rl.incr(ctx, rl.prefix+":"+key)
	if err != nil {
		rl.logger.Warn("redis rate limiter error", "error", err)
		return true
	}
	return count <= int64(rl.limit)
}

func (rl *RedisRateLimiter) incr(ctx context.Context, key string) (int64, error) {
	res, err := fixedWindowScript.Run(ctx, rl.rdb, []string{key}, rl.window.Milliseconds()).Result()
	if err != nil {
		return 0, err
	}
	count, ok := res.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected script result %T", res)
	}
	return count, nil
}

// WebhookRateLimit rejects requests exceeding the per-sender limit with 429.
// The sender key is the form-encoded From field, falling back to the remote
// address for malformed payloads. When limiter is nil the middleware is a
// pass-through.
func WebhookRateLimit(limiter *RedisRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := senderKey(r)
			if !limiter.Allow(r.Context(), key) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func senderKey(r *http.Request) string {
	if err := r.ParseForm(); err == nil {
		if from := strings.TrimSpace(r.PostForm.Get("From")); from != "" {
			return from
		}
	}
	return r.RemoteAddr
}
