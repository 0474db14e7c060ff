package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/robertddewey/ChatPop-sub000/internal/metrics"
)

// RateLimit defines limits for an endpoint pattern.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// RateLimiter implements per-IP sliding window rate limiting backed by
// the shared Redis connection. Redis being down fails open: the cache
// layer is already degraded in that case and rate limiting is not worth
// rejecting traffic over.
type RateLimiter struct {
	client *redis.Client
	limits map[string]RateLimit
	logger zerolog.Logger
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(client *redis.Client, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		logger: logger,
		limits: map[string]RateLimit{
			"POST /rooms":    {10, time.Hour},
			"GET /rooms/":    {120, time.Minute},
			"POST /rooms/":   {30, time.Minute},
			"DELETE /rooms/": {30, time.Minute},
			"POST /users/":   {60, time.Minute},
			"DELETE /users/": {60, time.Minute},
		},
	}
}

// RealIP extracts the real client IP from headers or connection.
func RealIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// matchLimit finds the limit for a request, longest prefix wins.
func (rl *RateLimiter) matchLimit(r *http.Request) (string, RateLimit, bool) {
	var bestKey string
	var best RateLimit
	for pattern, limit := range rl.limits {
		parts := strings.SplitN(pattern, " ", 2)
		if parts[0] != r.Method {
			continue
		}
		if !strings.HasPrefix(r.URL.Path, parts[1]) {
			continue
		}
		if len(parts[1]) > len(bestKey) {
			bestKey = parts[1]
			best = limit
		}
	}
	return bestKey, best, bestKey != ""
}

// allow counts the request against its window and reports whether it is
// under the limit.
func (rl *RateLimiter) allow(r *http.Request, endpoint string, limit RateLimit) bool {
	ctx := r.Context()
	now := time.Now()
	key := fmt.Sprintf("ratelimit:%s:%s:%d", endpoint, RealIP(r), now.Unix()/int64(limit.Window.Seconds()))

	pipe := rl.client.Pipeline()
	countCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, limit.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		rl.logger.Warn().Err(err).Msg("rate limit check failed, allowing request")
		return true
	}

	return countCmd.Val() <= int64(limit.Requests)
}

// Middleware returns the rate limiting middleware.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint, limit, ok := rl.matchLimit(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.allow(r, endpoint, limit) {
			metrics.RateLimitHits.WithLabelValues(endpoint).Inc()
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(limit.Window.Seconds())))
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}
