package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Pesokrava/movie_reviews/internal/delivery/http/request"
	"github.com/Pesokrava/movie_reviews/internal/delivery/http/response"
)

// KeyFunc selects the identity used to key a rate-limit bucket
type KeyFunc func(*http.Request) string

// KeyByTokenOrIP prefers the bearer token and falls back to the client IP
func KeyByTokenOrIP() KeyFunc {
	return func(r *http.Request) string {
		if token := request.BearerToken(r); token != "" {
			return "token:" + token
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		return "ip:" + host
	}
}

// visitor holds a single rate limiter and the last time it was seen
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter implements a per-key token-bucket rate limiter.
// Idle buckets are evicted opportunistically during lookups.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    KeyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter constructs a RateLimiter; burst values <= 0 are coerced to 1
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// getVisitor returns the limiter for key, creating it if absent.
// GC runs before the lookup so an idle bucket can be evicted even when it is the one requested.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}

	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// Handler returns a middleware that rejects requests over the limit with 429
func (rl *RateLimiter) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.getVisitor(rl.keyFn(r)).Allow() {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Retry-After", "1")
			response.Error(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
		})
	}
}
