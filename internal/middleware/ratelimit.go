package middleware

import (
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sizefit/sizefit/pkg/metrics"
)

// RateLimiter implements token-bucket rate limiting per client IP.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]*bucket
	rate   float64
	burst  float64
	ttl    time.Duration
}

type bucket struct {
	tokens  float64
	lastRef time.Time
}

// NewRateLimiter allows rate requests per second with the given burst.
func NewRateLimiter(rate, burst int) *RateLimiter {
	rl := &RateLimiter{
		limits: make(map[string]*bucket),
		rate:   float64(rate),
		burst:  float64(burst),
		ttl:    5 * time.Minute,
	}
	go rl.cleanup()
	return rl
}

// Allow reports whether a request from ip may proceed now.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.limits[ip]
	if !ok {
		rl.limits[ip] = &bucket{tokens: rl.burst - 1, lastRef: now}
		return true
	}

	b.tokens += now.Sub(b.lastRef).Seconds() * rl.rate
	b.lastRef = now
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// cleanup drops buckets that have been idle past the TTL.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, b := range rl.limits {
			if now.Sub(b.lastRef) > rl.ttl {
				delete(rl.limits, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit returns middleware enforcing per-IP limits.
func RateLimit(rate, burst int) func(http.Handler) http.Handler {
	rl := NewRateLimiter(rate, burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !rl.Allow(ip) {
				log.Printf("Rate limit exceeded for IP: %s", ip)
				metrics.RecordRateLimitExceeded(ipPrefix(ip))
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"Rate limit exceeded"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the caller address, honoring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.IndexAny(xff, ", "); idx != -1 {
			return xff[:idx]
		}
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

// ipPrefix reduces an address to its first octet for privacy-preserving
// metrics labels.
func ipPrefix(ip string) string {
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	if idx := strings.Index(ip, "."); idx != -1 {
		return ip[:idx] + ".0.0.0"
	}
	if idx := strings.Index(ip, ":"); idx != -1 {
		return ip[:idx] + ":"
	}
	return "unknown"
}
