package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig bounds credential attempts per client address
type RateLimitConfig struct {
	// RequestsPerWindow is the sustained number of attempts per window
	RequestsPerWindow int `yaml:"requests_per_window"`
	// WindowDuration is the window RequestsPerWindow refers to
	WindowDuration time.Duration `yaml:"window"`
	// BurstSize is how far a quiet client may exceed the sustained rate
	BurstSize int `yaml:"burst"`
}

// CredentialRateLimitConfig bounds register and login attempts per client address
func CredentialRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: 20,
		WindowDuration:    time.Minute,
		BurstSize:         5,
	}
}

// RateLimiter keeps one x/time/rate token bucket per client key
type RateLimiter struct {
	config RateLimitConfig
	limit  rate.Limit
	burst  int
	now    func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter. An incomplete config falls back to
// CredentialRateLimitConfig.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.RequestsPerWindow <= 0 || config.WindowDuration <= 0 {
		config = CredentialRateLimitConfig()
	}
	return &RateLimiter{
		config:  config,
		limit:   rate.Limit(float64(config.RequestsPerWindow) / config.WindowDuration.Seconds()),
		burst:   config.RequestsPerWindow + config.BurstSize,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// lookup returns the bucket for key, creating a full one on first use.
// Callers hold rl.mu.
func (rl *RateLimiter) lookup(key string, now time.Time) *client {
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c
}

// Allow takes one token for key and reports whether one was available
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	return rl.lookup(key, now).limiter.AllowN(now, 1)
}

// Remaining returns the number of whole tokens left for key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[key]
	if !ok {
		return rl.burst
	}
	return int(math.Max(0, c.limiter.TokensAt(rl.now())))
}

// retryAfter is how long key must wait for its next token, at least one second
func (rl *RateLimiter) retryAfter(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	wait := time.Second
	if c, ok := rl.clients[key]; ok {
		missing := 1 - c.limiter.TokensAt(rl.now())
		if d := time.Duration(missing / float64(rl.limit) * float64(time.Second)); d > wait {
			wait = d
		}
	}
	return wait
}

// Cleanup forgets clients idle for more than two windows
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * rl.config.WindowDuration)
	for key, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// Run calls Cleanup once per window until ctx is done
func (rl *RateLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(rl.config.WindowDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Cleanup()
		case <-ctx.Done():
			return nil
		}
	}
}

// Handler limits requests by client address and answers 429 when a client
// runs out of tokens
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	limit := strconv.Itoa(rl.config.RequestsPerWindow)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + clientIP(r)
		h := w.Header()
		h.Set("X-RateLimit-Limit", limit)

		if !rl.Allow(key) {
			seconds := int(math.Ceil(rl.retryAfter(key).Seconds()))
			h.Set("Retry-After", strconv.Itoa(seconds))
			h.Set("X-RateLimit-Remaining", "0")
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}` + "\n"))
			return
		}

		h.Set("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining(key)))
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then the peer address
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
