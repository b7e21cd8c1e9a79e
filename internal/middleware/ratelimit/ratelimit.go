// Package ratelimit throttles clients with a fixed one-minute window per IP.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	applog "asrama/internal/log"
)

const window = time.Minute

type Limiter struct {
	mu      sync.Mutex
	clients map[string]*client
	limit   int
	idle    time.Duration
	now     func() time.Time

	rejected atomic.Int64
}

type client struct {
	windowStart time.Time
	requests    int
}

type Config struct {
	RequestsPerMinute int
	// IdleTTL is how long an inactive client is remembered.
	IdleTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		IdleTTL:           10 * time.Minute,
	}
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}
	return &Limiter{
		clients: make(map[string]*client),
		limit:   config.RequestsPerMinute,
		idle:    config.IdleTTL,
		now:     time.Now,
	}
}

// Allow records a request from key and reports whether it is within the
// limit, plus the time left in the current window.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[key]
	if !ok || now.Sub(c.windowStart) >= window {
		l.clients[key] = &client{windowStart: now, requests: 1}
		return true, window
	}
	c.requests++
	left := window - now.Sub(c.windowStart)
	if c.requests > l.limit {
		l.rejected.Add(1)
		return false, left
	}
	return true, left
}

// Run forgets idle clients until ctx is done.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (l *Limiter) sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.idle)
	removed := 0
	for key, c := range l.clients {
		if c.windowStart.Before(cutoff) {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

type Metrics struct {
	Rejected int64 `json:"rejected"`
	Clients  int   `json:"clients"`
}

func (l *Limiter) Metrics() Metrics {
	l.mu.Lock()
	n := len(l.clients)
	l.mu.Unlock()
	return Metrics{Rejected: l.rejected.Load(), Clients: n}
}

// Middleware rejects clients over the limit with 429 and a Retry-After header.
func (l *Limiter) Middleware(extractIP func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			if extractIP != nil {
				ip = extractIP(r)
			}
			ok, retry := l.Allow(ip)
			if !ok {
				applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).
					WarnContext(r.Context(), "Rate limit exceeded", applog.FieldClientIP, ip, applog.FieldPath, r.URL.Path)
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds()+0.5)))
				http.Error(w, "Terlalu banyak permintaan, coba lagi sebentar lagi.", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
