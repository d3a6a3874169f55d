// Package ratelimit throttles outbound requests with one token bucket per host.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/doulist-movies/internal/metrics"
)

// OtherHost buckets and labels every host past MaxHosts or outside KnownHosts.
const OtherHost = "other"

const defaultMaxHosts = 256

// Limiter manages per-host rate limits.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	overflow *rate.Limiter
	rate     rate.Limit
	burst    int
	maxHosts int
	known    []string
}

// Config holds rate limiter configuration. A non-positive RPS disables limiting.
type Config struct {
	RPS   float64
	Burst int
	// MaxHosts caps the number of per-host buckets; hosts beyond it share one.
	MaxHosts int
	// KnownHosts are domains reported under their own metric label. A host
	// matches an entry equal to it or one it is a subdomain of.
	KnownHosts []string
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	maxHosts := cfg.MaxHosts
	if maxHosts <= 0 {
		maxHosts = defaultMaxHosts
	}
	known := make([]string, 0, len(cfg.KnownHosts))
	for _, h := range cfg.KnownHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			known = append(known, h)
		}
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		overflow: rate.NewLimiter(r, burst),
		rate:     r,
		burst:    burst,
		maxHosts: maxHosts,
		known:    known,
	}
}

// Wait blocks until rawURL's host has a token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	host := hostOf(rawURL)
	limiter := l.limiterFor(host)

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", host, err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(l.label(host), waited)
	}
	return nil
}

func (l *Limiter) limiterFor(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.limiters[host]; ok {
		return limiter
	}
	if len(l.limiters) >= l.maxHosts {
		l.evictIdle()
	}
	if len(l.limiters) >= l.maxHosts {
		return l.overflow
	}
	limiter := rate.NewLimiter(l.rate, l.burst)
	l.limiters[host] = limiter
	return limiter
}

// evictIdle drops buckets that have refilled; a fresh bucket behaves the same.
// Callers hold l.mu.
func (l *Limiter) evictIdle() {
	now := time.Now()
	for host, limiter := range l.limiters {
		if limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, host)
		}
	}
}

// label maps host onto the bounded set of metric label values: the matching
// KnownHosts entry or OtherHost.
func (l *Limiter) label(host string) string {
	for _, k := range l.known {
		if host == k || strings.HasSuffix(host, "."+k) {
			return k
		}
	}
	return OtherHost
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
