package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/masahif/scopecrawl/internal/urlnorm"
)

// RateLimiter spaces requests to the same host by at least the configured
// interval, across all workers.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	interval time.Duration
}

// NewRateLimiter creates a limiter allowing one request per host per interval.
// A non-positive interval disables limiting.
func NewRateLimiter(interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		interval: interval,
	}
}

// Wait blocks until a request to rawURL's host may proceed or ctx is done.
// Ports are ignored: every port of a host shares one limiter.
func (r *RateLimiter) Wait(ctx context.Context, rawURL string) error {
	host := urlnorm.Host(rawURL)
	if host == "" {
		return fmt.Errorf("rate limiter: no host in %q", rawURL)
	}
	return r.limiterFor(host).Wait(ctx)
}

// Hosts returns the number of hosts contacted so far
func (r *RateLimiter) Hosts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.limiters)
}

func (r *RateLimiter) limiterFor(host string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[host]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Check again in case another goroutine created it
	if limiter, exists := r.limiters[host]; exists {
		return limiter
	}

	limiter = newLimiter(r.interval)
	r.limiters[host] = limiter
	return limiter
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
