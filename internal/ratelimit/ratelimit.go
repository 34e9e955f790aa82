// Package ratelimit throttles API clients with one token bucket per key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an unused key keeps its bucket.
const DefaultIdleTTL = 10 * time.Minute

// Config configures a Limiter.
type Config struct {
	RPS     float64       // sustained requests per second; <= 0 disables limiting
	Burst   int           // tokens available at once; at least 1
	IdleTTL time.Duration // eviction age for unused keys; 0 uses DefaultIdleTTL
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Limiter hands out tokens per key. Buckets for keys that stay idle longer
// than the TTL are dropped by a background janitor until Close is called.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	quit      chan struct{}
	closeOnce sync.Once
}

// New creates a limiter and starts its janitor.
func New(cfg Config) *Limiter {
	l := newLimiter(cfg, time.Now)
	go l.janitor()
	return l
}

func newLimiter(cfg Config, now func() time.Time) *Limiter {
	limit := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		limit = rate.Inf
	}
	ttl := cfg.IdleTTL
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Limiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		burst:   max(cfg.Burst, 1),
		idleTTL: ttl,
		now:     now,
		quit:    make(chan struct{}),
	}
}

// Take spends one token for key. When the bucket is empty nothing is spent
// and the returned duration says how long until a token is available.
func (l *Limiter) Take(key string) (retryAfter time.Duration, ok bool) {
	now := l.now()
	lim := l.bucketFor(key, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return l.idleTTL, false
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return d, false
	}
	return 0, true
}

func (l *Limiter) bucketFor(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim
}

// Keys returns the number of tracked keys.
func (l *Limiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Evict drops buckets idle for longer than the TTL and reports how many.
func (l *Limiter) Evict() int {
	cutoff := l.now().Add(-l.idleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			n++
		}
	}
	return n
}

// Close stops the janitor. It is safe to call more than once.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() { close(l.quit) })
}

func (l *Limiter) janitor() {
	t := time.NewTicker(l.idleTTL / 2)
	defer t.Stop()
	for {
		select {
		case <-l.quit:
			return
		case <-t.C:
			l.Evict()
		}
	}
}
