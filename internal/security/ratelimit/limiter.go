package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a per-tenant sliding-window request limiter.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window
	maxReqs int
	span    time.Duration
	cleanup *time.Ticker
	done    chan struct{}
}

type window struct {
	hits     []time.Time
	lastSeen time.Time
}

// NewLimiter creates a limiter allowing maxRequests per span per tenant.
func NewLimiter(maxRequests int, span time.Duration) *Limiter {
	l := &Limiter{
		windows: make(map[string]*window),
		maxReqs: maxRequests,
		span:    span,
		cleanup: time.NewTicker(5 * time.Minute),
		done:    make(chan struct{}),
	}
	go l.evictStale()
	return l
}

// Allow reports whether another request from the tenant fits in the window.
// Requests without a tenant (health checks, metrics scrapes) pass through.
func (l *Limiter) Allow(tenantID string) bool {
	if tenantID == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.windows[tenantID]
	if !ok {
		w = &window{}
		l.windows[tenantID] = w
	}

	cutoff := now.Add(-l.span)
	kept := w.hits[:0]
	for _, t := range w.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.hits = kept
	w.lastSeen = now

	if len(w.hits) >= l.maxReqs {
		return false
	}
	w.hits = append(w.hits, now)
	return true
}

func (l *Limiter) evictStale() {
	for {
		select {
		case <-l.done:
			return
		case <-l.cleanup.C:
			stale := time.Now().Add(-15 * time.Minute)
			l.mu.Lock()
			for id, w := range l.windows {
				if w.lastSeen.Before(stale) {
					delete(l.windows, id)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop halts the background eviction.
func (l *Limiter) Stop() {
	l.cleanup.Stop()
	close(l.done)
}
