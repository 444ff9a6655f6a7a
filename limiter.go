package folio

import (
	"sync"
	"time"
)

// TokenLimiter rate-limits failed revalidation attempts per IP address.
type TokenLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	max      int
	window   time.Duration
	done     chan struct{}
}

// NewTokenLimiter creates a TokenLimiter that allows max failures per window.
func NewTokenLimiter(max int, window time.Duration) *TokenLimiter {
	l := &TokenLimiter{
		failures: make(map[string][]time.Time),
		max:      max,
		window:   window,
		done:     make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func (l *TokenLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-l.window)
			l.mu.Lock()
			for ip := range l.failures {
				if kept := recent(l.failures[ip], cutoff); len(kept) == 0 {
					delete(l.failures, ip)
				} else {
					l.failures[ip] = kept
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

// Close stops the background cleanup.
func (l *TokenLimiter) Close() {
	close(l.done)
}

func recent(hits []time.Time, cutoff time.Time) []time.Time {
	kept := hits[:0]
	for _, t := range hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}

// Check returns true if the IP has not exceeded the failure limit.
// It does not record anything; call Record after a failed attempt.
func (l *TokenLimiter) Check(ip string) bool {
	cutoff := time.Now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := recent(l.failures[ip], cutoff)
	l.failures[ip] = kept
	return len(kept) < l.max
}

// Record registers a failed attempt for the given IP.
func (l *TokenLimiter) Record(ip string) {
	l.mu.Lock()
	l.failures[ip] = append(l.failures[ip], time.Now())
	l.mu.Unlock()
}
