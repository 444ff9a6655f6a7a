package analytics

import (
	"sync"
	"time"
)

// viewLimiter suppresses repeat views of the same key within a window, so a
// reload storm counts once.
type viewLimiter struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
	done   chan struct{}
}

func newViewLimiter(window time.Duration) *viewLimiter {
	l := &viewLimiter{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
		done:   make(chan struct{}),
	}
	go l.cleanup()
	return l
}

// allow reports whether key has not been seen within the window and marks it seen.
func (l *viewLimiter) allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if last, ok := l.seen[key]; ok && now.Sub(last) < l.window {
		return false
	}
	l.seen[key] = now
	return true
}

func (l *viewLimiter) cleanup() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := l.now().Add(-l.window)
			l.mu.Lock()
			for key, last := range l.seen {
				if last.Before(cutoff) {
					delete(l.seen, key)
				}
			}
			l.mu.Unlock()
		case <-l.done:
			return
		}
	}
}

func (l *viewLimiter) stop() {
	close(l.done)
}
