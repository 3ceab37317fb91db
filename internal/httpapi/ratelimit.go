package httpapi

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// FixedWindowLimiter allows up to limit requests per client per window.
type FixedWindowLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	clients   map[string]*window
	lastSweep time.Time
	now       func() time.Time
}

// NewFixedWindowLimiter creates a limiter of limit requests per window.
func NewFixedWindowLimiter(limit int, per time.Duration) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		limit:   limit,
		window:  per,
		clients: make(map[string]*window),
		now:     time.Now,
	}
}

func (l *FixedWindowLimiter) Limit() int { return l.limit }

// Allow records one request from client. It returns the requests left in the
// current window, when the window resets, and whether the request is allowed.
func (l *FixedWindowLimiter) Allow(client string) (remaining int, reset time.Time, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	w, exists := l.clients[client]
	if !exists || now.Sub(w.start) >= l.window {
		w = &window{start: now}
		l.clients[client] = w
	}
	reset = w.start.Add(l.window)
	if w.count >= l.limit {
		return 0, reset, false
	}
	w.count++
	return l.limit - w.count, reset, true
}

// sweep drops finished windows at most once per window. Caller holds mu.
func (l *FixedWindowLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for client, w := range l.clients {
		if now.Sub(w.start) >= l.window {
			delete(l.clients, client)
		}
	}
}

func (l *FixedWindowLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
