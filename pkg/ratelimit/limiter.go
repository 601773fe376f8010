package ratelimit

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Limiter is a fixed-window rate limiter keyed by topic. Each topic
// admits at most one call per configured window; callers are expected
// to drop rejected updates rather than queue them.
type Limiter struct {
	clock   clockwork.Clock
	mu      sync.Mutex
	windows map[string]*window
}

type window struct {
	size     time.Duration
	lastPass time.Time
}

// New creates a limiter driven by the given clock.
func New(clock clockwork.Clock) *Limiter {
	return &Limiter{
		clock:   clock,
		windows: make(map[string]*window),
	}
}

// SetWindow configures the window size for a topic. A non-positive
// size removes throttling for that topic.
func (l *Limiter) SetWindow(topic string, size time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if size <= 0 {
		delete(l.windows, topic)
		return
	}

	l.windows[topic] = &window{size: size}
}

// Allow reports whether a call for topic is admitted in the current
// window. Topics without a configured window are never throttled.
func (l *Limiter) Allow(topic string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[topic]
	if !ok {
		return true
	}

	now := l.clock.Now()
	if !w.lastPass.IsZero() && now.Sub(w.lastPass) < w.size {
		return false
	}

	w.lastPass = now
	return true
}
