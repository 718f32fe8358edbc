package player

import (
	"sync"
	"time"
)

// Gate class names used by the daemon.
const (
	GateButton      = "button"
	GatePlaybackEnd = "playback-end"
)

// Gate enforces minimum spacing between repeated actions.
//
// Each action class carries the timestamp of its last accepted occurrence.
// A class that has never been marked is always allowed. The zero interval
// disables gating for a call.
type Gate struct {
	mu   sync.Mutex
	last map[string]time.Time
}

// NewGate returns an empty Gate.
func NewGate() *Gate {
	return &Gate{last: make(map[string]time.Time)}
}

// Allow reports whether at least min has elapsed since the class was last
// marked, and marks it when so. Check and mark are atomic: two concurrent
// Allow calls inside one interval admit exactly one caller.
func (g *Gate) Allow(class string, now time.Time, min time.Duration) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if last, ok := g.last[class]; ok && min > 0 && now.Sub(last) < min {
		return false
	}
	g.last[class] = now
	return true
}

// Mark records an occurrence of the class without checking spacing.
func (g *Gate) Mark(class string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last[class] = now
}

// Remaining returns how long until the class is allowed again, or zero if
// it is allowed now.
func (g *Gate) Remaining(class string, now time.Time, min time.Duration) time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.last[class]
	if !ok || min <= 0 {
		return 0
	}
	remaining := min - now.Sub(last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset forgets all marks.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.last = make(map[string]time.Time)
}
