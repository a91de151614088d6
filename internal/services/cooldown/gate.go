package cooldown

import (
	"sync"
	"time"
)

// Gate rate-limits new recordings to one per window after a successful dispatch.
// Only a confirmed delivery moves the gate; a failed send leaves it as it was.
type Gate struct {
	mu          sync.RWMutex
	window      time.Duration
	lastSuccess time.Time
	hasSuccess  bool
}

// NewGate creates an open gate with the given window
func NewGate(window time.Duration) *Gate {
	return &Gate{window: window}
}

// IsOpen reports whether a new session may start at now
func (g *Gate) IsOpen(now time.Time) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.hasSuccess {
		return true
	}
	return now.Sub(g.lastSuccess) > g.window
}

// RecordSuccess starts a new cooldown window at now
func (g *Gate) RecordSuccess(now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.lastSuccess = now
	g.hasSuccess = true
}

// LastSuccess returns the time of the last confirmed dispatch
func (g *Gate) LastSuccess() (time.Time, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.lastSuccess, g.hasSuccess
}

// OpensAt returns the first instant after which the gate is open again
func (g *Gate) OpensAt() time.Time {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.hasSuccess {
		return time.Time{}
	}
	return g.lastSuccess.Add(g.window)
}

// Window returns the cooldown window length
func (g *Gate) Window() time.Duration {
	return g.window
}
