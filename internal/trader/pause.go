package trader

import "sync"

// PauseGate is the shared pause flag between the control plane (writer) and
// the scheduler's wait loop (reader). It is an explicitly owned synchronized
// cell handed to both sides, not a process global. It lives for the lifetime
// of the controller and is not persisted.
type PauseGate struct {
	mu     sync.RWMutex
	paused bool
}

// NewPauseGate creates a gate in the running (not paused) state.
func NewPauseGate() *PauseGate {
	return &PauseGate{}
}

// Pause sets the gate to paused and reports whether the state changed.
func (g *PauseGate) Pause() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused {
		return false
	}
	g.paused = true
	return true
}

// Resume clears the pause and reports whether the state changed.
func (g *PauseGate) Resume() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.paused {
		return false
	}
	g.paused = false
	return true
}

// Paused reports the current state.
func (g *PauseGate) Paused() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.paused
}
