package navigation

import "sync"

// State is the shell's record of the embedded surface's position. Owned
// exclusively by the shell; the embedded content never mutates it directly.
type State struct {
	CurrentURL string `json:"current_url"`
	CanGoBack  bool   `json:"can_go_back"`
}

// Tracker records navigation state from completed-navigation events. It is
// the sole writer of State and the sole input to the host's back-control.
type Tracker struct {
	mu    sync.RWMutex
	state State
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Update records a completed navigation.
func (t *Tracker) Update(currentURL string, canGoBack bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = State{CurrentURL: currentURL, CanGoBack: canGoBack}
}

// State returns a copy of the current navigation state.
func (t *Tracker) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// CanGoBack reports whether the surface has in-surface history to return
// to. A back action goes to the surface when true; only when false does it
// fall through to an app-exit confirmation.
func (t *Tracker) CanGoBack() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state.CanGoBack
}
