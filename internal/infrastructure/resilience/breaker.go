// Package resilience provides a circuit breaker for the shell's background
// network calls, so a flapping push endpoint never turns fire-and-forget
// registration into a stream of doomed requests.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is rejecting requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Counts holds the breaker's request statistics.
type Counts struct {
	Requests            uint32
	TotalFailures       uint32
	ConsecutiveFailures uint32
}

// Settings configures breaker behavior.
type Settings struct {
	// Timeout is the open-state period before a half-open probe.
	Timeout time.Duration
	// ReadyToTrip is consulted after each failure in closed state.
	ReadyToTrip func(counts Counts) bool
}

// Breaker implements the circuit breaker pattern for a single dependency.
type Breaker struct {
	name     string
	settings Settings

	mu       sync.Mutex
	state    State
	counts   Counts
	openedAt time.Time
}

// New creates a breaker. Zero settings get conservative defaults.
func New(name string, settings Settings) *Breaker {
	if settings.Timeout == 0 {
		settings.Timeout = 60 * time.Second
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = func(counts Counts) bool {
			return counts.ConsecutiveFailures > 5
		}
	}
	return &Breaker{name: name, settings: settings, state: StateClosed}
}

// Name returns the breaker's name.
func (b *Breaker) Name() string { return b.name }

// State returns the current state, accounting for open-state expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.currentState(time.Now())
}

// Execute runs fn if the breaker accepts it and records the outcome.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	now := time.Now()
	state := b.currentState(now)
	if state == StateOpen {
		b.mu.Unlock()
		return ErrCircuitOpen
	}
	b.counts.Requests++
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.onSuccess()
	} else {
		b.onFailure(now)
	}
	return err
}

func (b *Breaker) currentState(now time.Time) State {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.settings.Timeout {
		b.state = StateHalfOpen
	}
	return b.state
}

func (b *Breaker) onSuccess() {
	b.counts.ConsecutiveFailures = 0
	if b.state == StateHalfOpen {
		b.state = StateClosed
		b.counts = Counts{}
	}
}

func (b *Breaker) onFailure(now time.Time) {
	b.counts.TotalFailures++
	b.counts.ConsecutiveFailures++
	if b.state == StateHalfOpen || b.settings.ReadyToTrip(b.counts) {
		b.state = StateOpen
		b.openedAt = now
	}
}
