// Package circuitbreaker stops a client from hammering a venue that keeps
// failing. It never retries; it only refuses calls while open.
package circuitbreaker

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrOpen is returned by callers that were refused by an open breaker.
var ErrOpen = errors.New("circuit breaker is open")

type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config sets when the breaker trips and how it recovers.
type Config struct {
	// FailThreshold consecutive failures open the breaker.
	FailThreshold int `json:"fail_threshold"`
	// SuccessThreshold consecutive half-open successes close it again.
	SuccessThreshold int `json:"success_threshold"`
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration `json:"cooldown"`
}

// DefaultConfig trips after 5 straight failures and probes after 30s.
func DefaultConfig() Config {
	return Config{FailThreshold: 5, SuccessThreshold: 1, Cooldown: 30 * time.Second}
}

// Breaker is safe for concurrent use.
type Breaker struct {
	config Config
	now    func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time

	metrics Metrics
}

// Metrics counts what the breaker has seen.
type Metrics struct {
	allowed      atomic.Int64
	rejected     atomic.Int64
	failures     atomic.Int64
	stateChanges atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	AllowedRequests  int64
	RejectedRequests int64
	Failures         int64
	StateChanges     int64
	CurrentState     string
}

// New creates a closed breaker. Thresholds below 1 are raised to 1.
func New(config Config) *Breaker {
	config.FailThreshold = max(config.FailThreshold, 1)
	config.SuccessThreshold = max(config.SuccessThreshold, 1)
	return &Breaker{config: config, now: time.Now}
}

// Allow reports whether a call may go out. An open breaker whose cooldown
// has elapsed moves to half-open and lets calls through as probes.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		if b.now().Sub(b.openedAt) < b.config.Cooldown {
			b.metrics.rejected.Add(1)
			return false
		}
		b.transition(StateHalfOpen)
	}
	b.metrics.allowed.Add(1)
	return true
}

// Record feeds the outcome of an allowed call back into the breaker.
func (b *Breaker) Record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !success {
		b.metrics.failures.Add(1)
	}

	switch b.state {
	case StateClosed:
		if success {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.config.FailThreshold {
			b.trip()
		}
	case StateHalfOpen:
		if !success {
			b.trip()
			return
		}
		b.successes++
		if b.successes >= b.config.SuccessThreshold {
			b.transition(StateClosed)
		}
	case StateOpen:
		// A call allowed before the breaker tripped; its outcome is stale.
	}
}

func (b *Breaker) trip() {
	b.openedAt = b.now()
	b.transition(StateOpen)
}

func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	b.state = to
	b.failures = 0
	b.successes = 0
	b.metrics.stateChanges.Add(1)
}

// State returns the current state without advancing it.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the breaker and clears its counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(StateClosed)
	b.failures = 0
	b.successes = 0
}

// Failures returns the current run of consecutive failures.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) Metrics() MetricsSnapshot {
	return MetricsSnapshot{
		AllowedRequests:  b.metrics.allowed.Load(),
		RejectedRequests: b.metrics.rejected.Load(),
		Failures:         b.metrics.failures.Load(),
		StateChanges:     b.metrics.stateChanges.Load(),
		CurrentState:     b.State().String(),
	}
}
