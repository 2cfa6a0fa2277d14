package circuitbreaker

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newBreaker(fail, success int) (*Breaker, *clock) {
	c := &clock{t: time.Unix(1700000000, 0)}
	b := New(Config{FailThreshold: fail, SuccessThreshold: success, Cooldown: time.Minute})
	b.now = c.now
	return b, c
}

func TestState_String(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  string
	}{
		{"closed", StateClosed, "CLOSED"},
		{"open", StateOpen, "OPEN"},
		{"half_open", StateHalfOpen, "HALF_OPEN"},
		{"unknown", State(9), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestNew_ClampsThresholds(t *testing.T) {
	b := New(Config{})
	assert.Equal(t, 1, b.config.FailThreshold)
	assert.Equal(t, 1, b.config.SuccessThreshold)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newBreaker(3, 1)

	b.Record(false)
	b.Record(false)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 2, b.Failures())

	b.Record(false)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := newBreaker(3, 1)

	b.Record(false)
	b.Record(false)
	b.Record(true)
	assert.Equal(t, 0, b.Failures())

	b.Record(false)
	b.Record(false)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_Recovery(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []bool
		want     State
	}{
		{"probe succeeds", []bool{true, true}, StateClosed},
		{"probe fails", []bool{false}, StateOpen},
		{"partial recovery", []bool{true}, StateHalfOpen},
		{"fails after a success", []bool{true, false}, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, c := newBreaker(1, 2)
			b.Record(false)
			assert.False(t, b.Allow())

			c.advance(time.Minute)
			assert.True(t, b.Allow())
			assert.Equal(t, StateHalfOpen, b.State())

			for _, ok := range tt.outcomes {
				b.Record(ok)
			}
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestBreaker_StaleOutcomeWhileOpen(t *testing.T) {
	b, _ := newBreaker(1, 1)
	b.Record(false)
	b.Record(true)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := newBreaker(1, 1)
	b.Record(false)
	assert.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Failures())
	assert.True(t, b.Allow())
}

func TestBreaker_Metrics(t *testing.T) {
	b, _ := newBreaker(2, 1)

	assert.True(t, b.Allow())
	b.Record(false)
	assert.True(t, b.Allow())
	b.Record(false)
	assert.False(t, b.Allow())

	m := b.Metrics()
	assert.Equal(t, int64(2), m.AllowedRequests)
	assert.Equal(t, int64(1), m.RejectedRequests)
	assert.Equal(t, int64(2), m.Failures)
	assert.Equal(t, int64(1), m.StateChanges)
	assert.Equal(t, "OPEN", m.CurrentState)
}
