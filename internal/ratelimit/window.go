package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window admits at most limit acquisitions in any rolling interval of the
// configured length. Callers over the limit wait for the oldest counted
// acquisition to age out; no ordering between waiters is promised.
type Window struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	stamps  []time.Time
	now     func() time.Time
	metrics *Metrics
}

// NewWindow creates a sliding-window limiter allowing limit requests per window.
func NewWindow(limit int, window time.Duration) *Window {
	if limit < 1 {
		limit = 1
	}
	return &Window{
		limit:   limit,
		window:  window,
		stamps:  make([]time.Time, 0, limit),
		now:     time.Now,
		metrics: &Metrics{},
	}
}

// Wait blocks until a permit is available or the context is cancelled.
func (w *Window) Wait(ctx context.Context) error {
	for {
		delay, ok := w.take()
		if ok {
			w.metrics.record(true)
			return nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			w.metrics.record(false)
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Acquire blocks until a permit is available.
func (w *Window) Acquire() {
	_ = w.Wait(context.Background())
}

// Allow returns true if a permit was taken without waiting.
func (w *Window) Allow() bool {
	_, ok := w.take()
	w.metrics.record(ok)
	return ok
}

// take records an acquisition if the window has room, otherwise it reports
// how long until the oldest stamp leaves the window. The clock is read under
// the lock so stamps are appended in time order.
func (w *Window) take() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	expired := 0
	for expired < len(w.stamps) && now.Sub(w.stamps[expired]) >= w.window {
		expired++
	}
	if expired > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[expired:]...)
	}

	if len(w.stamps) < w.limit {
		w.stamps = append(w.stamps, now)
		return 0, true
	}
	return w.window - now.Sub(w.stamps[0]), false
}

// Limit returns the configured requests per window.
func (w *Window) Limit() (int, time.Duration) {
	return w.limit, w.window
}

// Metrics returns a snapshot of the current rate limiter statistics.
func (w *Window) Metrics() MetricsSnapshot {
	return w.metrics.snapshot()
}
