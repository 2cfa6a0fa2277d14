// Package ratelimit gates outbound requests so that each exchange client
// stays inside its venue's published request budget.
package ratelimit

import (
	"context"
	"sync/atomic"
)

// Limiter is implemented by every gate a client can own.
type Limiter interface {
	// Wait blocks until a permit is available or ctx is done.
	Wait(ctx context.Context) error
	// Acquire blocks until a permit is available. It never fails.
	Acquire()
	// Allow takes a permit only if one is available right now.
	Allow() bool
	// Metrics returns a snapshot of the limiter's counters.
	Metrics() MetricsSnapshot
}

// Metrics tracks statistics about rate limiter usage.
type Metrics struct {
	totalRequests   atomic.Int64
	allowedRequests atomic.Int64
	deniedRequests  atomic.Int64
}

func (m *Metrics) record(allowed bool) {
	m.totalRequests.Add(1)
	if allowed {
		m.allowedRequests.Add(1)
	} else {
		m.deniedRequests.Add(1)
	}
}

func (m *Metrics) snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		TotalRequests:   m.totalRequests.Load(),
		AllowedRequests: m.allowedRequests.Load(),
		DeniedRequests:  m.deniedRequests.Load(),
	}
}

// MetricsSnapshot is a point-in-time capture of rate limiter statistics.
type MetricsSnapshot struct {
	// TotalRequests is the total number of rate limit checks performed.
	TotalRequests int64
	// AllowedRequests is the number of requests that were allowed.
	AllowedRequests int64
	// DeniedRequests counts refused Allow calls and cancelled waits.
	DeniedRequests int64
}
