package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Bucket is a token bucket holding up to requests tokens that refill evenly
// over period. It suits venues whose budget decays continuously rather than
// resetting per window.
type Bucket struct {
	limiter  *rate.Limiter
	requests int
	period   time.Duration
	metrics  *Metrics
}

// NewBucket creates a token bucket allowing a burst of requests that refills over period.
func NewBucket(requests int, period time.Duration) *Bucket {
	return &Bucket{
		limiter:  rate.NewLimiter(perPeriod(requests, period), requests),
		requests: requests,
		period:   period,
		metrics:  &Metrics{},
	}
}

func perPeriod(requests int, period time.Duration) rate.Limit {
	return rate.Limit(float64(requests) / period.Seconds())
}

// Wait blocks until the bucket allows a request or the context is cancelled.
func (b *Bucket) Wait(ctx context.Context) error {
	err := b.limiter.Wait(ctx)
	b.metrics.record(err == nil)
	return err
}

// Acquire blocks until a token is available.
func (b *Bucket) Acquire() {
	_ = b.Wait(context.Background())
}

// Allow returns true if the bucket permits a request immediately.
func (b *Bucket) Allow() bool {
	allowed := b.limiter.Allow()
	b.metrics.record(allowed)
	return allowed
}

// Reserve returns a reservation allowing future planning of request timing.
func (b *Bucket) Reserve() *rate.Reservation {
	return b.limiter.Reserve()
}

// SetLimit updates the refill rate to requests per period.
func (b *Bucket) SetLimit(requests int, period time.Duration) {
	b.requests = requests
	b.period = period
	b.limiter.SetLimit(perPeriod(requests, period))
}

// Metrics returns a snapshot of the current rate limiter statistics.
func (b *Bucket) Metrics() MetricsSnapshot {
	return b.metrics.snapshot()
}
