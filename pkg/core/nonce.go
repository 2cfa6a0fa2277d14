package core

import (
	"sync"
	"time"
)

// Nonce yields strictly increasing values seeded from the wall clock in
// microseconds. It is safe for concurrent use.
type Nonce struct {
	mu   sync.Mutex
	last int64
}

// Next returns a value greater than every value previously returned.
func (n *Nonce) Next() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := time.Now().UnixMicro()
	if now <= n.last {
		now = n.last + 1
	}
	n.last = now
	return now
}
