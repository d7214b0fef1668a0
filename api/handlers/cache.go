package handlers

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/manaskarra/pdash/api/dataset"
)

// memoCache memoizes one computed payload per snapshot. The entry is
// invalidated when the snapshot is swapped by a refresh or when the TTL
// lapses, whichever comes first, so a restarted clock in tests behaves
// predictably.
type memoCache[T any] struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu    sync.Mutex
	valid bool
	at    time.Time
	snap  *dataset.Snapshot
	val   T
}

func (c *memoCache[T]) init(clock clockwork.Clock, ttl time.Duration) {
	c.clock = clock
	c.ttl = ttl
}

// get returns the cached value for snap, computing and storing it when
// missing or stale.
func (c *memoCache[T]) get(snap *dataset.Snapshot, compute func() T) T {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.valid && c.snap == snap && c.clock.Since(c.at) < c.ttl {
		return c.val
	}

	c.val = compute()
	c.at = c.clock.Now()
	c.snap = snap
	c.valid = true
	return c.val
}
