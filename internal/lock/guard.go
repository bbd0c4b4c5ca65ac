package lock

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL bounds how long an abandoned lock can block a resource. Expiry
// is checked lazily on every Acquire, not by a background timer.
const DefaultTTL = 5 * time.Minute

// Guard serializes competing booking attempts against the same resource.
// Acquire does not block on contention; it fails fast and the caller retries.
type Guard interface {
	Acquire(ctx context.Context, resourceID, holderID string) bool
	Release(ctx context.Context, resourceID, holderID string)
}

type entry struct {
	holderID   string
	acquiredAt time.Time
}

// MemoryGuard is the reference single-process Guard: a mutex-protected map
// of live lock entries with lazy TTL reclamation. Construct one at startup
// and inject it; a fresh instance per test gives isolation.
type MemoryGuard struct {
	mu    sync.Mutex
	locks map[string]entry
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{
		locks: make(map[string]entry),
		ttl:   DefaultTTL,
		now:   time.Now,
	}
}

// Acquire takes the lock for resourceID. The same holder re-acquires its own
// lock idempotently, refreshing the timestamp; a different holder is refused
// while a live lock exists.
func (g *MemoryGuard) Acquire(_ context.Context, resourceID, holderID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.sweepLocked()

	if existing, ok := g.locks[resourceID]; ok {
		if existing.holderID != holderID {
			return false
		}
	}

	g.locks[resourceID] = entry{holderID: holderID, acquiredAt: g.now()}
	return true
}

// Release drops the lock. It is a no-op if the caller does not currently
// hold it, so one holder can never release another's lock.
func (g *MemoryGuard) Release(_ context.Context, resourceID, holderID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if existing, ok := g.locks[resourceID]; ok && existing.holderID == holderID {
		delete(g.locks, resourceID)
	}
}

func (g *MemoryGuard) sweepLocked() {
	cutoff := g.now().Add(-g.ttl)
	for id, e := range g.locks {
		if e.acquiredAt.Before(cutoff) {
			delete(g.locks, id)
		}
	}
}
