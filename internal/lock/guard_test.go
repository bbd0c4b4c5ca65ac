package lock

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuardContention(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	require.True(t, g.Acquire(ctx, "session:1", "alice"))
	assert.False(t, g.Acquire(ctx, "session:1", "bob"))

	// A different resource is unaffected.
	assert.True(t, g.Acquire(ctx, "session:2", "bob"))

	g.Release(ctx, "session:1", "alice")
	assert.True(t, g.Acquire(ctx, "session:1", "bob"))
}

func TestMemoryGuardIdempotentReacquire(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	require.True(t, g.Acquire(ctx, "session:1", "alice"))
	assert.True(t, g.Acquire(ctx, "session:1", "alice"))
	assert.False(t, g.Acquire(ctx, "session:1", "bob"))
}

func TestMemoryGuardReleaseByNonHolder(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	require.True(t, g.Acquire(ctx, "session:1", "alice"))

	g.Release(ctx, "session:1", "bob")
	assert.False(t, g.Acquire(ctx, "session:1", "bob"))

	// Releasing a lock nobody holds is harmless too.
	g.Release(ctx, "session:9", "bob")
}

func TestMemoryGuardTTLExpiry(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return current }

	require.True(t, g.Acquire(ctx, "session:1", "alice"))
	assert.False(t, g.Acquire(ctx, "session:1", "bob"))

	// Just inside the TTL the lock still holds.
	current = current.Add(DefaultTTL - time.Second)
	assert.False(t, g.Acquire(ctx, "session:1", "bob"))

	// Past the TTL the abandoned lock is reclaimed lazily.
	current = current.Add(2 * time.Second)
	assert.True(t, g.Acquire(ctx, "session:1", "bob"))
}

func TestMemoryGuardReacquireRefreshesTTL(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	current := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return current }

	require.True(t, g.Acquire(ctx, "session:1", "alice"))

	current = current.Add(DefaultTTL - time.Second)
	require.True(t, g.Acquire(ctx, "session:1", "alice"))

	// The refresh pushed expiry out, so the original deadline has no effect.
	current = current.Add(2 * time.Second)
	assert.False(t, g.Acquire(ctx, "session:1", "bob"))
}

func TestMemoryGuardConcurrentAcquire(t *testing.T) {
	g := NewMemoryGuard()
	ctx := context.Background()

	const holders = 50
	var won int32
	var wg sync.WaitGroup

	for i := 0; i < holders; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if g.Acquire(ctx, "session:1", "student-"+strconv.Itoa(id)) {
				atomic.AddInt32(&won, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), won)
}
