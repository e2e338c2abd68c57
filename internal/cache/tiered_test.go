package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestTiered_GetFallsThroughToL2AndWarmsL1(t *testing.T) {
	l1 := NewMemory()
	l2 := NewMemory() // a second Memory stands in for Redis here
	tc := NewTiered(l1, l2, arbor.NewLogger(), time.Minute)
	ctx := context.Background()

	require.NoError(t, l2.Set(ctx, "k", []byte("v"), time.Minute))

	v, ok, err := tc.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)

	l1v, l1ok, _ := l1.Get(ctx, "k")
	assert.True(t, l1ok, "l1 should be warmed from the l2 hit")
	assert.Equal(t, []byte("v"), l1v)
}

func TestTiered_SetWritesBothTiers(t *testing.T) {
	l1 := NewMemory()
	l2 := NewMemory()
	tc := NewTiered(l1, l2, arbor.NewLogger(), time.Minute)
	ctx := context.Background()

	require.NoError(t, tc.Set(ctx, "k", []byte("v"), time.Minute))

	_, ok1, _ := l1.Get(ctx, "k")
	_, ok2, _ := l2.Get(ctx, "k")
	assert.True(t, ok1)
	assert.True(t, ok2)
}

func TestTiered_NilL2BehavesAsL1Only(t *testing.T) {
	tc := NewTiered(NewMemory(), nil, arbor.NewLogger(), time.Minute)
	ctx := context.Background()

	require.NoError(t, tc.Set(ctx, "k", []byte("v"), time.Minute))
	v, ok, err := tc.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestTiered_InvalidatePatternHitsBothTiers(t *testing.T) {
	l1 := NewMemory()
	l2 := NewMemory()
	tc := NewTiered(l1, l2, arbor.NewLogger(), time.Minute)
	ctx := context.Background()

	require.NoError(t, tc.Set(ctx, "search:netzentgelte:abc", []byte("1"), time.Minute))

	n, err := tc.InvalidatePattern(ctx, "search:netzentgelte:")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, ok1, _ := l1.Get(ctx, "search:netzentgelte:abc")
	_, ok2, _ := l2.Get(ctx, "search:netzentgelte:abc")
	assert.False(t, ok1)
	assert.False(t, ok2)
}

func TestTiered_CacheNonAuthoritative(t *testing.T) {
	// Universal property: a read path that succeeds with cache present must
	// also succeed (by falling through) with cache pre-cleared.
	l2 := NewMemory()
	ctx := context.Background()
	require.NoError(t, l2.Set(ctx, "k", []byte("v"), time.Minute))

	tc := NewTiered(NewMemory(), l2, arbor.NewLogger(), time.Minute)
	v1, ok1, err := tc.Get(ctx, "k")
	require.NoError(t, err)

	tc2 := NewTiered(NewMemory(), l2, arbor.NewLogger(), time.Minute) // fresh L1, same L2
	v2, ok2, err := tc2.Get(ctx, "k")
	require.NoError(t, err)

	assert.Equal(t, ok1, ok2)
	assert.Equal(t, v1, v2)
}

// TestTiered_L1WarmDoesNotOutliveL2TTL covers Testable Property #1
// (idempotent cache: after t+ε, get(K) == None). An L1 warm from an L2 hit
// must not install a never-expiring L1 copy, or the key would keep being
// served from L1 forever after L2's own TTL elapses.
func TestTiered_L1WarmDoesNotOutliveL2TTL(t *testing.T) {
	l1 := NewMemory()
	l2 := NewMemory()
	tc := NewTiered(l1, l2, arbor.NewLogger(), 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, l2.Set(ctx, "k", []byte("v"), time.Hour))

	_, ok, err := tc.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)

	l1.mu.Lock()
	entry, ok := l1.entries[keyPrefix+"k"]
	l1.mu.Unlock()
	require.True(t, ok)
	assert.False(t, entry.expiresAt.IsZero(), "l1-warmed entry must carry a bounded expiry, not \"never expires\"")

	time.Sleep(20 * time.Millisecond)

	_, l1ok, _ := l1.Get(ctx, "k")
	assert.False(t, l1ok, "l1-warmed entry must expire on its own bounded ttl")
}

func TestNewTiered_NonPositiveWarmTTLFallsBackToDefault(t *testing.T) {
	tc := NewTiered(NewMemory(), NewMemory(), arbor.NewLogger(), 0)
	assert.Equal(t, defaultL1WarmTTL, tc.l1WarmTTL)
}
