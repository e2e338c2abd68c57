package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetGetRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "reference:dno:id:1", []byte("payload"), time.Minute))

	v, ok, err := m.Get(ctx, "reference:dno:id:1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("payload"), v)
}

func TestMemory_GetMissingIsFalseNotError(t *testing.T) {
	m := NewMemory()
	v, ok, err := m.Get(context.Background(), "no-such-key")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestMemory_ExpiredEntryTreatedAsMiss(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Millisecond))

	time.Sleep(5 * time.Millisecond)

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "k", []byte("v"), 0))

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemory_InvalidatePatternEvictsByPrefix(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "search:netzentgelte:abc", []byte("1"), time.Minute))
	require.NoError(t, m.Set(ctx, "search:netzentgelte:def", []byte("2"), time.Minute))
	require.NoError(t, m.Set(ctx, "reference:dnos:all", []byte("3"), time.Minute))

	n, err := m.InvalidatePattern(ctx, "search:netzentgelte:")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, ok, _ := m.Exists(ctx, "reference:dnos:all")
	assert.True(t, ok)
}

func TestMemory_MGetMSetRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.MSet(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, time.Minute))

	out, err := m.MGet(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), out["a"])
	assert.Equal(t, []byte("2"), out["b"])
	_, ok := out["c"]
	assert.False(t, ok)
}

func TestMemory_IncrAppliesFirstSetTTL(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	v, err := m.Incr(ctx, "rate_limit:ip:1.2.3.4:202506011200", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = m.Incr(ctx, "rate_limit:ip:1.2.3.4:202506011200", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestMemory_SweepRemovesOnlyExpired(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "short", []byte("v"), time.Millisecond))
	require.NoError(t, m.Set(ctx, "long", []byte("v"), time.Hour))

	time.Sleep(5 * time.Millisecond)
	n := m.Sweep()
	assert.Equal(t, 1, n)

	_, ok, _ := m.Exists(ctx, "long")
	assert.True(t, ok)
}
