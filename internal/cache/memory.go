// Package cache implements the two-tier (in-process L1, Redis L2) Cache
// Tier from spec.md §4.8: TTL-discipline get/set, bulk get/set, atomic
// increment with first-set TTL, and prefix-based invalidation. Every key
// passed to a Cache is a domain key; implementations add the "dno:" prefix
// internally.
package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/dno-gatherer/internal/interfaces"
)

const keyPrefix = "dno:"

// Memory is the in-process L1 tier: a TTL map guarded by a mutex. Expired
// entries are dropped when read, or all at once by an explicit Sweep call.
// It satisfies interfaces.Cache on its own for standalone use, and is
// composed as the fast tier of Tiered.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

var _ interfaces.Cache = (*Memory)(nil)

// NewMemory constructs an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(key)
}

// getLocked assumes m.mu is held. A read past its TTL is treated the same
// as absence and the stale entry is opportunistically deleted.
func (m *Memory) getLocked(key string) ([]byte, bool, error) {
	e, ok := m.entries[keyPrefix+key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.entries, keyPrefix+key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(key, value, ttl)
	return nil
}

func (m *Memory) setLocked(key string, value []byte, ttl time.Duration) {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	m.entries[keyPrefix+key] = memoryEntry{value: value, expiresAt: expiresAt}
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, keyPrefix+key)
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := m.Get(ctx, key)
	return ok, err
}

func (m *Memory) InvalidatePattern(ctx context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	full := keyPrefix + prefix
	var n int
	for k := range m.entries {
		if strings.HasPrefix(k, full) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok, _ := m.getLocked(k); ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *Memory) MSet(ctx context.Context, values map[string][]byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.setLocked(k, v, ttl)
	}
	return nil
}

func (m *Memory) Incr(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok, _ := m.getLocked(key)
	var current int64
	if ok {
		current = decodeInt(existing)
	}
	current += delta
	prevExpiry := m.entries[keyPrefix+key].expiresAt
	m.setLocked(key, encodeInt(current), 0)

	e := m.entries[keyPrefix+key]
	if ok {
		e.expiresAt = prevExpiry
	} else if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	m.entries[keyPrefix+key] = e
	return current, nil
}

// Sweep removes every expired entry and returns the count removed. No code
// in this module calls it on a schedule.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	var n int
	for k, e := range m.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

func encodeInt(v int64) []byte {
	return []byte(strconv.FormatInt(v, 10))
}

func decodeInt(b []byte) int64 {
	v, _ := strconv.ParseInt(string(b), 10, 64)
	return v
}
