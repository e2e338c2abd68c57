package cache

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dno-gatherer/internal/interfaces"
)

// Tiered composes an L1 Memory cache in front of an L2 Cache (normally
// Redis): reads check L1 first, fall through to L2 on a miss and populate
// L1 with the value found there; writes go to both tiers. A nil l2 makes
// Tiered behave as an L1-only cache, useful for tests and for environments
// without Redis configured.
type Tiered struct {
	l1        *Memory
	l2        interfaces.Cache
	logger    arbor.ILogger
	l1WarmTTL time.Duration
}

var _ interfaces.Cache = (*Tiered)(nil)

// defaultL1WarmTTL bounds how long an entry copied from L2 into L1 on a
// cache-miss fallthrough may live, since L2 alone tracks the real
// expiry for that key. Used when NewTiered is given ttl <= 0.
const defaultL1WarmTTL = 60 * time.Second

// NewTiered constructs a Tiered cache. l1 must not be nil; l2 may be nil.
// l1WarmTTL bounds L1 entries populated from an L2 hit (see Get/MGet) so
// they cannot outlive L2's own TTL discipline; ttl <= 0 falls back to
// defaultL1WarmTTL rather than "never expires".
func NewTiered(l1 *Memory, l2 interfaces.Cache, logger arbor.ILogger, l1WarmTTL time.Duration) *Tiered {
	if l1WarmTTL <= 0 {
		l1WarmTTL = defaultL1WarmTTL
	}
	return &Tiered{l1: l1, l2: l2, logger: logger, l1WarmTTL: l1WarmTTL}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if v, ok, err := t.l1.Get(ctx, key); err == nil && ok {
		return v, true, nil
	}
	if t.l2 == nil {
		return nil, false, nil
	}
	v, ok, err := t.l2.Get(ctx, key)
	if err != nil {
		t.logger.Warn().Err(err).Str("key", key).Msg("l2 cache get failed, treating as miss")
		return nil, false, nil
	}
	if ok {
		_ = t.l1.Set(ctx, key, v, t.l1WarmTTL)
	}
	return v, ok, nil
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = t.l1.Set(ctx, key, value, ttl)
	if t.l2 == nil {
		return nil
	}
	return t.l2.Set(ctx, key, value, ttl)
}

func (t *Tiered) Delete(ctx context.Context, key string) error {
	_ = t.l1.Delete(ctx, key)
	if t.l2 == nil {
		return nil
	}
	return t.l2.Delete(ctx, key)
}

func (t *Tiered) Exists(ctx context.Context, key string) (bool, error) {
	if ok, _ := t.l1.Exists(ctx, key); ok {
		return true, nil
	}
	if t.l2 == nil {
		return false, nil
	}
	return t.l2.Exists(ctx, key)
}

// InvalidatePattern evicts from both tiers, returning the L2 count when L2
// is present (the authoritative count across a multi-process deployment),
// otherwise the L1 count.
func (t *Tiered) InvalidatePattern(ctx context.Context, prefix string) (int, error) {
	l1n, _ := t.l1.InvalidatePattern(ctx, prefix)
	if t.l2 == nil {
		return l1n, nil
	}
	l2n, err := t.l2.InvalidatePattern(ctx, prefix)
	if err != nil {
		return l1n, err
	}
	return l2n, nil
}

func (t *Tiered) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	out, _ := t.l1.MGet(ctx, keys)
	if out == nil {
		out = make(map[string][]byte, len(keys))
	}
	if t.l2 == nil || len(out) == len(keys) {
		return out, nil
	}
	var missing []string
	for _, k := range keys {
		if _, ok := out[k]; !ok {
			missing = append(missing, k)
		}
	}
	l2vals, err := t.l2.MGet(ctx, missing)
	if err != nil {
		return out, err
	}
	for k, v := range l2vals {
		out[k] = v
		_ = t.l1.Set(ctx, k, v, t.l1WarmTTL)
	}
	return out, nil
}

func (t *Tiered) MSet(ctx context.Context, values map[string][]byte, ttl time.Duration) error {
	_ = t.l1.MSet(ctx, values, ttl)
	if t.l2 == nil {
		return nil
	}
	return t.l2.MSet(ctx, values, ttl)
}

// Incr delegates to L2 when present (single source of truth for a counter
// shared across processes); otherwise to L1.
func (t *Tiered) Incr(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	if t.l2 != nil {
		return t.l2.Incr(ctx, key, delta, ttl)
	}
	return t.l1.Incr(ctx, key, delta, ttl)
}
