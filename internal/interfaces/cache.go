package interfaces

import (
	"context"
	"time"
)

// Cache is the namespaced key/value contract shared by the in-process and
// Redis-backed tiers, and by the cache.Tiered that composes them (§4.8).
// Every key passed here is a domain key; implementations add the "dno:"
// prefix internally.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)

	// InvalidatePattern evicts every key with the given prefix, returning
	// the number of keys evicted.
	InvalidatePattern(ctx context.Context, prefix string) (int, error)

	MGet(ctx context.Context, keys []string) (map[string][]byte, error)
	MSet(ctx context.Context, values map[string][]byte, ttl time.Duration) error

	// Incr atomically adds delta to the integer stored at key (default 0).
	// If ttl > 0 and this call creates the key (resulting value == delta),
	// the TTL is applied -- first-set behavior; subsequent increments never
	// refresh the TTL.
	Incr(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}
