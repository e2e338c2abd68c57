package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ternarybob/dno-gatherer/internal/interfaces"
)

// Redis is the shared L2 tier, backed by go-redis. Keys are prefixed with
// "dno:" the same way Memory prefixes its in-process map, so the two tiers
// are interchangeable from a caller's point of view.
type Redis struct {
	client *redis.Client
}

var _ interfaces.Cache = (*Redis)(nil)

// NewRedis constructs a Redis tier from an already-built client (the caller
// wires addr/password/db from config.RedisCacheConfig).
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, keyPrefix+key, value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, keyPrefix+key).Err()
}

func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, keyPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// InvalidatePattern scans for dno:{prefix}* and deletes every match,
// returning the count evicted. Uses SCAN rather than KEYS to avoid
// blocking the server on a large keyspace.
func (r *Redis) InvalidatePattern(ctx context.Context, prefix string) (int, error) {
	var cursor uint64
	var evicted int
	pattern := keyPrefix + prefix + "*"
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return evicted, err
		}
		if len(keys) > 0 {
			n, err := r.client.Del(ctx, keys...).Result()
			if err != nil {
				return evicted, err
			}
			evicted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return evicted, nil
}

func (r *Redis) MGet(ctx context.Context, keys []string) (map[string][]byte, error) {
	if len(keys) == 0 {
		return map[string][]byte{}, nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = keyPrefix + k
	}
	vals, err := r.client.MGet(ctx, prefixed...).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(keys))
	for i, v := range vals {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		out[keys[i]] = []byte(s)
	}
	return out, nil
}

func (r *Redis) MSet(ctx context.Context, values map[string][]byte, ttl time.Duration) error {
	pipe := r.client.Pipeline()
	for k, v := range values {
		pipe.Set(ctx, keyPrefix+k, v, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Incr relies on Redis's own atomic INCRBY and applies the first-set TTL
// semantics: the TTL is only set on the call that brings the key into
// existence (the returned value equals delta).
func (r *Redis) Incr(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	result, err := r.client.IncrBy(ctx, keyPrefix+key, delta).Result()
	if err != nil {
		return 0, err
	}
	if result == delta && ttl > 0 {
		if err := r.client.Expire(ctx, keyPrefix+key, ttl).Err(); err != nil {
			return result, err
		}
	}
	return result, nil
}
