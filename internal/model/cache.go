package model

import "time"

// CacheEntry is the in-process representation of one cached value. The
// namespaced key scheme (domain:subject:fingerprint) is described in full in
// the cache package; this type only carries the value and its lifetime.
type CacheEntry struct {
	NamespacedKey string    `json:"namespaced_key"`
	ValueBlob     []byte    `json:"value_blob"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the entry's lifetime has elapsed as of now.
func (c CacheEntry) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
