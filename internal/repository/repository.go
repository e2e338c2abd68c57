package repository

import (
	"context"
	"encoding/json"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dno-gatherer/internal/cache"
	"github.com/ternarybob/dno-gatherer/internal/config"
	"github.com/ternarybob/dno-gatherer/internal/interfaces"
	"github.com/ternarybob/dno-gatherer/internal/model"
)

// notFound is the sentinel cached in place of a value to record a negative
// result -- absence itself, cached, so a repeated miss doesn't re-hit the
// store. Distinguished from "not cached at all" by its own marker byte so a
// zero-length legitimate value is never confused with it.
var notFound = []byte{0}

func isNotFoundMarker(b []byte) bool {
	return len(b) == 1 && b[0] == 0
}

// Repository implements interfaces.Repository as a cache-aside facade over
// a Store. Reads try cache.Get first (including the not-found marker for a
// previously-recorded miss); on a genuine miss they fall back to the store
// and populate the cache, negative results included. Writes update the
// store then invalidate the cache entries the write could have staled.
type Repository struct {
	cache  interfaces.Cache
	store  Store
	ttl    config.CacheTTLConfig
	logger arbor.ILogger
}

var _ interfaces.Repository = (*Repository)(nil)

// New constructs a Repository over cache and store.
func New(c interfaces.Cache, store Store, ttl config.CacheTTLConfig, logger arbor.ILogger) *Repository {
	return &Repository{cache: c, store: store, ttl: ttl, logger: logger}
}

func (r *Repository) GetOperatorByID(ctx context.Context, id string) (*interfaces.OperatorRef, error) {
	key := cache.OperatorByID(id)
	if ref, hit, cached := r.getOperatorFromCache(ctx, key); cached {
		return ref, hitOrNotFound(hit)
	}

	ref, ok, err := r.store.GetOperatorByID(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.cacheMiss(ctx, key)
		return nil, model.NewNotFound("operator not found: " + id)
	}
	r.warmOperatorCaches(ctx, ref)
	return ref, nil
}

func (r *Repository) GetOperatorBySlug(ctx context.Context, slug string) (*interfaces.OperatorRef, error) {
	key := cache.OperatorBySlug(slug)
	if ref, hit, cached := r.getOperatorFromCache(ctx, key); cached {
		return ref, hitOrNotFound(hit)
	}

	ref, ok, err := r.store.GetOperatorBySlug(slug)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.cacheMiss(ctx, key)
		return nil, model.NewNotFound("operator not found: " + slug)
	}
	r.warmOperatorCaches(ctx, ref)
	return ref, nil
}

func (r *Repository) ListOperators(ctx context.Context) ([]*interfaces.OperatorRef, error) {
	key := cache.AllOperators()
	if raw, ok, err := r.cache.Get(ctx, key); err == nil && ok && !isNotFoundMarker(raw) {
		var refs []*interfaces.OperatorRef
		if err := json.Unmarshal(raw, &refs); err == nil {
			return refs, nil
		}
		_ = r.cache.Delete(ctx, key) // corrupted entry, opportunistic delete
	}

	refs, err := r.store.ListOperators()
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(refs); err == nil {
		_ = r.cache.Set(ctx, key, raw, r.ttl.ReferenceDNOs)
	}
	return refs, nil
}

// UpsertOperator writes ref to the store then warms its id/slug/name cache
// entries and invalidates the stale "all operators" list.
func (r *Repository) UpsertOperator(ctx context.Context, ref *interfaces.OperatorRef) error {
	if err := r.store.PutOperator(ref); err != nil {
		return err
	}
	r.warmOperatorCaches(ctx, ref)
	_ = r.cache.Delete(ctx, cache.AllOperators())
	return nil
}

// warmOperatorCaches populates all three cross-reference keys from one
// fetch/write, per §4.9's "a successful fetch by one key warms the other
// two" invariant.
func (r *Repository) warmOperatorCaches(ctx context.Context, ref *interfaces.OperatorRef) {
	raw, err := json.Marshal(ref)
	if err != nil {
		return
	}
	_ = r.cache.Set(ctx, cache.OperatorByID(ref.ID), raw, r.ttl.ReferenceDNOs)
	_ = r.cache.Set(ctx, cache.OperatorBySlug(ref.Slug), raw, r.ttl.ReferenceDNOs)
	_ = r.cache.Set(ctx, cache.OperatorByName(ref.Name), raw, r.ttl.ReferenceDNOs)
}

func (r *Repository) getOperatorFromCache(ctx context.Context, key string) (ref *interfaces.OperatorRef, hit bool, cached bool) {
	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, false
	}
	if isNotFoundMarker(raw) {
		return nil, false, true
	}
	var decoded interfaces.OperatorRef
	if err := json.Unmarshal(raw, &decoded); err != nil {
		_ = r.cache.Delete(ctx, key)
		return nil, false, false
	}
	return &decoded, true, true
}

func (r *Repository) cacheMiss(ctx context.Context, key string) {
	_ = r.cache.Set(ctx, key, notFound, r.ttl.NotFound)
}

func hitOrNotFound(hit bool) error {
	if hit {
		return nil
	}
	return model.NewNotFound("cached as not found")
}

func (r *Repository) SearchGridCharges(ctx context.Context, filter interfaces.GridChargeFilter) ([]model.GridChargeRecord, error) {
	key := cache.GridChargeSearch(cache.SearchFingerprint(filter, string(model.DataKindGridCharges)))
	var cached []model.GridChargeRecord
	if r.getSearchFromCache(ctx, key, &cached) {
		return cached, nil
	}

	records, err := r.store.SearchGridCharges(filter)
	if err != nil {
		return nil, err
	}
	r.setSearchCache(ctx, key, records)
	return records, nil
}

func (r *Repository) SearchLoadWindows(ctx context.Context, filter interfaces.GridChargeFilter) ([]model.LoadWindowRecord, error) {
	key := cache.LoadWindowSearch(cache.SearchFingerprint(filter, string(model.DataKindLoadWindow)))
	var cached []model.LoadWindowRecord
	if r.getSearchFromCache(ctx, key, &cached) {
		return cached, nil
	}

	records, err := r.store.SearchLoadWindows(filter)
	if err != nil {
		return nil, err
	}
	r.setSearchCache(ctx, key, records)
	return records, nil
}

func (r *Repository) getSearchFromCache(ctx context.Context, key string, out interface{}) bool {
	raw, ok, err := r.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	if isNotFoundMarker(raw) {
		return true // out stays at its zero value: an empty, previously-recorded result
	}
	if err := json.Unmarshal(raw, out); err != nil {
		_ = r.cache.Delete(ctx, key)
		return false
	}
	return true
}

func (r *Repository) setSearchCache(ctx context.Context, key string, records interface{}) {
	empty := isEmptySlice(records)
	if empty {
		_ = r.cache.Set(ctx, key, notFound, r.ttl.NotFound)
		return
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return
	}
	_ = r.cache.Set(ctx, key, raw, r.ttl.FoundData)
}

func isEmptySlice(v interface{}) bool {
	switch s := v.(type) {
	case []model.GridChargeRecord:
		return len(s) == 0
	case []model.LoadWindowRecord:
		return len(s) == 0
	default:
		return false
	}
}

// PutGridCharges writes records then invalidates every cached grid-charge
// search result. Search fingerprints are opaque SHA-256 hashes of arbitrary
// filter tuples, so a precise exact-key invalidation isn't possible; the
// whole search namespace for this record kind is conservatively evicted
// instead, trading a few extra cache misses for never serving stale data.
func (r *Repository) PutGridCharges(ctx context.Context, records []model.GridChargeRecord) error {
	if err := r.store.PutGridCharges(records); err != nil {
		return err
	}
	_, _ = r.cache.InvalidatePattern(ctx, "search:netzentgelte:")
	return nil
}

func (r *Repository) PutLoadWindows(ctx context.Context, records []model.LoadWindowRecord) error {
	if err := r.store.PutLoadWindows(records); err != nil {
		return err
	}
	_, _ = r.cache.InvalidatePattern(ctx, "search:hlzf:")
	return nil
}

func (r *Repository) GetArtifact(ctx context.Context, id string) (*model.Artifact, error) {
	key := cache.ArtifactByID(id)
	if raw, ok, err := r.cache.Get(ctx, key); err == nil && ok {
		if isNotFoundMarker(raw) {
			return nil, model.NewNotFound("artifact not found: " + id)
		}
		var a model.Artifact
		if err := json.Unmarshal(raw, &a); err == nil {
			return &a, nil
		}
		_ = r.cache.Delete(ctx, key)
	}

	a, ok, err := r.store.GetArtifact(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		r.cacheMiss(ctx, key)
		return nil, model.NewNotFound("artifact not found: " + id)
	}
	if raw, err := json.Marshal(a); err == nil {
		_ = r.cache.Set(ctx, key, raw, r.ttl.Default)
	}
	return a, nil
}

func (r *Repository) LatestArtifactForOperator(ctx context.Context, operatorKey string) (*model.Artifact, error) {
	a, ok, err := r.store.LatestArtifactForOperator(operatorKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewNotFound("no artifact for operator: " + operatorKey)
	}
	return a, nil
}

func (r *Repository) PutArtifact(ctx context.Context, a *model.Artifact) error {
	if err := r.store.PutArtifact(a); err != nil {
		return err
	}
	if raw, err := json.Marshal(a); err == nil {
		_ = r.cache.Set(ctx, cache.ArtifactByID(a.ID), raw, r.ttl.Default)
	}
	return nil
}
