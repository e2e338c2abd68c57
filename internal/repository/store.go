// Package repository implements the Repository Facade from spec.md §4.9:
// cache-aside reads (including negative-result caching), write-then-
// invalidate writes, and cross-reference consistency between an operator's
// id/slug/name cache entries.
package repository

import (
	"sync"

	"github.com/ternarybob/dno-gatherer/internal/interfaces"
	"github.com/ternarybob/dno-gatherer/internal/model"
)

// Store is the persistence seam Repository reads through and writes to.
// internal/storage/badger provides the production implementation;
// MemoryStore stands in for standalone use and tests.
type Store interface {
	GetOperatorByID(id string) (*interfaces.OperatorRef, bool, error)
	GetOperatorBySlug(slug string) (*interfaces.OperatorRef, bool, error)
	ListOperators() ([]*interfaces.OperatorRef, error)
	PutOperator(ref *interfaces.OperatorRef) error

	SearchGridCharges(filter interfaces.GridChargeFilter) ([]model.GridChargeRecord, error)
	SearchLoadWindows(filter interfaces.GridChargeFilter) ([]model.LoadWindowRecord, error)
	PutGridCharges(records []model.GridChargeRecord) error
	PutLoadWindows(records []model.LoadWindowRecord) error

	GetArtifact(id string) (*model.Artifact, bool, error)
	PutArtifact(a *model.Artifact) error
	LatestArtifactForOperator(operatorKey string) (*model.Artifact, bool, error)
}

// MemoryStore is an in-process Store, used by tests; the application wires
// the Badger-backed store from internal/storage/badger.
type MemoryStore struct {
	mu           sync.RWMutex
	byID         map[string]*interfaces.OperatorRef
	bySlug       map[string]*interfaces.OperatorRef
	gridCharges  []model.GridChargeRecord
	loadWindows  []model.LoadWindowRecord
	artifacts    map[string]*model.Artifact
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:      make(map[string]*interfaces.OperatorRef),
		bySlug:    make(map[string]*interfaces.OperatorRef),
		artifacts: make(map[string]*model.Artifact),
	}
}

func (s *MemoryStore) GetOperatorByID(id string) (*interfaces.OperatorRef, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.byID[id]
	return ref, ok, nil
}

func (s *MemoryStore) GetOperatorBySlug(slug string) (*interfaces.OperatorRef, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ref, ok := s.bySlug[slug]
	return ref, ok, nil
}

func (s *MemoryStore) ListOperators() ([]*interfaces.OperatorRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*interfaces.OperatorRef, 0, len(s.byID))
	for _, ref := range s.byID {
		out = append(out, ref)
	}
	return out, nil
}

func (s *MemoryStore) PutOperator(ref *interfaces.OperatorRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[ref.ID] = ref
	s.bySlug[ref.Slug] = ref
	return nil
}

// SearchGridCharges applies a minimal subset of filter -- operator and year
// -- sufficient for cache-aside round-trip tests; a production Store (badger)
// implements the full filter semantics.
func (s *MemoryStore) SearchGridCharges(filter interfaces.GridChargeFilter) ([]model.GridChargeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.GridChargeRecord
	for _, r := range s.gridCharges {
		if matchesGridFilter(r, filter) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) SearchLoadWindows(filter interfaces.GridChargeFilter) ([]model.LoadWindowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.LoadWindowRecord
	for _, r := range s.loadWindows {
		if (filter.OperatorID == "" || r.OperatorKey == filter.OperatorID) &&
			(filter.Year == 0 || r.Year == filter.Year) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) PutGridCharges(records []model.GridChargeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gridCharges = append(s.gridCharges, records...)
	return nil
}

func (s *MemoryStore) PutLoadWindows(records []model.LoadWindowRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadWindows = append(s.loadWindows, records...)
	return nil
}

func (s *MemoryStore) GetArtifact(id string) (*model.Artifact, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.artifacts[id]
	return a, ok, nil
}

func (s *MemoryStore) PutArtifact(a *model.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artifacts[a.ID] = a
	return nil
}

func (s *MemoryStore) LatestArtifactForOperator(operatorKey string) (*model.Artifact, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *model.Artifact
	for _, a := range s.artifacts {
		if a.OperatorKey != operatorKey {
			continue
		}
		if latest == nil || a.FetchedAt.After(latest.FetchedAt) {
			latest = a
		}
	}
	return latest, latest != nil, nil
}

func matchesGridFilter(r model.GridChargeRecord, filter interfaces.GridChargeFilter) bool {
	if filter.OperatorID != "" && r.OperatorKey != filter.OperatorID {
		return false
	}
	if filter.Year != 0 && r.Year != filter.Year {
		return false
	}
	return true
}
