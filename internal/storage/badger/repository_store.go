package badger

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/dno-gatherer/internal/interfaces"
	"github.com/ternarybob/dno-gatherer/internal/model"
)

// RepositoryStore implements internal/repository.Store over a shared
// badgerhold.Store, giving the Repository cache-aside facade a persistent
// backend for operators, grid-charge/load-window records, and artifacts.
type RepositoryStore struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewRepositoryStore constructs a RepositoryStore over store.
func NewRepositoryStore(store *badgerhold.Store, logger arbor.ILogger) *RepositoryStore {
	return &RepositoryStore{store: store, logger: logger}
}

func (s *RepositoryStore) GetOperatorByID(id string) (*interfaces.OperatorRef, bool, error) {
	var ref interfaces.OperatorRef
	if err := s.store.Get(id, &ref); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get operator by id: %w", err)
	}
	return &ref, true, nil
}

func (s *RepositoryStore) GetOperatorBySlug(slug string) (*interfaces.OperatorRef, bool, error) {
	var refs []*interfaces.OperatorRef
	if err := s.store.Find(&refs, badgerhold.Where("Slug").Eq(slug).Limit(1)); err != nil {
		return nil, false, fmt.Errorf("get operator by slug: %w", err)
	}
	if len(refs) == 0 {
		return nil, false, nil
	}
	return refs[0], true, nil
}

func (s *RepositoryStore) ListOperators() ([]*interfaces.OperatorRef, error) {
	var refs []*interfaces.OperatorRef
	if err := s.store.Find(&refs, badgerhold.Where("ID").Ne("").SortBy("Name")); err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	return refs, nil
}

func (s *RepositoryStore) PutOperator(ref *interfaces.OperatorRef) error {
	if err := s.store.Upsert(ref.ID, ref); err != nil {
		return fmt.Errorf("put operator: %w", err)
	}
	return nil
}

// gridChargeKey and loadWindowKey render the model's composite primary keys
// as the string keys badgerhold.Upsert requires.
func gridChargeKey(r model.GridChargeRecord) string {
	return fmt.Sprintf("%s|%d|%s|%s", r.OperatorKey, r.Year, r.VoltageLevel, r.FieldID)
}

func loadWindowKey(r model.LoadWindowRecord) string {
	return fmt.Sprintf("%s|%d|%s", r.OperatorKey, r.Year, r.SlotID)
}

// SearchGridCharges matches on operator and year, the same subset the
// in-memory store applies: GridChargeFilter.Region has no corresponding
// stored field on GridChargeRecord, so it is not filterable at this layer.
func (s *RepositoryStore) SearchGridCharges(filter interfaces.GridChargeFilter) ([]model.GridChargeRecord, error) {
	query := badgerhold.Where("OperatorKey").Ne("")
	if filter.OperatorID != "" {
		query = badgerhold.Where("OperatorKey").Eq(filter.OperatorID)
	}
	if filter.Year != 0 {
		query = query.And("Year").Eq(filter.Year)
	}
	applyPage(query, filter.Limit, filter.Offset)

	var records []model.GridChargeRecord
	if err := s.store.Find(&records, query); err != nil {
		return nil, fmt.Errorf("search grid charges: %w", err)
	}
	return records, nil
}

func (s *RepositoryStore) SearchLoadWindows(filter interfaces.GridChargeFilter) ([]model.LoadWindowRecord, error) {
	query := badgerhold.Where("OperatorKey").Ne("")
	if filter.OperatorID != "" {
		query = badgerhold.Where("OperatorKey").Eq(filter.OperatorID)
	}
	if filter.Year != 0 {
		query = query.And("Year").Eq(filter.Year)
	}
	applyPage(query, filter.Limit, filter.Offset)

	var records []model.LoadWindowRecord
	if err := s.store.Find(&records, query); err != nil {
		return nil, fmt.Errorf("search load windows: %w", err)
	}
	return records, nil
}

func applyPage(query *badgerhold.Query, limit, offset int) {
	if offset > 0 {
		query.Skip(offset)
	}
	if limit > 0 {
		query.Limit(limit)
	}
}

func (s *RepositoryStore) PutGridCharges(records []model.GridChargeRecord) error {
	for i := range records {
		if err := s.store.Upsert(gridChargeKey(records[i]), &records[i]); err != nil {
			return fmt.Errorf("put grid charge: %w", err)
		}
	}
	return nil
}

func (s *RepositoryStore) PutLoadWindows(records []model.LoadWindowRecord) error {
	for i := range records {
		if err := s.store.Upsert(loadWindowKey(records[i]), &records[i]); err != nil {
			return fmt.Errorf("put load window: %w", err)
		}
	}
	return nil
}

func (s *RepositoryStore) GetArtifact(id string) (*model.Artifact, bool, error) {
	var a model.Artifact
	if err := s.store.Get(id, &a); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get artifact: %w", err)
	}
	return &a, true, nil
}

func (s *RepositoryStore) PutArtifact(a *model.Artifact) error {
	if err := s.store.Upsert(a.ID, a); err != nil {
		return fmt.Errorf("put artifact: %w", err)
	}
	return nil
}

func (s *RepositoryStore) LatestArtifactForOperator(operatorKey string) (*model.Artifact, bool, error) {
	var artifacts []model.Artifact
	err := s.store.Find(&artifacts, badgerhold.Where("OperatorKey").Eq(operatorKey).
		SortBy("FetchedAt").Reverse().Limit(1))
	if err != nil {
		return nil, false, fmt.Errorf("latest artifact for operator: %w", err)
	}
	if len(artifacts) == 0 {
		return nil, false, nil
	}
	return &artifacts[0], true, nil
}
