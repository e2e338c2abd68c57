package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/dno-gatherer/internal/model"
)

// PatternBacking implements internal/pattern.Backing over a shared
// badgerhold.Store.
type PatternBacking struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

// NewPatternBacking constructs a PatternBacking over store.
func NewPatternBacking(store *badgerhold.Store, logger arbor.ILogger) *PatternBacking {
	return &PatternBacking{store: store, logger: logger}
}

func (b *PatternBacking) Get(id string) (*model.Pattern, bool) {
	var p model.Pattern
	if err := b.store.Get(id, &p); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, false
		}
		b.logger.Warn().Err(err).Str("pattern_id", id).Msg("pattern get failed")
		return nil, false
	}
	return &p, true
}

func (b *PatternBacking) Put(p *model.Pattern) {
	if err := b.store.Upsert(p.ID, p); err != nil {
		b.logger.Warn().Err(err).Str("pattern_id", p.ID).Msg("pattern upsert failed")
	}
}

func (b *PatternBacking) List(operatorKey string) []*model.Pattern {
	var patterns []*model.Pattern
	if err := b.store.Find(&patterns, badgerhold.Where("OperatorKey").Eq(operatorKey)); err != nil {
		b.logger.Warn().Err(err).Str("operator_key", operatorKey).Msg("pattern list failed")
		return nil
	}
	return patterns
}

func (b *PatternBacking) All() []*model.Pattern {
	var patterns []*model.Pattern
	if err := b.store.Find(&patterns, badgerhold.Where("ID").Ne("")); err != nil {
		b.logger.Warn().Err(err).Msg("pattern list-all failed")
		return nil
	}
	return patterns
}

func (b *PatternBacking) FindByTemplate(operatorKey, template string) (*model.Pattern, bool) {
	var patterns []*model.Pattern
	err := b.store.Find(&patterns, badgerhold.Where("OperatorKey").Eq(operatorKey).
		And("Template").Eq(template).Limit(1))
	if err != nil || len(patterns) == 0 {
		return nil, false
	}
	return patterns[0], true
}
