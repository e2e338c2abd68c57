// Package pattern implements the learned-pattern store from spec.md §4.3:
// ranked pattern lookup, pure template instantiation, outcome recording
// that feeds the smoothed-Beta confidence rule, and idempotent upsert of
// newly-discovered patterns.
package pattern

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dno-gatherer/internal/interfaces"
	"github.com/ternarybob/dno-gatherer/internal/model"
)

// Backing is the persistence seam Store relies on. MemoryBacking satisfies
// it for standalone use and tests; internal/storage/badger provides the
// persistent implementation used in production.
type Backing interface {
	Get(id string) (*model.Pattern, bool)
	Put(p *model.Pattern)
	List(operatorKey string) []*model.Pattern
	FindByTemplate(operatorKey, template string) (*model.Pattern, bool)

	// All returns every pattern across every operator, used by the
	// cross-operator effectiveness report. Not scoped by operator, unlike
	// List.
	All() []*model.Pattern
}

// Store implements interfaces.PatternStore over a Backing.
type Store struct {
	backing Backing
	logger  arbor.ILogger
}

var _ interfaces.PatternStore = (*Store)(nil)

// New constructs a Store. A nil backing defaults to an in-memory one.
func New(backing Backing, logger arbor.ILogger) *Store {
	if backing == nil {
		backing = NewMemoryBacking()
	}
	return &Store{backing: backing, logger: logger}
}

// PatternsFor returns operatorKey's patterns ranked by
// (confidence desc, last_used_at desc, id asc).
func (s *Store) PatternsFor(operatorKey string) ([]*model.Pattern, error) {
	patterns := s.backing.List(operatorKey)
	sortPatterns(patterns)
	return patterns, nil
}

// Instantiate delegates to the pure package-level Instantiate function.
func (s *Store) Instantiate(p *model.Pattern, bindings map[string]string) (string, error) {
	return Instantiate(p, bindings)
}

// RecordOutcome updates a pattern's success/failure counters and persists it.
func (s *Store) RecordOutcome(patternID string, success bool, latencyMs int64) error {
	p, ok := s.backing.Get(patternID)
	if !ok {
		return model.NewNotFound("pattern not found: " + patternID)
	}
	p.RecordOutcome(success, latencyMs)
	s.backing.Put(p)
	s.logger.Debug().Str("pattern_id", patternID).Bool("success", success).Float64("confidence", p.Confidence()).Msg("pattern outcome recorded")
	return nil
}

// UpsertLearned inserts or updates a pattern, idempotent on
// (operator_key, template): a matching existing pattern is returned
// unchanged rather than duplicated.
func (s *Store) UpsertLearned(candidate *model.Pattern) (*model.Pattern, error) {
	if existing, ok := s.backing.FindByTemplate(candidate.OperatorKey, candidate.Template); ok {
		return existing, nil
	}
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}
	if candidate.Verification == "" {
		candidate.Verification = model.VerificationUnverified
	}
	s.backing.Put(candidate)
	return candidate, nil
}

// PatternsAwaitingReview returns every pattern, across all operators, that
// has accumulated enough outcomes to warrant an admin verification
// decision but hasn't received one yet, ranked the same way PatternsFor
// ranks a single operator's set.
func (s *Store) PatternsAwaitingReview() ([]*model.Pattern, error) {
	var pending []*model.Pattern
	for _, p := range s.backing.All() {
		if p.AwaitingReview() {
			pending = append(pending, p)
		}
	}
	sortPatterns(pending)
	return pending, nil
}

// VerifyPattern records an admin's verification decision for id.
func (s *Store) VerifyPattern(id string, status model.Verification) error {
	p, ok := s.backing.Get(id)
	if !ok {
		return model.NewNotFound("pattern not found: " + id)
	}
	p.Verification = status
	s.backing.Put(p)
	s.logger.Info().Str("pattern_id", id).Str("status", string(status)).Msg("pattern verification recorded")
	return nil
}

// FlagPattern records an admin-reported problem with id. Purely additive
// metadata: it does not change the pattern's confidence or ranking.
func (s *Store) FlagPattern(id, reason string, severity model.FlagSeverity) error {
	p, ok := s.backing.Get(id)
	if !ok {
		return model.NewNotFound("pattern not found: " + id)
	}
	p.FlagReason = reason
	p.FlagSeverity = severity
	s.backing.Put(p)
	s.logger.Warn().Str("pattern_id", id).Str("severity", string(severity)).Msg("pattern flagged")
	return nil
}

// CrossOperatorStats summarizes how a pattern's template shape performs
// when other operators have learned a structurally equivalent pattern
// (same Kind and the same set of template variables).
type CrossOperatorStats struct {
	PatternID       string
	OperatorCount   int
	TotalSuccesses  int
	TotalFailures   int
	SuccessRate     float64
}

// CrossOperatorEffectiveness reports how patterns with the same Kind and
// Variables shape as id have performed across every operator that has
// learned one, not just id's own operator.
func (s *Store) CrossOperatorEffectiveness(id string) (*CrossOperatorStats, error) {
	target, ok := s.backing.Get(id)
	if !ok {
		return nil, model.NewNotFound("pattern not found: " + id)
	}

	stats := &CrossOperatorStats{PatternID: id}
	operators := make(map[string]bool)
	for _, p := range s.backing.All() {
		if p.Kind != target.Kind || !sameVariables(p.Variables, target.Variables) {
			continue
		}
		operators[p.OperatorKey] = true
		stats.TotalSuccesses += p.SuccessCount
		stats.TotalFailures += p.FailureCount
	}
	stats.OperatorCount = len(operators)

	total := stats.TotalSuccesses + stats.TotalFailures
	if total > 0 {
		stats.SuccessRate = float64(stats.TotalSuccesses) / float64(total)
	}
	return stats, nil
}

func sameVariables(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			return false
		}
	}
	return true
}

func sortPatterns(patterns []*model.Pattern) {
	sort.Slice(patterns, func(i, j int) bool { return model.Less(patterns[i], patterns[j]) })
}

// MemoryBacking is an in-process, mutex-guarded Backing implementation.
type MemoryBacking struct {
	mu       sync.RWMutex
	byID     map[string]*model.Pattern
	byOpTmpl map[string]*model.Pattern
}

// NewMemoryBacking creates an empty MemoryBacking.
func NewMemoryBacking() *MemoryBacking {
	return &MemoryBacking{
		byID:     make(map[string]*model.Pattern),
		byOpTmpl: make(map[string]*model.Pattern),
	}
}

func opTmplKey(operatorKey, template string) string {
	return operatorKey + "\x00" + template
}

func (b *MemoryBacking) Get(id string) (*model.Pattern, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.byID[id]
	return p, ok
}

func (b *MemoryBacking) Put(p *model.Pattern) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byID[p.ID] = p
	b.byOpTmpl[opTmplKey(p.OperatorKey, p.Template)] = p
}

func (b *MemoryBacking) List(operatorKey string) []*model.Pattern {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*model.Pattern
	for _, p := range b.byID {
		if p.OperatorKey == operatorKey {
			out = append(out, p)
		}
	}
	return out
}

func (b *MemoryBacking) All() []*model.Pattern {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]*model.Pattern, 0, len(b.byID))
	for _, p := range b.byID {
		out = append(out, p)
	}
	return out
}

func (b *MemoryBacking) FindByTemplate(operatorKey, template string) (*model.Pattern, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.byOpTmpl[opTmplKey(operatorKey, template)]
	return p, ok
}
