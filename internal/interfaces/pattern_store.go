package interfaces

import "github.com/ternarybob/dno-gatherer/internal/model"

// PatternStore is the persistent collection of learned patterns, keyed by
// operator, with confidence scoring and deterministic ranking.
type PatternStore interface {
	// PatternsFor returns the operator's patterns ranked by
	// (confidence desc, last_used_at desc, id asc).
	PatternsFor(operatorKey string) ([]*model.Pattern, error)

	// Instantiate substitutes bindings into a pattern's template. It is pure
	// and fails if any named hole in the template is left unbound.
	Instantiate(pattern *model.Pattern, bindings map[string]string) (string, error)

	// RecordOutcome updates a pattern's success/failure counters.
	RecordOutcome(patternID string, success bool, latencyMs int64) error

	// UpsertLearned inserts or updates a pattern, idempotent on
	// (operator_key, template).
	UpsertLearned(candidate *model.Pattern) (*model.Pattern, error)
}
