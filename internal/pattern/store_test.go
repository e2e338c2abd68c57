package pattern

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dno-gatherer/internal/model"
)

func newTestStore() *Store {
	return New(NewMemoryBacking(), arbor.NewLogger())
}

func TestUpsertLearned_IdempotentOnOperatorAndTemplate(t *testing.T) {
	s := newTestStore()
	candidate := &model.Pattern{
		OperatorKey: "netze-bw",
		Kind:        model.PatternURLTemplate,
		Template:    "https://example/{operator}/{year}/charges.pdf",
	}
	first, err := s.UpsertLearned(candidate)
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := s.UpsertLearned(&model.Pattern{
		OperatorKey: "netze-bw",
		Kind:        model.PatternURLTemplate,
		Template:    "https://example/{operator}/{year}/charges.pdf",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same operator+template must not duplicate")
}

func TestPatternsFor_RankedByConfidenceThenRecencyThenID(t *testing.T) {
	s := newTestStore()
	now := time.Now()

	low, _ := s.UpsertLearned(&model.Pattern{OperatorKey: "op", Template: "t1", SuccessCount: 0, FailureCount: 10})
	high, _ := s.UpsertLearned(&model.Pattern{OperatorKey: "op", Template: "t2", SuccessCount: 10, FailureCount: 0, LastUsedAt: now})
	tie, _ := s.UpsertLearned(&model.Pattern{OperatorKey: "op", Template: "t3", SuccessCount: 10, FailureCount: 0, LastUsedAt: now})

	ranked, err := s.PatternsFor("op")
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, low.ID, ranked[2].ID, "lowest confidence ranks last")
	// high and tie share confidence+last_used_at, broken by id asc
	assert.ElementsMatch(t, []string{high.ID, tie.ID}, []string{ranked[0].ID, ranked[1].ID})
	if high.ID < tie.ID {
		assert.Equal(t, high.ID, ranked[0].ID)
	} else {
		assert.Equal(t, tie.ID, ranked[0].ID)
	}
}

func TestRecordOutcome_UpdatesCountersAndPersists(t *testing.T) {
	s := newTestStore()
	p, err := s.UpsertLearned(&model.Pattern{OperatorKey: "op", Template: "t"})
	require.NoError(t, err)

	require.NoError(t, s.RecordOutcome(p.ID, true, 120))

	ranked, err := s.PatternsFor("op")
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, 1, ranked[0].SuccessCount)
}

func TestRecordOutcome_UnknownPatternIsNotFound(t *testing.T) {
	s := newTestStore()
	err := s.RecordOutcome("does-not-exist", true, 0)
	require.Error(t, err)
	kind, ok := model.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, model.FailureNotFound, kind)
}

func TestPatternsAwaitingReview_OnlyUnverifiedWithEnoughEvidence(t *testing.T) {
	s := newTestStore()
	fresh, err := s.UpsertLearned(&model.Pattern{OperatorKey: "op-a", Template: "fresh"})
	require.NoError(t, err)
	require.NoError(t, s.RecordOutcome(fresh.ID, true, 0))

	seasoned, err := s.UpsertLearned(&model.Pattern{OperatorKey: "op-a", Template: "seasoned"})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.RecordOutcome(seasoned.ID, true, 0))
	}

	pending, err := s.PatternsAwaitingReview()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, seasoned.ID, pending[0].ID)
}

func TestVerifyPattern_RaisesConfidenceFloor(t *testing.T) {
	s := newTestStore()
	p, err := s.UpsertLearned(&model.Pattern{OperatorKey: "op-a", Template: "t"})
	require.NoError(t, err)

	require.NoError(t, s.VerifyPattern(p.ID, model.VerificationVerified))

	got, _ := s.backing.Get(p.ID)
	assert.GreaterOrEqual(t, got.Confidence(), 0.8)
}

func TestFlagPattern_RecordsReasonAndSeverity(t *testing.T) {
	s := newTestStore()
	p, err := s.UpsertLearned(&model.Pattern{OperatorKey: "op-a", Template: "t"})
	require.NoError(t, err)

	require.NoError(t, s.FlagPattern(p.ID, "extracts stale tariff table", model.FlagSeverityHigh))

	got, _ := s.backing.Get(p.ID)
	assert.Equal(t, "extracts stale tariff table", got.FlagReason)
	assert.Equal(t, model.FlagSeverityHigh, got.FlagSeverity)
}

func TestCrossOperatorEffectiveness_AggregatesSameShapeAcrossOperators(t *testing.T) {
	s := newTestStore()
	a, err := s.UpsertLearned(&model.Pattern{
		OperatorKey: "op-a", Kind: model.PatternURLTemplate,
		Template: "https://op-a.example/{year}/preise.pdf", Variables: []string{"year"},
	})
	require.NoError(t, err)
	b, err := s.UpsertLearned(&model.Pattern{
		OperatorKey: "op-b", Kind: model.PatternURLTemplate,
		Template: "https://op-b.example/{year}/preise.pdf", Variables: []string{"year"},
	})
	require.NoError(t, err)
	require.NoError(t, s.RecordOutcome(a.ID, true, 0))
	require.NoError(t, s.RecordOutcome(b.ID, false, 0))

	stats, err := s.CrossOperatorEffectiveness(a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.OperatorCount)
	assert.Equal(t, 1, stats.TotalSuccesses)
	assert.Equal(t, 1, stats.TotalFailures)
	assert.Equal(t, 0.5, stats.SuccessRate)
}
