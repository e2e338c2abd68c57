package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternConfidence_SmoothedBeta(t *testing.T) {
	p := &Pattern{SuccessCount: 0, FailureCount: 0}
	assert.InDelta(t, 0.5, p.Confidence(), 1e-9)

	p = &Pattern{SuccessCount: 8, FailureCount: 2}
	// (8+2)/(8+2+2+2) = 10/14
	assert.InDelta(t, 10.0/14.0, p.Confidence(), 1e-9)
}

func TestPatternConfidence_VerificationClamps(t *testing.T) {
	p := &Pattern{SuccessCount: 0, FailureCount: 10, Verification: VerificationVerified}
	require.GreaterOrEqual(t, p.Confidence(), 0.8)

	p = &Pattern{SuccessCount: 10, FailureCount: 0, Verification: VerificationRejected}
	require.LessOrEqual(t, p.Confidence(), 0.2)
}

func TestPatternConfidence_AlwaysInBounds(t *testing.T) {
	for s := 0; s < 20; s++ {
		for f := 0; f < 20; f++ {
			p := &Pattern{SuccessCount: s, FailureCount: f}
			c := p.Confidence()
			require.GreaterOrEqual(t, c, 0.0)
			require.LessOrEqual(t, c, 1.0)
		}
	}
}

func TestPatternRecordOutcome(t *testing.T) {
	p := &Pattern{}
	p.RecordOutcome(true, 120)
	assert.Equal(t, 1, p.SuccessCount)
	assert.Equal(t, 0, p.FailureCount)

	p.RecordOutcome(false, 500)
	assert.Equal(t, 1, p.SuccessCount)
	assert.Equal(t, 1, p.FailureCount)
	assert.WithinDuration(t, time.Now(), p.LastUsedAt, time.Second)
}

func TestLess_RankingTieBreaks(t *testing.T) {
	now := time.Now()
	a := &Pattern{ID: "a", SuccessCount: 8, FailureCount: 2, LastUsedAt: now}
	b := &Pattern{ID: "b", SuccessCount: 1, FailureCount: 1, LastUsedAt: now}
	assert.True(t, Less(a, b), "higher confidence ranks first")

	c := &Pattern{ID: "c", SuccessCount: 8, FailureCount: 2, LastUsedAt: now.Add(-time.Hour)}
	assert.True(t, Less(a, c), "equal confidence: more recent last_used_at ranks first")

	d := &Pattern{ID: "z", SuccessCount: 8, FailureCount: 2, LastUsedAt: now}
	e := &Pattern{ID: "a", SuccessCount: 8, FailureCount: 2, LastUsedAt: now}
	assert.True(t, Less(e, d), "equal confidence and last_used_at: lower id ranks first")
}

func TestPatternKind_Exhaustive(t *testing.T) {
	for _, k := range []PatternKind{PatternURLTemplate, PatternNavPath, PatternArchiveShape} {
		assert.True(t, k.IsValid())
	}
	assert.False(t, PatternKind("bogus").IsValid())
}
