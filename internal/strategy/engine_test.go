package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/dno-gatherer/internal/config"
	"github.com/ternarybob/dno-gatherer/internal/model"
)

func testStrategyCfg() config.StrategyConfig {
	return config.StrategyConfig{
		DirectPathConfidenceFloor: 0.7,
		AttemptTimeBudget:         30 * time.Second,
		AttemptRequestBudget:      5,
		ReverseCrawlTimeBudget:    3 * time.Minute,
		ReverseCrawlRequestBudget: 100,
	}
}

func highConfidencePattern(id, template string) *model.Pattern {
	return &model.Pattern{
		ID:           id,
		OperatorKey:  "netze-bw",
		Kind:         model.PatternURLTemplate,
		Template:     template,
		SuccessCount: 20,
		FailureCount: 0,
	}
}

func lowConfidencePattern(id, template string) *model.Pattern {
	return &model.Pattern{
		ID:           id,
		OperatorKey:  "netze-bw",
		Kind:         model.PatternURLTemplate,
		Template:     template,
		SuccessCount: 0,
		FailureCount: 0,
	}
}

func TestBuildPlan_DirectKnownGoodOrderedFirst(t *testing.T) {
	job := model.NewJob("netze-bw", 2024, model.DataKindGridCharges, model.PriorityHigh)
	p := highConfidencePattern("p1", "https://netze-bw.de/netzentgelte/{year}.pdf")

	plan := New(testStrategyCfg()).BuildPlan(job, []*model.Pattern{p}, "")

	require.Len(t, plan.Attempts, 1)
	assert.Equal(t, AttemptDirectKnownGood, plan.Attempts[0].Kind)
	assert.Equal(t, "https://netze-bw.de/netzentgelte/2024.pdf", plan.Attempts[0].URL)
	assert.Equal(t, "p1", plan.Attempts[0].PatternID)
}

func TestBuildPlan_BelowFloorIsTemplatedNotDirect(t *testing.T) {
	job := model.NewJob("netze-bw", 2024, model.DataKindGridCharges, model.PriorityHigh)
	p := lowConfidencePattern("p2", "https://netze-bw.de/archiv/{year}/entgelte.pdf")

	plan := New(testStrategyCfg()).BuildPlan(job, []*model.Pattern{p}, "")

	require.Len(t, plan.Attempts, 1)
	assert.Equal(t, AttemptTemplatedPattern, plan.Attempts[0].Kind)
	assert.Equal(t, "https://netze-bw.de/archiv/2024/entgelte.pdf", plan.Attempts[0].URL)
}

func TestBuildPlan_SiblingYearSubstitutesLiteralYear(t *testing.T) {
	job := model.NewJob("netze-bw", 2024, model.DataKindGridCharges, model.PriorityHigh)
	p := highConfidencePattern("p3", "https://netze-bw.de/netzentgelte/2023/preisblatt.pdf")

	plan := New(testStrategyCfg()).BuildPlan(job, []*model.Pattern{p}, "")

	require.Len(t, plan.Attempts, 1)
	assert.Equal(t, AttemptSiblingYear, plan.Attempts[0].Kind)
	assert.Equal(t, "https://netze-bw.de/netzentgelte/2024/preisblatt.pdf", plan.Attempts[0].URL)
}

func TestBuildPlan_SiblingYearSkippedWhenYearAlreadyMatches(t *testing.T) {
	job := model.NewJob("netze-bw", 2024, model.DataKindGridCharges, model.PriorityHigh)
	p := highConfidencePattern("p4", "https://netze-bw.de/netzentgelte/2024/preisblatt.pdf")

	plan := New(testStrategyCfg()).BuildPlan(job, []*model.Pattern{p}, "")

	require.Len(t, plan.Attempts, 0, "literal year already matches the job's year, nothing new to try")
}

func TestBuildPlan_ReverseCrawlLastResort(t *testing.T) {
	job := model.NewJob("netze-bw", 2024, model.DataKindGridCharges, model.PriorityHigh)

	plan := New(testStrategyCfg()).BuildPlan(job, nil, "https://netze-bw.de/netzentgelte/2023.pdf")

	require.Len(t, plan.Attempts, 1)
	assert.Equal(t, AttemptReverseCrawl, plan.Attempts[0].Kind)
	assert.Equal(t, "https://netze-bw.de/netzentgelte/2023.pdf", plan.Attempts[0].SeedURL)
	assert.Equal(t, "", plan.Attempts[0].URL)
}

func TestBuildPlan_EmptyWhenNoPatternsAndNoSeed(t *testing.T) {
	job := model.NewJob("netze-bw", 2024, model.DataKindGridCharges, model.PriorityHigh)

	plan := New(testStrategyCfg()).BuildPlan(job, nil, "")

	assert.Empty(t, plan.Attempts)
}

func TestBuildPlan_FullOrderingAcrossAllFourStages(t *testing.T) {
	job := model.NewJob("netze-bw", 2024, model.DataKindGridCharges, model.PriorityHigh)
	direct := highConfidencePattern("direct", "https://netze-bw.de/{year}.pdf")
	templated := lowConfidencePattern("templated", "https://netze-bw.de/drafts/{year}.pdf")
	sibling := highConfidencePattern("sibling", "https://netze-bw.de/2020/entgelte.pdf")

	plan := New(testStrategyCfg()).BuildPlan(
		job,
		[]*model.Pattern{direct, templated, sibling},
		"https://netze-bw.de/archive/2019.pdf",
	)

	require.Len(t, plan.Attempts, 4)
	assert.Equal(t, AttemptDirectKnownGood, plan.Attempts[0].Kind)
	assert.Equal(t, AttemptTemplatedPattern, plan.Attempts[1].Kind)
	assert.Equal(t, AttemptSiblingYear, plan.Attempts[2].Kind)
	assert.Equal(t, AttemptReverseCrawl, plan.Attempts[3].Kind)
}

func TestPlan_Exhausted(t *testing.T) {
	plan := &Plan{JobID: "j1", Attempts: []Attempt{{Kind: AttemptReverseCrawl}}}
	assert.False(t, plan.Exhausted(0))
	assert.True(t, plan.Exhausted(1))
}
