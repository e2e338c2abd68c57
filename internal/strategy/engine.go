package strategy

import (
	"regexp"
	"strconv"

	"github.com/ternarybob/dno-gatherer/internal/config"
	"github.com/ternarybob/dno-gatherer/internal/model"
	"github.com/ternarybob/dno-gatherer/internal/pattern"
)

// literalYear matches a bare four-digit year token (1900-2099) inside a
// pattern template that has no {year} hole of its own -- a pattern learned
// against one specific year's concrete URL rather than a parameterized one.
var literalYear = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Engine assembles a Plan from an already-ranked pattern set. It is pure:
// no I/O, no pattern store lookups of its own. Callers fetch
// interfaces.PatternStore.PatternsFor and a candidate reverse-crawl seed
// URL (e.g. the operator's most recently successful Artifact) beforehand.
type Engine struct {
	cfg config.StrategyConfig
}

// New constructs an Engine from cfg.
func New(cfg config.StrategyConfig) *Engine {
	return &Engine{cfg: cfg}
}

// BuildPlan assembles the four-stage Plan described in §4.6 for job, given
// operatorPatterns already ranked by (confidence desc, last_used_at desc, id
// asc) -- the order pattern.Store.PatternsFor returns -- and seedURL, the
// most recently successful Artifact URL for job.OperatorKey, or "" if none.
func (e *Engine) BuildPlan(job *model.Job, operatorPatterns []*model.Pattern, seedURL string) *Plan {
	bindings := map[string]string{"year": strconv.Itoa(job.Year)}
	floor := e.cfg.DirectPathConfidenceFloor

	plan := &Plan{JobID: job.ID}

	// 1. Direct known-good paths: at-or-above-floor patterns parameterized
	// by year, instantiated directly with this job's year.
	for _, p := range operatorPatterns {
		if p.Confidence() < floor {
			continue
		}
		if !hasVariable(p.Template, "year") {
			continue
		}
		url, err := pattern.Instantiate(p, bindings)
		if err != nil {
			continue
		}
		plan.Attempts = append(plan.Attempts, Attempt{
			Kind:          AttemptDirectKnownGood,
			PatternID:     p.ID,
			URL:           url,
			TimeBudget:    e.cfg.AttemptTimeBudget,
			RequestBudget: e.cfg.AttemptRequestBudget,
		})
	}

	// 2. Templated patterns: below-floor patterns, instantiated with this
	// job's year to test them.
	for _, p := range operatorPatterns {
		if p.Confidence() >= floor {
			continue
		}
		url, err := pattern.Instantiate(p, bindings)
		if err != nil {
			continue
		}
		plan.Attempts = append(plan.Attempts, Attempt{
			Kind:          AttemptTemplatedPattern,
			PatternID:     p.ID,
			URL:           url,
			TimeBudget:    e.cfg.AttemptTimeBudget,
			RequestBudget: e.cfg.AttemptRequestBudget,
		})
	}

	// 3. Sibling-year patterns: at-or-above-floor patterns with a literal
	// year baked into the template (no {year} hole), for a year other than
	// this job's -- substitute this job's year in textually.
	yearStr := strconv.Itoa(job.Year)
	for _, p := range operatorPatterns {
		if p.Confidence() < floor || hasVariable(p.Template, "year") {
			continue
		}
		match := literalYear.FindString(p.Template)
		if match == "" || match == yearStr {
			continue
		}
		url := literalYear.ReplaceAllString(p.Template, yearStr)
		plan.Attempts = append(plan.Attempts, Attempt{
			Kind:          AttemptSiblingYear,
			PatternID:     p.ID,
			URL:           url,
			TimeBudget:    e.cfg.AttemptTimeBudget,
			RequestBudget: e.cfg.AttemptRequestBudget,
		})
	}

	// 4. Reverse-crawl, last resort.
	if seedURL != "" {
		plan.Attempts = append(plan.Attempts, Attempt{
			Kind:          AttemptReverseCrawl,
			SeedURL:       seedURL,
			TimeBudget:    e.cfg.ReverseCrawlTimeBudget,
			RequestBudget: e.cfg.ReverseCrawlRequestBudget,
		})
	}

	return plan
}

func hasVariable(template, name string) bool {
	for _, v := range pattern.RequiredVariables(template) {
		if v == name {
			return true
		}
	}
	return false
}
