package orchestrator

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/ternarybob/dno-gatherer/internal/interfaces"
	"github.com/ternarybob/dno-gatherer/internal/model"
	"github.com/ternarybob/dno-gatherer/internal/strategy"
)

// workerLoop pulls Jobs off the priority queue until it is closed.
func (o *Orchestrator) workerLoop(idx int) {
	defer o.wg.Done()
	for {
		job, ok := o.queue.Pop(o.stop)
		if !ok {
			return
		}
		o.metrics.queueDepth.Set(float64(o.queue.Len()))
		o.metrics.activeWorkers.Inc()
		o.runJob(job)
		o.metrics.activeWorkers.Dec()
	}
}

func (o *Orchestrator) session(jobID string) (*sessionState, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.sessions[jobID]
	return st, ok
}

func (o *Orchestrator) transition(sessionID string, toStatus model.SessionStatus, phase string, attempt int) {
	o.reports <- report{sessionID: sessionID, kind: reportTransition, toStatus: toStatus, phase: phase, attempt: attempt}
}

func (o *Orchestrator) finish(sessionID string, toStatus model.SessionStatus, phase string, err error) {
	o.reports <- report{sessionID: sessionID, kind: reportDone, toStatus: toStatus, phase: phase, err: err}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Host
}

// runJob assembles a Plan for job and tries each Attempt in order,
// reporting every phase transition back to the coordinator. It never
// touches the sessions map directly.
func (o *Orchestrator) runJob(job *model.Job) {
	st, ok := o.session(job.ID)
	if !ok {
		return
	}
	ctx := st.ctx
	stream := st.stream

	if ctx.Err() != nil {
		o.finish(job.ID, model.SessionCancelled, "cancelled before start", ctx.Err())
		return
	}

	o.transition(job.ID, model.SessionInitializing, "initializing", 0)
	stream.emit(model.LevelInfo, "job started", map[string]any{
		"operator_key": job.OperatorKey, "year": job.Year,
	})

	patterns, err := o.patterns.PatternsFor(job.OperatorKey)
	if err != nil {
		stream.emit(model.LevelError, "pattern lookup failed", map[string]any{"error": err.Error()})
		o.finish(job.ID, model.SessionFailed, "pattern lookup failed", err)
		return
	}

	seedURL := ""
	if artifact, err := o.repo.LatestArtifactForOperator(ctx, job.OperatorKey); err == nil {
		seedURL = artifact.SourceURL
	}

	plan := o.engine.BuildPlan(job, patterns, seedURL)
	o.transition(job.ID, model.SessionSearching, "searching", 0)

	var bundle *interfaces.Bundle
	var succeeded *strategy.Attempt

	for i := range plan.Attempts {
		attempt := plan.Attempts[i]

		select {
		case <-ctx.Done():
			o.finish(job.ID, model.SessionCancelled, "cancelled", ctx.Err())
			return
		default:
		}

		o.transition(job.ID, model.SessionCrawling, string(attempt.Kind), i+1)

		b, requeue := o.tryAttempt(ctx, stream, job, &attempt)
		if requeue {
			o.queue.PushFront(job)
			return
		}
		if b != nil {
			bundle = b
			succeeded = &attempt
			break
		}
	}

	if bundle == nil {
		stream.emit(model.LevelWarn, "plan exhausted without success", nil)
		o.finish(job.ID, model.SessionFailed, "exhausted", errors.New("no attempt in plan succeeded"))
		return
	}

	o.transition(job.ID, model.SessionExtracting, "extracting", 0)
	if err := o.repo.PutGridCharges(ctx, bundle.GridCharges); err != nil {
		o.finish(job.ID, model.SessionFailed, "persisting grid charges", err)
		return
	}
	if err := o.repo.PutLoadWindows(ctx, bundle.LoadWindows); err != nil {
		o.finish(job.ID, model.SessionFailed, "persisting load windows", err)
		return
	}

	if bundle.Markdown != "" {
		stream.emit(model.LevelDebug, "markdown artifact available for diffing", map[string]any{
			"markdown_bytes": len(bundle.Markdown),
		})
	}

	stream.emit(model.LevelInfo, "job completed", map[string]any{
		"attempt_kind": string(succeeded.Kind),
		"grid_charges": len(bundle.GridCharges),
		"load_windows": len(bundle.LoadWindows),
	})
	o.finish(job.ID, model.SessionCompleted, "completed", nil)
}

// tryAttempt executes a single Plan Attempt. A non-nil Bundle means
// success; requeue=true means the Resource Monitor refused admission and
// the caller must re-push job and stop, since another worker may now pick
// it up.
func (o *Orchestrator) tryAttempt(ctx context.Context, stream *logStream, job *model.Job, attempt *strategy.Attempt) (*interfaces.Bundle, bool) {
	if attempt.Kind == strategy.AttemptReverseCrawl {
		return o.tryReverseCrawl(ctx, stream, job, attempt), false
	}

	host := hostOf(attempt.URL)
	if !o.monitor.CanAdmit(host) {
		stream.emit(model.LevelDebug, "resource monitor refused admission, requeueing", map[string]any{"host": host})
		return nil, true
	}

	o.monitor.Acquire(host)
	defer o.monitor.Release(host)

	fr, err := o.fetcher.Fetch(ctx, attempt.URL, time.Time{})
	success := err == nil && fr != nil && fr.Status >= 200 && fr.Status < 300

	var latencyMs int64
	if fr != nil {
		latencyMs = fr.Elapsed.Milliseconds()
	}
	if attempt.PatternID != "" {
		_ = o.patterns.RecordOutcome(attempt.PatternID, success, latencyMs)
	}

	if !success {
		if err != nil {
			stream.emit(model.LevelDebug, "attempt failed", map[string]any{"url": attempt.URL, "error": err.Error()})
		}
		return nil, false
	}

	bundle, err := o.extractor.Extract(fr.Body, fr.ContentType, job.OperatorKey)
	if err != nil {
		stream.emit(model.LevelWarn, "extraction failed", map[string]any{"url": attempt.URL, "error": err.Error()})
		return nil, false
	}

	artifact := &model.Artifact{
		ID:          uuid.New().String(),
		OperatorKey: job.OperatorKey,
		SourceURL:   attempt.URL,
		MIME:        fr.ContentType,
		FetchedAt:   time.Now(),
		SizeBytes:   int64(len(fr.Body)),
	}
	if fr.EffectiveURL != "" {
		artifact.SourceURL = fr.EffectiveURL
	}
	if err := o.repo.PutArtifact(ctx, artifact); err != nil {
		stream.emit(model.LevelWarn, "artifact persist failed", map[string]any{"error": err.Error()})
	}

	return bundle, false
}

// tryReverseCrawl delegates to the Reverse Crawler, persists any Artifacts
// and learned Patterns it returns, then re-fetches and extracts the first
// matching Artifact.
func (o *Orchestrator) tryReverseCrawl(ctx context.Context, stream *logStream, job *model.Job, attempt *strategy.Attempt) *interfaces.Bundle {
	stream.emit(model.LevelInfo, "starting reverse crawl", map[string]any{"seed_url": attempt.SeedURL})

	result, err := o.crawler.Crawl(ctx, job.OperatorKey, attempt.SeedURL, []int{job.Year})
	if err != nil {
		stream.emit(model.LevelWarn, "reverse crawl failed", map[string]any{"error": err.Error()})
		return nil
	}

	for _, p := range result.Patterns {
		if _, err := o.patterns.UpsertLearned(p); err != nil {
			stream.emit(model.LevelWarn, "pattern upsert failed", map[string]any{"error": err.Error()})
		}
	}

	if len(result.Artifacts) == 0 {
		return nil
	}
	found := result.Artifacts[0]
	if err := o.repo.PutArtifact(ctx, found); err != nil {
		stream.emit(model.LevelWarn, "artifact persist failed", map[string]any{"error": err.Error()})
	}

	host := hostOf(found.SourceURL)
	if !o.monitor.CanAdmit(host) {
		return nil
	}
	o.monitor.Acquire(host)
	defer o.monitor.Release(host)

	fr, err := o.fetcher.Fetch(ctx, found.SourceURL, time.Time{})
	if err != nil || fr == nil || fr.Status < 200 || fr.Status >= 300 {
		return nil
	}

	bundle, err := o.extractor.Extract(fr.Body, fr.ContentType, job.OperatorKey)
	if err != nil {
		stream.emit(model.LevelWarn, "extraction failed after reverse crawl", map[string]any{"error": err.Error()})
		return nil
	}
	return bundle
}
