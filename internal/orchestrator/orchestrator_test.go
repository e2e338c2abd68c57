package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dno-gatherer/internal/cache"
	"github.com/ternarybob/dno-gatherer/internal/config"
	"github.com/ternarybob/dno-gatherer/internal/interfaces"
	"github.com/ternarybob/dno-gatherer/internal/model"
	"github.com/ternarybob/dno-gatherer/internal/pattern"
	"github.com/ternarybob/dno-gatherer/internal/repository"
	"github.com/ternarybob/dno-gatherer/internal/resourcemonitor"
	"github.com/ternarybob/dno-gatherer/internal/reversecrawler"
	"github.com/ternarybob/dno-gatherer/internal/strategy"
)

// fakeFetcher returns status/body (as text/html) for every URL.
type fakeFetcher struct {
	status int
	body   []byte
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string, _ time.Time) (*interfaces.FetchResult, error) {
	return &interfaces.FetchResult{
		Status:       f.status,
		Body:         f.body,
		ContentType:  "text/html",
		EffectiveURL: url,
		Elapsed:      time.Millisecond,
	}, nil
}

// fakeExtractor returns a fixed Bundle regardless of input.
type fakeExtractor struct {
	bundle *interfaces.Bundle
}

func (e *fakeExtractor) Extract(_ []byte, _ string, _ string) (*interfaces.Bundle, error) {
	return e.bundle, nil
}

func newTestOrchestrator(t *testing.T, fetcher interfaces.Fetcher, extractor interfaces.Extractor) *Orchestrator {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Orchestrator.MaxWorkers = 1
	cfg.Orchestrator.CommandChanSize = 8
	cfg.Orchestrator.ReportChanSize = 32
	cfg.Orchestrator.SweepSchedule = ""

	logger := arbor.NewLogger()
	patterns := pattern.New(nil, logger)
	repo := repository.New(cache.NewMemory(), repository.NewMemoryStore(), cfg.Cache.TTL, logger)
	engine := strategy.New(cfg.Strategy)
	monitor := resourcemonitor.New(cfg.ResourceMonitor)
	crawler := reversecrawler.New(fetcher, extractor, cfg.ReverseCrawler, logger)

	orch := New(cfg.Orchestrator, logger, patterns, repo, engine, monitor, crawler, fetcher, extractor, nil)
	require.NoError(t, orch.Start())
	t.Cleanup(orch.Stop)
	return orch
}

func waitForTerminal(t *testing.T, orch *Orchestrator, sessionID string) *model.Session {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sess, err := orch.QuerySession(sessionID)
		require.NoError(t, err)
		if sess.Status.IsTerminal() {
			return sess
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session did not reach a terminal state in time")
	return nil
}

func TestOrchestrator_SubmitRunsJobToCompletionViaReverseCrawl(t *testing.T) {
	bundle := &interfaces.Bundle{
		GridCharges: []model.GridChargeRecord{
			{OperatorKey: "netz-ohm", Year: 2024, VoltageLevel: model.VoltageHV, FieldID: "arbeitspreis"},
		},
	}
	fetcher := &fakeFetcher{status: 200, body: []byte("<html>tariff</html>")}
	extractor := &fakeExtractor{bundle: bundle}
	orch := newTestOrchestrator(t, fetcher, extractor)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// No learned patterns exist for this operator, so without a seed the
	// Plan would be empty. Record a prior Artifact first so the Strategy
	// Engine has a reverse-crawl seed to work with.
	require.NoError(t, orch.repo.PutArtifact(ctx, &model.Artifact{
		ID: "seed", OperatorKey: "netz-ohm", SourceURL: "https://netz-ohm.example/tariffs/2023/preise.html",
	}))

	job := model.NewJob("netz-ohm", 2024, model.DataKindGridCharges, model.PriorityHigh)
	sessionID, err := orch.Submit(ctx, job)
	require.NoError(t, err)
	require.Equal(t, job.ID, sessionID)

	sess := waitForTerminal(t, orch, sessionID)
	require.Equal(t, model.SessionCompleted, sess.Status)

	history := orch.SessionHistory("netz-ohm")
	require.NotEmpty(t, history)
}

func TestOrchestrator_CancelBeforeStartIsObservedAsCancelled(t *testing.T) {
	fetcher := &fakeFetcher{status: 200, body: []byte("<html></html>")}
	extractor := &fakeExtractor{bundle: &interfaces.Bundle{}}
	orch := newTestOrchestrator(t, fetcher, extractor)

	job := model.NewJob("netz-ohm", 2024, model.DataKindGridCharges, model.PriorityLow)
	ctx := context.Background()

	sessionID, err := orch.Submit(ctx, job)
	require.NoError(t, err)

	require.NoError(t, orch.Cancel(ctx, sessionID))

	sess := waitForTerminal(t, orch, sessionID)
	require.Equal(t, model.SessionCancelled, sess.Status)
}

func TestOrchestrator_PauseThenResume(t *testing.T) {
	fetcher := &fakeFetcher{status: 404}
	extractor := &fakeExtractor{bundle: &interfaces.Bundle{}}
	orch := newTestOrchestrator(t, fetcher, extractor)

	job := model.NewJob("netz-ohm", 2024, model.DataKindGridCharges, model.PriorityLow)
	ctx := context.Background()

	sessionID, err := orch.Submit(ctx, job)
	require.NoError(t, err)

	err = orch.Pause(ctx, sessionID)
	if err == nil {
		require.NoError(t, orch.Resume(ctx, sessionID))
	}
}

func TestOrchestrator_ExportSessionReturnsJSONSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{status: 404}
	extractor := &fakeExtractor{bundle: &interfaces.Bundle{}}
	orch := newTestOrchestrator(t, fetcher, extractor)

	job := model.NewJob("netz-ohm", 2024, model.DataKindGridCharges, model.PriorityLow)
	ctx := context.Background()

	sessionID, err := orch.Submit(ctx, job)
	require.NoError(t, err)
	waitForTerminal(t, orch, sessionID)

	data, err := orch.ExportSession(sessionID)
	require.NoError(t, err)
	require.Contains(t, string(data), sessionID)
}
