package orchestrator

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/dno-gatherer/internal/config"
	"github.com/ternarybob/dno-gatherer/internal/interfaces"
	"github.com/ternarybob/dno-gatherer/internal/model"
	"github.com/ternarybob/dno-gatherer/internal/resourcemonitor"
	"github.com/ternarybob/dno-gatherer/internal/reversecrawler"
	"github.com/ternarybob/dno-gatherer/internal/strategy"
)

// Orchestrator owns the Job queue, the worker pool, and every submitted
// session's lifecycle (spec.md §4.5/§4.7). The sessions map is mutated
// only by the coordinator goroutine started in Start, which drains the
// bounded commands and reports channels -- every other caller, including
// the workers, only ever sends on those channels.
type Orchestrator struct {
	cfg      config.OrchestratorConfig
	logger   arbor.ILogger
	queue    *JobQueue
	monitor  *resourcemonitor.Monitor
	engine   *strategy.Engine
	patterns interfaces.PatternStore
	repo     interfaces.Repository
	crawler  *reversecrawler.Crawler
	fetcher  interfaces.Fetcher
	extractor interfaces.Extractor
	streams  *logStreams
	metrics  *metrics
	cron     *cron.Cron

	commands chan command
	reports  chan report
	stop     chan struct{}
	wg       sync.WaitGroup

	mu              sync.Mutex
	sessions        map[string]*sessionState
	terminalHistory map[string][]*model.Session // by operator key

	now func() time.Time
}

// New constructs an Orchestrator. registerer may be nil to skip Prometheus
// registration (used in tests to avoid duplicate-registration panics).
func New(
	cfg config.OrchestratorConfig,
	logger arbor.ILogger,
	patterns interfaces.PatternStore,
	repo interfaces.Repository,
	engine *strategy.Engine,
	monitor *resourcemonitor.Monitor,
	crawler *reversecrawler.Crawler,
	fetcher interfaces.Fetcher,
	extractor interfaces.Extractor,
	registerer prometheus.Registerer,
) *Orchestrator {
	return &Orchestrator{
		cfg:             cfg,
		logger:          logger,
		queue:           NewJobQueue(),
		monitor:         monitor,
		engine:          engine,
		patterns:        patterns,
		repo:            repo,
		crawler:         crawler,
		fetcher:         fetcher,
		extractor:       extractor,
		streams:         newLogStreams(maxInt(cfg.ReportChanSize, 16)),
		metrics:         newMetrics(registerer),
		commands:        make(chan command, maxInt(cfg.CommandChanSize, 1)),
		reports:         make(chan report, maxInt(cfg.ReportChanSize, 1)),
		stop:            make(chan struct{}),
		sessions:        make(map[string]*sessionState),
		terminalHistory: make(map[string][]*model.Session),
		now:             time.Now,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Start launches the coordinator goroutine, cfg.MaxWorkers worker
// goroutines, and the cron-scheduled sweep.
func (o *Orchestrator) Start() error {
	safeGo(o.logger, "orchestrator-coordinator", o.coordinatorLoop)

	for i := 0; i < o.cfg.MaxWorkers; i++ {
		idx := i
		o.wg.Add(1)
		safeGo(o.logger, "orchestrator-worker", func() { o.workerLoop(idx) })
	}

	if o.cfg.SweepSchedule != "" {
		if err := config.ValidateSweepSchedule(o.cfg.SweepSchedule); err != nil {
			return err
		}
		o.cron = cron.New(cron.WithSeconds())
		if _, err := o.cron.AddFunc(o.cfg.SweepSchedule, o.sweep); err != nil {
			return err
		}
		o.cron.Start()
	}

	return nil
}

// Stop closes the queue and stop channel, waits for workers to drain, and
// stops the cron scheduler.
func (o *Orchestrator) Stop() {
	if o.cron != nil {
		o.cron.Stop()
	}
	close(o.stop)
	o.queue.Close()
	o.wg.Wait()
}

// Submit validates and admits job, creating its Session. Returns the
// session ID (equal to the job ID) once queued.
func (o *Orchestrator) Submit(ctx context.Context, job *model.Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}

	result := make(chan error, 1)
	select {
	case o.commands <- command{kind: cmdSubmit, job: job, result: result}:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case err := <-result:
		if err != nil {
			return "", err
		}
		return job.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// QuerySession returns a snapshot of sessionID's current state.
func (o *Orchestrator) QuerySession(sessionID string) (*model.Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.sessions[sessionID]
	if !ok {
		return nil, model.NewNotFound("session not found: " + sessionID)
	}
	snapshot := *st.session
	return &snapshot, nil
}

// SubscribeLogs returns the read side of sessionID's bounded log channel.
func (o *Orchestrator) SubscribeLogs(sessionID string) (<-chan model.LogEntry, error) {
	stream, ok := o.streams.get(sessionID)
	if !ok {
		return nil, model.NewNotFound("session not found: " + sessionID)
	}
	return stream.ch, nil
}

// Cancel requests cancellation of sessionID. Idempotent: cancelling an
// already-terminal session is a no-op, not an error.
func (o *Orchestrator) Cancel(ctx context.Context, sessionID string) error {
	return o.sendControl(ctx, cmdCancel, sessionID)
}

// Pause requests sessionID pause at its next checkpoint.
func (o *Orchestrator) Pause(ctx context.Context, sessionID string) error {
	return o.sendControl(ctx, cmdPause, sessionID)
}

// Resume requests a paused sessionID resume.
func (o *Orchestrator) Resume(ctx context.Context, sessionID string) error {
	return o.sendControl(ctx, cmdResume, sessionID)
}

func (o *Orchestrator) sendControl(ctx context.Context, kind commandKind, sessionID string) error {
	result := make(chan error, 1)
	job := &model.Job{ID: sessionID}
	select {
	case o.commands <- command{kind: kind, job: job, result: result}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SessionHistory returns every terminal session recorded for operatorKey,
// most recent first.
func (o *Orchestrator) SessionHistory(operatorKey string) []*model.Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	hist := o.terminalHistory[operatorKey]
	out := make([]*model.Session, len(hist))
	for i, s := range hist {
		snapshot := *s
		out[len(hist)-1-i] = &snapshot
	}
	return out
}

// exportSnapshot is the JSON shape ExportSession returns.
type exportSnapshot struct {
	Session *model.Session    `json:"session"`
	Logs    []model.LogEntry  `json:"logs"`
}

// ExportSession returns a JSON snapshot of sessionID's Session plus its
// buffered log history.
func (o *Orchestrator) ExportSession(sessionID string) ([]byte, error) {
	o.mu.Lock()
	st, ok := o.sessions[sessionID]
	if !ok {
		o.mu.Unlock()
		return nil, model.NewNotFound("session not found: " + sessionID)
	}
	snapshot := *st.session
	logs := make([]model.LogEntry, len(st.history))
	copy(logs, st.history)
	o.mu.Unlock()

	return json.Marshal(exportSnapshot{Session: &snapshot, Logs: logs})
}

// coordinatorLoop is the sole mutator of the sessions map's contents. It
// runs for the process lifetime, draining commands (external control
// operations) and reports (worker state-transition updates).
func (o *Orchestrator) coordinatorLoop() {
	for {
		select {
		case cmd := <-o.commands:
			o.handleCommand(cmd)
		case rep := <-o.reports:
			o.handleReport(rep)
		}
	}
}

func (o *Orchestrator) handleCommand(cmd command) {
	switch cmd.kind {
	case cmdSubmit:
		cmd.result <- o.handleSubmit(cmd.job)
	case cmdCancel:
		cmd.result <- o.handleCancel(cmd.job.ID)
	case cmdPause:
		cmd.result <- o.handleTransition(cmd.job.ID, model.SessionPaused, "paused")
	case cmdResume:
		cmd.result <- o.handleResume(cmd.job.ID)
	}
}

func (o *Orchestrator) handleSubmit(job *model.Job) error {
	ctx, cancel := context.WithCancel(context.Background())
	if o.cfg.PerJobWallClock > 0 {
		ctx, cancel = context.WithTimeout(ctx, o.cfg.PerJobWallClock)
	}

	st := &sessionState{
		job:     job,
		session: model.NewSession(job.ID),
		ctx:     ctx,
		cancel:  cancel,
		stream:  o.streams.open(job.ID),
	}

	o.mu.Lock()
	o.sessions[job.ID] = st
	o.mu.Unlock()

	if !o.queue.Push(job) {
		cancel()
		return model.NewBadInput("orchestrator is shutting down")
	}

	o.metrics.jobsSubmitted.Inc()
	o.metrics.queueDepth.Set(float64(o.queue.Len()))
	return nil
}

// handleCancel is idempotent: cancelling an unknown or already-terminal
// session is a no-op rather than an error, so a racing Cancel call against
// a job that just completed never surfaces to the caller as a failure.
func (o *Orchestrator) handleCancel(sessionID string) error {
	o.mu.Lock()
	st, ok := o.sessions[sessionID]
	o.mu.Unlock()
	if !ok || st.session.Status.IsTerminal() {
		return nil
	}
	st.cancel()
	return nil
}

func (o *Orchestrator) handleTransition(sessionID string, to model.SessionStatus, phase string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.sessions[sessionID]
	if !ok {
		return model.NewNotFound("session not found: " + sessionID)
	}
	if !st.session.Apply(to, phase) {
		return model.NewBadInput("cannot transition session to " + string(to))
	}
	return nil
}

func (o *Orchestrator) handleResume(sessionID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.sessions[sessionID]
	if !ok {
		return model.NewNotFound("session not found: " + sessionID)
	}
	if !st.session.Resume("resumed") {
		return model.NewBadInput("session is not paused")
	}
	return nil
}

// handleReport applies a worker's reported transition to its Session,
// appends to its bounded history, and -- for a terminal report -- records
// the Session under its operator's history and schedules the log stream's
// removal after cfg.CancelGrace so a late subscriber still has a window to
// read the final entries.
func (o *Orchestrator) handleReport(rep report) {
	o.mu.Lock()
	st, ok := o.sessions[rep.sessionID]
	if !ok {
		o.mu.Unlock()
		return
	}

	st.session.Apply(rep.toStatus, rep.phase)
	if rep.attempt > 0 {
		st.session.AttemptCount = rep.attempt
	}

	level := model.LevelInfo
	message := rep.phase
	if rep.err != nil {
		level = model.LevelError
		message = rep.err.Error()
	}
	st.appendHistory(model.LogEntry{
		SessionID: rep.sessionID,
		Ts:        time.Now(),
		Level:     level,
		Message:   message,
	})
	st.stream.emit(level, message, nil)

	terminal := rep.kind == reportDone
	var operatorKey string
	var snapshot model.Session
	if terminal {
		operatorKey = st.job.OperatorKey
		snapshot = *st.session
	}
	o.mu.Unlock()

	if !terminal {
		return
	}

	outcome := "failed"
	switch rep.toStatus {
	case model.SessionCompleted:
		outcome = "completed"
	case model.SessionCancelled:
		outcome = "cancelled"
	}
	o.metrics.jobsCompleted.WithLabelValues(outcome).Inc()

	o.mu.Lock()
	o.terminalHistory[operatorKey] = append(o.terminalHistory[operatorKey], &snapshot)
	o.mu.Unlock()

	sessionID := rep.sessionID
	if grace := o.cfg.CancelGrace; grace > 0 {
		time.AfterFunc(grace, func() { o.streams.closeAndRemove(sessionID) })
	} else {
		o.streams.closeAndRemove(sessionID)
	}
}

// sweep runs on cfg.SweepSchedule: it re-queues sessions that have not
// reported progress within cfg.PerJobWallClock (a worker likely died
// mid-attempt without reporting) so their Job is retried by another
// worker. It performs no artifact garbage collection by cfg.ArtifactMaxAge:
// the Repository interface has no enumeration method to drive it from here.
func (o *Orchestrator) sweep() {
	staleAfter := o.cfg.PerJobWallClock
	if staleAfter <= 0 {
		return
	}

	o.mu.Lock()
	var stale []*model.Job
	for _, st := range o.sessions {
		if st.session.Status.IsTerminal() || st.session.Status == model.SessionPaused {
			continue
		}
		if time.Since(st.session.LastEventAt) > staleAfter {
			stale = append(stale, st.job)
		}
	}
	o.mu.Unlock()

	for _, job := range stale {
		o.logger.Warn().Str("job_id", job.ID).Msg("sweep requeueing stale session")
		o.queue.PushFront(job)
		o.metrics.sweepRequeues.Inc()
	}
}
