package orchestrator

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the orchestrator's Prometheus instrumentation. Each
// Orchestrator constructs its own registry-scoped set rather than using the
// global default registry, so multiple Orchestrators (as in tests) never
// collide on metric registration.
type metrics struct {
	jobsSubmitted   prometheus.Counter
	jobsCompleted   *prometheus.CounterVec // by outcome: completed/failed/cancelled
	attemptsTried   *prometheus.CounterVec // by strategy.AttemptKind
	queueDepth      prometheus.Gauge
	activeWorkers   prometheus.Gauge
	sweepRequeues   prometheus.Counter
	sweepArtifactGC prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) *metrics {
	m := &metrics{
		jobsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dno_gatherer_jobs_submitted_total",
			Help: "Total number of jobs submitted to the orchestrator.",
		}),
		jobsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dno_gatherer_jobs_completed_total",
			Help: "Total number of jobs reaching a terminal state, by outcome.",
		}, []string{"outcome"}),
		attemptsTried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dno_gatherer_plan_attempts_total",
			Help: "Total number of strategy plan attempts executed, by kind.",
		}, []string{"kind"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dno_gatherer_queue_depth",
			Help: "Current number of jobs waiting in the priority queue.",
		}),
		activeWorkers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dno_gatherer_active_workers",
			Help: "Current number of workers actively processing a job.",
		}),
		sweepRequeues: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dno_gatherer_sweep_requeues_total",
			Help: "Total number of stale sessions re-queued by the sweep.",
		}),
		sweepArtifactGC: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dno_gatherer_sweep_artifact_gc_total",
			Help: "Total number of artifacts garbage-collected by the sweep.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.jobsSubmitted, m.jobsCompleted, m.attemptsTried,
			m.queueDepth, m.activeWorkers, m.sweepRequeues, m.sweepArtifactGC)
	}
	return m
}
