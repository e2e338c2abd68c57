// Package resourcemonitor gates worker admission per spec.md §4.5: current
// active-worker count, a soft memory ceiling, and per-host inflight counts.
// CanAdmit never blocks; a caller that gets false re-queues its job at the
// head with unchanged priority.
package resourcemonitor

import (
	"runtime"
	"sync"

	"github.com/ternarybob/dno-gatherer/internal/config"
)

// Monitor tracks active worker and per-host inflight counts in memory and
// decides admission against config.ResourceMonitorConfig's caps.
type Monitor struct {
	mu     sync.Mutex
	cfg    config.ResourceMonitorConfig
	active int
	inHost map[string]int

	// memStats is swappable so tests can exercise the ceiling without
	// depending on the live process's actual memory footprint.
	memStats func() uint64
}

// New constructs a Monitor from cfg.
func New(cfg config.ResourceMonitorConfig) *Monitor {
	return &Monitor{
		cfg:    cfg,
		inHost: make(map[string]int),
		memStats: func() uint64 {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			return m.Alloc
		},
	}
}

// CanAdmit reports whether a new worker may start crawling host. Pure in
// the sense that it never blocks; it only reads the current counters.
func (m *Monitor) CanAdmit(host string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.MaxWorkers > 0 && m.active >= m.cfg.MaxWorkers {
		return false
	}
	if m.cfg.PerHostCap > 0 && m.inHost[host] >= m.cfg.PerHostCap {
		return false
	}
	if m.cfg.MemCeilingMB > 0 {
		allocMB := int64(m.memStats() / (1024 * 1024))
		if allocMB >= m.cfg.MemCeilingMB {
			return false
		}
	}
	return true
}

// Acquire records that a worker has started against host. Callers must only
// call this after a true CanAdmit result for the same host, under the same
// external serialization (the Orchestrator's single queue-owning task).
func (m *Monitor) Acquire(host string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active++
	m.inHost[host]++
}

// Release records that a worker has finished (successfully, on failure, or
// on cancellation) against host.
func (m *Monitor) Release(host string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active > 0 {
		m.active--
	}
	if m.inHost[host] > 0 {
		m.inHost[host]--
	}
}

// ActiveWorkers returns the current active worker count, for diagnostics.
func (m *Monitor) ActiveWorkers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// InflightForHost returns the current inflight count for host, for diagnostics.
func (m *Monitor) InflightForHost(host string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inHost[host]
}
