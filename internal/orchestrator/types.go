package orchestrator

import (
	"context"

	"github.com/ternarybob/dno-gatherer/internal/model"
)

// historyCap bounds how many log entries a sessionState retains for
// ExportSession once the live stream has moved past them.
const historyCap = 500

// sessionState is the orchestrator's private bookkeeping for one
// submitted Job: its Session, its cancellation func, and a capped
// history of log entries for export after the stream itself is gone.
type sessionState struct {
	job     *model.Job
	session *model.Session
	ctx     context.Context
	cancel  context.CancelFunc
	stream  *logStream
	history []model.LogEntry
}

func (s *sessionState) appendHistory(entry model.LogEntry) {
	s.history = append(s.history, entry)
	if len(s.history) > historyCap {
		s.history = s.history[len(s.history)-historyCap:]
	}
}

// commandKind distinguishes the control operations Submit/Cancel/Pause/
// Resume send to the coordinator goroutine, the sole mutator of the
// sessions map.
type commandKind int

const (
	cmdSubmit commandKind = iota
	cmdCancel
	cmdPause
	cmdResume
)

type command struct {
	kind   commandKind
	job    *model.Job
	result chan error
}

// reportKind distinguishes the status updates a worker sends back to the
// coordinator about a session it owns.
type reportKind int

const (
	reportTransition reportKind = iota
	reportDone
)

type report struct {
	sessionID string
	kind      reportKind
	toStatus  model.SessionStatus
	phase     string
	progress  float64
	attempt   int
	err       error
}
