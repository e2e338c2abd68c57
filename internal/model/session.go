package model

import "time"

// SessionStatus is the machine-consumed lifecycle field of a Session.
type SessionStatus string

const (
	SessionQueued       SessionStatus = "queued"
	SessionInitializing SessionStatus = "initializing"
	SessionSearching    SessionStatus = "searching"
	SessionCrawling     SessionStatus = "crawling"
	SessionExtracting   SessionStatus = "extracting"
	SessionCompleted    SessionStatus = "completed"
	SessionFailed       SessionStatus = "failed"
	SessionCancelled    SessionStatus = "cancelled"
	SessionPaused       SessionStatus = "paused"
)

// IsTerminal reports whether s is one of the final states from which no
// further transition is observable.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionCompleted, SessionFailed, SessionCancelled:
		return true
	}
	return false
}

// IsValid reports whether s is one of the defined statuses.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionQueued, SessionInitializing, SessionSearching, SessionCrawling,
		SessionExtracting, SessionCompleted, SessionFailed, SessionCancelled, SessionPaused:
		return true
	}
	return false
}

// AllSessionStatuses lists every defined status, for exhaustiveness tests.
func AllSessionStatuses() []SessionStatus {
	return []SessionStatus{
		SessionQueued, SessionInitializing, SessionSearching, SessionCrawling,
		SessionExtracting, SessionCompleted, SessionFailed, SessionCancelled, SessionPaused,
	}
}

// validTransitions enumerates the edges of the state machine in §4.7. Pause
// is reachable from any non-terminal state and resume returns to the state
// recorded in PausedFrom; those two are handled specially in Session.Apply
// rather than listed exhaustively here.
var validTransitions = map[SessionStatus]map[SessionStatus]bool{
	SessionQueued:       {SessionInitializing: true},
	SessionInitializing: {SessionSearching: true, SessionFailed: true},
	SessionSearching:    {SessionCrawling: true, SessionFailed: true},
	SessionCrawling:     {SessionExtracting: true, SessionFailed: true},
	SessionExtracting:   {SessionCompleted: true, SessionSearching: true, SessionFailed: true},
}

// CanTransition reports whether moving from 'from' to 'to' is legal under the
// state machine, independent of the pause/resume and cancel side channels
// which Session.Apply handles explicitly.
func CanTransition(from, to SessionStatus) bool {
	if from.IsTerminal() {
		return false
	}
	edges, ok := validTransitions[from]
	if !ok {
		return false
	}
	return edges[to]
}

// Session is the mutable runtime companion to a Job.
type Session struct {
	JobID        string        `json:"job_id"`
	Status       SessionStatus `json:"status"`
	Phase        string        `json:"phase"`
	QueuePos     *int          `json:"queue_position,omitempty"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	Progress     float64       `json:"progress"`
	AttemptCount int           `json:"attempt_count"`
	LastEventAt  time.Time     `json:"last_event_at"`

	// pausedFrom remembers the status resume() should return to.
	pausedFrom SessionStatus
}

// NewSession creates a freshly queued Session for jobID.
func NewSession(jobID string) *Session {
	return &Session{
		JobID:       jobID,
		Status:      SessionQueued,
		Phase:       "queued",
		LastEventAt: time.Now(),
	}
}

// Apply attempts the transition to 'to', returning false if illegal. A
// terminal Session never transitions again, including into pause/cancel.
func (s *Session) Apply(to SessionStatus, phase string) bool {
	if s.Status.IsTerminal() {
		return false
	}

	switch to {
	case SessionCancelled:
		s.Status = SessionCancelled
		s.Phase = phase
		s.LastEventAt = time.Now()
		return true
	case SessionPaused:
		if s.Status == SessionPaused {
			return false
		}
		s.pausedFrom = s.Status
		s.Status = SessionPaused
		s.Phase = phase
		s.LastEventAt = time.Now()
		return true
	}

	if s.Status == SessionPaused {
		// Only resume (back to pausedFrom) is legal while paused.
		if to != s.pausedFrom {
			return false
		}
		s.Status = to
		s.Phase = phase
		s.LastEventAt = time.Now()
		return true
	}

	if !CanTransition(s.Status, to) {
		return false
	}
	s.Status = to
	s.Phase = phase
	s.LastEventAt = time.Now()
	return true
}

// Resume transitions a paused Session back to the state it was paused from.
func (s *Session) Resume(phase string) bool {
	if s.Status != SessionPaused {
		return false
	}
	return s.Apply(s.pausedFrom, phase)
}
