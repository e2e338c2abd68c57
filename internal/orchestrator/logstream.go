package orchestrator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/dno-gatherer/internal/model"
)

// logStream is one session's bounded log/progress channel. seq is strictly
// monotonic per session (§4.7) and never reordered; under back-pressure
// (the channel full) droppable levels (trace/debug/info, per
// model.LogLevel.Droppable) are discarded rather than blocking the worker
// that's emitting them, warn/error are never dropped.
type logStream struct {
	sessionID string
	ch        chan model.LogEntry
	seq       uint64
	dropped   uint64
	now       func() time.Time
}

func newLogStream(sessionID string, bufSize int, now func() time.Time) *logStream {
	if now == nil {
		now = time.Now
	}
	return &logStream{sessionID: sessionID, ch: make(chan model.LogEntry, bufSize), now: now}
}

// emit appends an entry, blocking never: a full channel drops a droppable
// entry, or forces room for a non-droppable one by discarding the oldest
// buffered entry.
func (s *logStream) emit(level model.LogLevel, message string, kv map[string]any) {
	entry := model.LogEntry{
		SessionID: s.sessionID,
		Seq:       atomic.AddUint64(&s.seq, 1),
		Ts:        s.now(),
		Level:     level,
		Message:   message,
		KV:        kv,
	}

	select {
	case s.ch <- entry:
		return
	default:
	}

	if level.Droppable() {
		atomic.AddUint64(&s.dropped, 1)
		return
	}

	// Non-droppable: make room by discarding the oldest buffered entry,
	// then retry once. Under sustained back-pressure this still keeps the
	// channel's most recent warn/error entries available to a subscriber.
	select {
	case <-s.ch:
		atomic.AddUint64(&s.dropped, 1)
	default:
	}
	select {
	case s.ch <- entry:
	default:
	}
}

func (s *logStream) droppedCount() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

func (s *logStream) close() {
	close(s.ch)
}

// logStreams owns every active session's logStream, so SubscribeLogs can
// look one up by session ID without the caller needing a reference.
type logStreams struct {
	mu      sync.Mutex
	streams map[string]*logStream
	bufSize int
}

func newLogStreams(bufSize int) *logStreams {
	return &logStreams{streams: make(map[string]*logStream), bufSize: bufSize}
}

func (l *logStreams) open(sessionID string) *logStream {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := newLogStream(sessionID, l.bufSize, nil)
	l.streams[sessionID] = s
	return s
}

func (l *logStreams) get(sessionID string) (*logStream, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.streams[sessionID]
	return s, ok
}

func (l *logStreams) closeAndRemove(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s, ok := l.streams[sessionID]; ok {
		s.close()
		delete(l.streams, sessionID)
	}
}
