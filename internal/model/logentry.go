package model

import "time"

// LogLevel mirrors arbor's log levels, scoped to what a Session emits.
type LogLevel string

const (
	LevelTrace LogLevel = "trace"
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// levelRank orders levels for back-pressure dropping: trace drops first,
// then debug, then info; warn and error are never dropped.
var levelRank = map[LogLevel]int{
	LevelTrace: 0,
	LevelDebug: 1,
	LevelInfo:  2,
	LevelWarn:  3,
	LevelError: 4,
}

// Droppable reports whether entries at this level may be discarded under
// report-channel back-pressure (§4.7: drop trace/debug, then info, never
// warn/error).
func (l LogLevel) Droppable() bool {
	return levelRank[l] < levelRank[LevelWarn]
}

// LogEntry is one line of a session's log stream. seq is strictly monotonic
// per session and is never reordered by transport.
type LogEntry struct {
	SessionID string         `json:"session_id"`
	Seq       uint64         `json:"seq"`
	Ts        time.Time      `json:"ts"`
	Level     LogLevel       `json:"level"`
	Message   string         `json:"message"`
	KV        map[string]any `json:"kv,omitempty"`
}
