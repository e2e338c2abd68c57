// Package model holds the data types shared across the acquisition pipeline:
// jobs, sessions, log entries, artifacts, records, patterns and cache entries.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders Jobs inside the queue. Higher values run first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// String returns the lower-case name used in logs and config files.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// IsValid reports whether p is one of the defined priority levels.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ParsePriority parses the lower-case string form back into a Priority.
func ParsePriority(s string) (Priority, bool) {
	switch s {
	case "low":
		return PriorityLow, true
	case "medium":
		return PriorityMedium, true
	case "high":
		return PriorityHigh, true
	case "critical":
		return PriorityCritical, true
	}
	return 0, false
}

// DataKind is the category of tariff data a Job requests.
type DataKind string

const (
	DataKindGridCharges DataKind = "grid_charges"
	DataKindLoadWindow  DataKind = "load_window"
	DataKindBoth        DataKind = "both"
)

// IsValid reports whether k is one of the defined data kinds.
func (k DataKind) IsValid() bool {
	switch k {
	case DataKindGridCharges, DataKindLoadWindow, DataKindBoth:
		return true
	}
	return false
}

// Constraints bounds the work a Job's plan may perform.
type Constraints struct {
	MaxPages     int           `json:"max_pages,omitempty"`
	MaxWallTime  time.Duration `json:"max_wall_time,omitempty"`
	AllowedHosts []string      `json:"allowed_hosts,omitempty"`
}

// Job is the immutable request for an operator's tariff data in a given year.
// Once enqueued it must not be mutated; a retry is always a new Job.
type Job struct {
	ID          string      `json:"id"`
	OperatorKey string      `json:"operator_key"`
	Year        int         `json:"year"`
	DataKind    DataKind    `json:"data_kind"`
	Priority    Priority    `json:"priority"`
	Constraints Constraints `json:"constraints"`
	CreatedAt   time.Time   `json:"created_at"`
	Deadline    *time.Time  `json:"deadline,omitempty"`
}

// NewJob constructs a Job with a fresh UUID and CreatedAt set to now.
func NewJob(operatorKey string, year int, kind DataKind, priority Priority) *Job {
	return &Job{
		ID:          uuid.New().String(),
		OperatorKey: operatorKey,
		Year:        year,
		DataKind:    kind,
		Priority:    priority,
		CreatedAt:   time.Now(),
	}
}

// Validate checks the Job is well formed enough to be admitted for scheduling.
func (j *Job) Validate() error {
	if j.ID == "" {
		return NewBadInput("job id is required")
	}
	if j.OperatorKey == "" {
		return NewBadInput("operator_key is required")
	}
	if !j.DataKind.IsValid() {
		return NewBadInput("data_kind is invalid: " + string(j.DataKind))
	}
	if !j.Priority.IsValid() {
		return NewBadInput("priority is invalid")
	}
	if j.Year < 1990 || j.Year > time.Now().Year()+1 {
		return NewBadInput("year out of range")
	}
	return nil
}
