package model

import "errors"

// FailureKind tags the error taxonomy described for the acquisition pipeline.
// Handling must be exhaustive; AllFailureKinds backs that exhaustiveness in tests.
type FailureKind string

const (
	FailureBadInput       FailureKind = "bad_input"
	FailureNotFound       FailureKind = "not_found"
	FailureTransient      FailureKind = "transient"
	FailurePermanentFetch FailureKind = "permanent_fetch"
	FailureParse          FailureKind = "parse"
	FailureExhausted      FailureKind = "exhausted"
	FailureCancelled      FailureKind = "cancelled"
	FailureInternal       FailureKind = "internal"
)

// AllFailureKinds lists every defined FailureKind, for exhaustiveness tests.
func AllFailureKinds() []FailureKind {
	return []FailureKind{
		FailureBadInput, FailureNotFound, FailureTransient, FailurePermanentFetch,
		FailureParse, FailureExhausted, FailureCancelled, FailureInternal,
	}
}

// PipelineError is the common error shape for the acquisition pipeline. It
// carries a FailureKind so callers can switch on errors.As without parsing
// strings, plus free-form key/value detail mirroring a LogEntry's kv field.
type PipelineError struct {
	Kind    FailureKind
	Message string
	KV      map[string]any
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func newErr(kind FailureKind, msg string) *PipelineError {
	return &PipelineError{Kind: kind, Message: msg}
}

// NewBadInput builds a BadInput PipelineError.
func NewBadInput(msg string) *PipelineError { return newErr(FailureBadInput, msg) }

// NewNotFound builds a NotFound PipelineError.
func NewNotFound(msg string) *PipelineError { return newErr(FailureNotFound, msg) }

// NewTransient builds a Transient PipelineError wrapping cause.
func NewTransient(msg string, cause error) *PipelineError {
	return &PipelineError{Kind: FailureTransient, Message: msg, Cause: cause}
}

// NewPermanentFetch builds a PermanentFetch PipelineError.
func NewPermanentFetch(msg string) *PipelineError { return newErr(FailurePermanentFetch, msg) }

// NewParse builds a Parse PipelineError.
func NewParse(msg string) *PipelineError { return newErr(FailureParse, msg) }

// NewExhausted builds an Exhausted PipelineError.
func NewExhausted(msg string) *PipelineError { return newErr(FailureExhausted, msg) }

// NewCancelled builds a Cancelled PipelineError.
func NewCancelled(msg string) *PipelineError { return newErr(FailureCancelled, msg) }

// NewInternal builds an Internal PipelineError, attaching kv as diagnostic detail.
func NewInternal(msg string, kv map[string]any) *PipelineError {
	return &PipelineError{Kind: FailureInternal, Message: msg, KV: kv}
}

// Is allows errors.Is(err, model.ErrNotFound) style sentinel checks by kind.
func (e *PipelineError) Is(target error) bool {
	t, ok := target.(*PipelineError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel instances for errors.Is comparisons against a bare kind.
var (
	ErrBadInput       = &PipelineError{Kind: FailureBadInput}
	ErrNotFound       = &PipelineError{Kind: FailureNotFound}
	ErrTransient      = &PipelineError{Kind: FailureTransient}
	ErrPermanentFetch = &PipelineError{Kind: FailurePermanentFetch}
	ErrParse          = &PipelineError{Kind: FailureParse}
	ErrExhausted      = &PipelineError{Kind: FailureExhausted}
	ErrCancelled      = &PipelineError{Kind: FailureCancelled}
	ErrInternal       = &PipelineError{Kind: FailureInternal}
)

// KindOf extracts the FailureKind from err, if it (or something it wraps) is
// a *PipelineError. ok is false for arbitrary errors.
func KindOf(err error) (FailureKind, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind, true
	}
	return "", false
}
