package triperr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure. Every error leaving the pipeline
// carries exactly one Kind.
type Kind string

const (
	KindInsufficientData       Kind = "insufficient-data"
	KindInvalidCoordinates     Kind = "invalid-coordinates"
	KindMissingPreferences     Kind = "missing-preferences"
	KindNoFeasibleSolution     Kind = "no-feasible-solution"
	KindOptimizationTimeout    Kind = "optimization-timeout"
	KindClusteringFailed       Kind = "clustering-failed"
	KindRouteCalculationFailed Kind = "route-calculation-failed"
	KindResourceExceeded       Kind = "resource-exceeded"
	KindUpstreamDataError      Kind = "upstream-data-error"
	KindPermissionDenied       Kind = "permission-denied"
	KindValidation             Kind = "validation-error"
	KindUnknown                Kind = "unknown"
)

// Error is the classified error type used across the pipeline.
type Error struct {
	Kind             Kind
	Message          string
	SuggestedActions []string
	cause            error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether the fallback chain / retry machinery may act on
// this error. Validation and permission failures are terminal.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindValidation, KindPermissionDenied, KindInsufficientData, KindInvalidCoordinates:
		return false
	}
	return true
}

// New builds a classified error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf builds a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause. If the cause is
// already classified, its kind is preserved.
func Wrap(err error, kind Kind, msg string) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return &Error{Kind: te.Kind, Message: msg, SuggestedActions: te.SuggestedActions, cause: err}
	}
	return &Error{Kind: kind, Message: msg, cause: err}
}

// WithCause returns a copy of e wrapping cause, keeping e's own kind. Use it
// when the new classification must win over the cause's.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.cause = cause
	return &cp
}

// WithSuggestions returns a copy carrying remediation hints for the caller.
func (e *Error) WithSuggestions(actions ...string) *Error {
	cp := *e
	cp.SuggestedActions = append(append([]string(nil), cp.SuggestedActions...), actions...)
	return &cp
}

// KindOf extracts the Kind from any error. Plain context errors map to
// optimization-timeout; anything unclassified maps to unknown, so no error
// ever leaves the system without a kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindOptimizationTimeout
	}
	return KindUnknown
}

// Classify guarantees a classified error: already-classified errors pass
// through, context errors become timeouts, everything else becomes unknown.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindOptimizationTimeout, Message: "operation deadline exceeded", cause: err}
	}
	return &Error{Kind: KindUnknown, Message: err.Error(), cause: err}
}

// IsRetryable reports whether err is classified and retryable. Unclassified
// errors are treated as retryable unknowns.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return Classify(err).Retryable()
}
