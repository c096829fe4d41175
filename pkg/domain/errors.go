package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTime is returned when a time or UTC offset cannot be resolved.
	ErrInvalidTime = errors.New("invalid time")

	// ErrInvalidContext is returned when a supplied context value does not match its declared type.
	ErrInvalidContext = errors.New("invalid context")

	// ErrMalformedTree is returned when a tree document violates the structural invariants.
	ErrMalformedTree = errors.New("malformed tree")

	// ErrDecision is returned when evaluation reaches a node it cannot resolve.
	ErrDecision = errors.New("no rule matches")

	// ErrAggregation is returned when every agent of a generator decision failed.
	ErrAggregation = errors.New("generator aggregation failed")

	// ErrUnserializable is returned when a context value is not a plain primitive.
	ErrUnserializable = errors.New("value is not serializable")

	// ErrTreeNotFound is returned by loaders when a tree ID is unknown.
	ErrTreeNotFound = errors.New("tree not found")
)

// InvalidTimeError reports an unparsable or out-of-range time or offset.
type InvalidTimeError struct {
	Value  any
	Reason string
}

func (e *InvalidTimeError) Error() string {
	return fmt.Sprintf("invalid time %v: %s", e.Value, e.Reason)
}

func (e *InvalidTimeError) Is(target error) bool { return target == ErrInvalidTime }

// InvalidContextError reports a context value whose type differs from its declaration.
type InvalidContextError struct {
	Property string
	Expected PropertyType
	Value    any
	Reason   string
}

func (e *InvalidContextError) Error() string {
	msg := fmt.Sprintf("invalid context: property %q expects %s, got %v (%T)", e.Property, e.Expected, e.Value, e.Value)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InvalidContextError) Is(target error) bool { return target == ErrInvalidContext }

// MalformedTreeError reports a structural defect in a tree document.
// Path locates the defect, e.g. "trees.speed.children[1]".
type MalformedTreeError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedTreeError) Error() string {
	var b strings.Builder
	b.WriteString("malformed tree")
	if e.Path != "" {
		b.WriteString(" at ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MalformedTreeError) Is(target error) bool { return target == ErrMalformedTree }

func (e *MalformedTreeError) Unwrap() error { return e.Err }

// DecisionReason classifies why a decision node could not be resolved.
type DecisionReason string

const (
	ReasonMissingValue DecisionReason = "missing value"
	ReasonOutOfDomain  DecisionReason = "value out of declared domain"
)

// DecisionError reports a decision node the evaluator could not resolve.
type DecisionError struct {
	Reason   DecisionReason
	Output   string
	Property string
	// Value is set for ReasonOutOfDomain.
	Value any
}

func (e *DecisionError) Error() string {
	msg := fmt.Sprintf("no rule matches (%s) for property %q", e.Reason, e.Property)
	if e.Reason == ReasonOutOfDomain {
		msg += fmt.Sprintf(" with value %v", e.Value)
	}
	if e.Output != "" {
		msg += fmt.Sprintf(" while predicting %q", e.Output)
	}
	return msg
}

func (e *DecisionError) Is(target error) bool { return target == ErrDecision }

// AgentError pairs an agent with the error its tree produced.
type AgentError struct {
	AgentID string
	Err     error
}

func (e AgentError) Error() string { return fmt.Sprintf("agent %s: %v", e.AgentID, e.Err) }

func (e AgentError) Unwrap() error { return e.Err }

// AggregationError reports a generator decision in which no agent produced a prediction.
type AggregationError struct {
	Errors []AgentError
}

func (e *AggregationError) Error() string {
	if len(e.Errors) == 0 {
		return "generator aggregation failed: no agents"
	}
	parts := make([]string, len(e.Errors))
	for i, ae := range e.Errors {
		parts[i] = ae.Error()
	}
	return fmt.Sprintf("generator aggregation failed: all %d agents failed: %s", len(e.Errors), strings.Join(parts, "; "))
}

func (e *AggregationError) Is(target error) bool { return target == ErrAggregation }

// Unwrap exposes the per-agent errors to errors.Is / errors.As.
func (e *AggregationError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i := range e.Errors {
		errs[i] = e.Errors[i]
	}
	return errs
}

// ValueTypeError reports a context value that cannot be encoded as a plain primitive.
type ValueTypeError struct {
	Property string
	Value    any
}

func (e *ValueTypeError) Error() string {
	return fmt.Sprintf("type error: property %q holds a non-serializable %T", e.Property, e.Value)
}

func (e *ValueTypeError) Is(target error) bool { return target == ErrUnserializable }
