package pipeline

import (
	"errors"
	"fmt"
)

// Kind identifies one of the fatal error categories raised by the
// framework. Exactly one kind, StepOverflow, is non-fatal — it is recorded
// as a Diagnostic (see progress.go) instead of being returned as an error.
type Kind string

const (
	// NotInitiatorNode is raised by Execute when a phase's planned
	// initiator (the unique source of its actor graph) has no live node
	// to receive Go(). Go is only ever invoked on a phase's initiator.
	NotInitiatorNode Kind = "not_initiator_node"

	// LifecycleViolation is raised when a hook is invoked out of the
	// declared state order.
	LifecycleViolation Kind = "lifecycle_violation"

	// InsufficientMemory is raised when a phase's consumers' minimums sum
	// to more than the available budget.
	InsufficientMemory Kind = "insufficient_memory"

	// UnregisteredDatastructure is raised by Set/Get on a name that was
	// never registered in the owning NodeMap.
	UnregisteredDatastructure Kind = "unregistered_datastructure"

	// TypeMismatch is raised when Fetch or a datastructure Get observes a
	// stored value of a different type than requested.
	TypeMismatch Kind = "type_mismatch"

	// CyclicPhases is raised at planning time when the phase graph (built
	// from buffered/dependency edges) contains a cycle, or when a single
	// phase's internal item-flow graph contains one.
	CyclicPhases Kind = "cyclic_phases"

	// NoOrMultipleInitiators is raised at planning time when a phase's
	// actor graph has zero or more than one source node.
	NoOrMultipleInitiators Kind = "no_or_multiple_initiators"

	// StepOverflow is the one non-fatal kind: a Step call that would drive
	// steps remaining below zero. See Diagnostic.
	StepOverflow Kind = "step_overflow"
)

// sentinel errors, one per Kind, for errors.Is() compatibility.
var (
	ErrNotInitiatorNode          = errors.New(string(NotInitiatorNode))
	ErrLifecycleViolation        = errors.New(string(LifecycleViolation))
	ErrInsufficientMemory        = errors.New(string(InsufficientMemory))
	ErrUnregisteredDatastructure = errors.New(string(UnregisteredDatastructure))
	ErrTypeMismatch              = errors.New(string(TypeMismatch))
	ErrCyclicPhases              = errors.New(string(CyclicPhases))
	ErrNoOrMultipleInitiators    = errors.New(string(NoOrMultipleInitiators))
)

func sentinelFor(kind Kind) error {
	switch kind {
	case NotInitiatorNode:
		return ErrNotInitiatorNode
	case LifecycleViolation:
		return ErrLifecycleViolation
	case InsufficientMemory:
		return ErrInsufficientMemory
	case UnregisteredDatastructure:
		return ErrUnregisteredDatastructure
	case TypeMismatch:
		return ErrTypeMismatch
	case CyclicPhases:
		return ErrCyclicPhases
	case NoOrMultipleInitiators:
		return ErrNoOrMultipleInitiators
	default:
		return errors.New(string(kind))
	}
}

// Error is the single error type returned by every fatal path in this
// package. It carries the semantic Kind, the breadcrumb of the node
// involved (if any), and a human-readable message. Use
// errors.Is(err, pipeline.ErrLifecycleViolation) (or the matching
// sentinel) for programmatic dispatch.
type Error struct {
	Kind       Kind
	Breadcrumb string
	Msg        string
}

func (e *Error) Error() string {
	if e.Breadcrumb == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Breadcrumb, e.Msg)
}

func (e *Error) Unwrap() error {
	return sentinelFor(e.Kind)
}

func newError(kind Kind, breadcrumb, format string, args ...any) *Error {
	return &Error{Kind: kind, Breadcrumb: breadcrumb, Msg: fmt.Sprintf(format, args...)}
}
