package pipeline

import (
	"fmt"
	"sync"
)

// Indicator receives step counts as work completes. Concrete rendering
// (a progress bar, a log line, a metrics counter) is supplied by the
// enclosing application; this package only calls Advance and Done.
type Indicator interface {
	// Advance reports that delta additional steps of total have
	// completed for the named node.
	Advance(nodeName string, delta, total int64)
	// Done reports that the named node has finished all its work,
	// regardless of whether its declared step budget was exact.
	Done(nodeName string)
}

// noopIndicator discards every call; used when no Indicator is supplied,
// matching the zero-overhead-when-disabled shape used for the
// observability Provider.
type noopIndicator struct{}

func (noopIndicator) Advance(string, int64, int64) {}
func (noopIndicator) Done(string)                  {}

// Diagnostic is a recorded non-fatal condition, currently used only for
// StepOverflow: a Step call that would have driven a node's remaining
// step count below zero. Diagnostics never abort the pipeline; they are
// appended to the owning progress tracker for the caller to inspect or
// log after the run.
type Diagnostic struct {
	Kind     Kind
	NodeName string
	Msg      string
}

// progress is the per-node step-accounting state, referenced by Node and
// driven by SetSteps/Step.
type progress struct {
	mu          sync.Mutex
	indicator   Indicator
	diagnostics []Diagnostic
}

// SetSteps declares the total step budget for n and attaches indicator as
// the proxy progress sink; subsequent Step calls report Advance against
// this total. indicator may be nil, in which case progress is tracked
// internally but nothing is reported outward.
func (n *Node) SetSteps(total int64, indicator Indicator) {
	if indicator == nil {
		indicator = noopIndicator{}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stepsTotal = total
	n.stepsRemaining = total
	n.progress = &progress{indicator: indicator}
}

// Step reports that delta steps of work completed. If delta would drive
// the node's remaining steps below zero, Step clamps remaining at zero,
// records a non-fatal StepOverflow Diagnostic, and still reports the full
// delta to the Indicator (the work happened; only the budget accounting
// overflowed).
func (n *Node) Step(delta int64) {
	n.mu.Lock()
	if n.progress == nil {
		n.progress = &progress{indicator: noopIndicator{}}
	}
	if n.stepsTotal < 0 {
		// No declared budget: just forward the advance, no overflow
		// tracking is possible.
		prog := n.progress
		total := n.stepsTotal
		name := n.name
		n.mu.Unlock()
		prog.indicator.Advance(name, delta, total)
		return
	}

	remaining := n.stepsRemaining
	overflowed := delta > remaining
	if overflowed {
		n.stepsRemaining = 0
	} else {
		n.stepsRemaining -= delta
	}
	prog := n.progress
	total := n.stepsTotal
	name := n.name
	if overflowed {
		prog.mu.Lock()
		prog.diagnostics = append(prog.diagnostics, Diagnostic{
			Kind:     StepOverflow,
			NodeName: name,
			Msg:      fmt.Sprintf("step delta %d exceeded remaining budget %d; clamped to zero", delta, remaining),
		})
		prog.mu.Unlock()
	}
	n.mu.Unlock()

	prog.indicator.Advance(name, delta, total)
}

// MarkStepsDone reports to the Indicator that n has completed all of its
// work, independent of whether its declared step budget was consumed
// exactly.
func (n *Node) MarkStepsDone() {
	n.mu.Lock()
	if n.progress == nil {
		n.progress = &progress{indicator: noopIndicator{}}
	}
	prog := n.progress
	name := n.name
	n.mu.Unlock()
	prog.indicator.Done(name)
}

// StepsRemaining returns the node's current remaining step budget, or a
// negative value if SetSteps was never called.
func (n *Node) StepsRemaining() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stepsRemaining
}

// Diagnostics returns every non-fatal diagnostic recorded for n so far
// (currently only StepOverflow entries).
func (n *Node) Diagnostics() []Diagnostic {
	n.mu.Lock()
	prog := n.progress
	n.mu.Unlock()
	if prog == nil {
		return nil
	}
	prog.mu.Lock()
	defer prog.mu.Unlock()
	return append([]Diagnostic{}, prog.diagnostics...)
}

// phaseIndicator fans a phase's aggregate progress out across its member
// nodes: each node's Advance/Done calls are forwarded here first, then
// relayed to the upstream Indicator the phase itself was configured
// with. This is the "proxy indicator that forwards to a phase-level one"
// referenced in the package overview.
type phaseIndicator struct {
	mu       sync.Mutex
	upstream Indicator
	totals   map[string]int64
}

// newPhaseIndicator wraps upstream (or a no-op if nil) as a phase-level
// relay.
func newPhaseIndicator(upstream Indicator) *phaseIndicator {
	if upstream == nil {
		upstream = noopIndicator{}
	}
	return &phaseIndicator{upstream: upstream, totals: make(map[string]int64)}
}

func (p *phaseIndicator) Advance(nodeName string, delta, total int64) {
	p.mu.Lock()
	p.totals[nodeName] += delta
	p.mu.Unlock()
	p.upstream.Advance(nodeName, delta, total)
}

func (p *phaseIndicator) Done(nodeName string) {
	p.upstream.Done(nodeName)
}
