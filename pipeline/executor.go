package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/keyvi-go/pipeline/internal/utils"
	"github.com/keyvi-go/pipeline/providers/observability"
)

const (
	spanExecute = "pipeline.execute"

	spanPhase         = observability.SpanPhase
	attrPhaseIndex    = observability.AttrPhaseIndex
	attrPhaseNodes    = observability.AttrPhaseNodeCount
	attrNodeName      = observability.AttrNodeName
	attrPhaseDuration = observability.AttrPhaseDuration
)

// ExecuteOptions configures a single Execute call.
type ExecuteOptions struct {
	// MemoryBudget is the total byte budget available per phase; it is
	// redistributed across that phase's nodes and datastructures by the
	// Memory runtime on every phase boundary.
	MemoryBudget int64
	// Indicator receives phase-relayed step progress, via a
	// phaseIndicator proxy created per phase, for every node that has a
	// step tracker (SetSteps or an earlier Step call) when its phase
	// begins; the proxy replaces the indicator given to SetSteps. May be
	// nil.
	Indicator Indicator
	// Provider, if non-nil, receives spans and log lines describing
	// phase and node execution. A nil Provider disables all
	// observability overhead, matching the rest of the framework.
	Provider observability.Provider
}

// Execute drives every phase returned by Plan through prepare, propagate,
// begin, go, end, and evacuate, in planner order. It stops and returns the
// first fatal error encountered; non-fatal StepOverflow conditions are
// recorded as Diagnostics on the offending node instead of aborting.
func Execute(ctx context.Context, m *NodeMap, opts ExecuteOptions) error {
	provider := opts.Provider

	var span observability.Span
	if provider != nil {
		ctx, span = provider.StartSpan(ctx, spanExecute)
		defer span.End()
	}

	phases, err := Plan(m)
	if err != nil {
		if span != nil {
			span.RecordError(err)
			span.SetStatus(observability.StatusError, err.Error())
		}
		return err
	}

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := executePhase(ctx, m, phase, opts); err != nil {
			if span != nil {
				span.RecordError(err)
				span.SetStatus(observability.StatusError, err.Error())
			}
			return err
		}
	}

	if span != nil {
		span.SetStatus(observability.StatusOK, "")
	}
	return nil
}

func executePhase(ctx context.Context, m *NodeMap, phase *Phase, opts ExecuteOptions) error {
	provider := opts.Provider

	timer := utils.NewTimer()
	defer func() {
		timer.Stop()
		if provider != nil {
			provider.Info(ctx, "phase complete",
				observability.Int(attrPhaseIndex, phase.Index),
				observability.Duration(attrPhaseDuration, timer.GetDuration()))
		}
	}()

	var span observability.Span
	if provider != nil {
		ctx, span = provider.StartSpan(ctx, spanPhase)
		span.SetAttributes(
			observability.Int(attrPhaseIndex, phase.Index),
			observability.Int(attrPhaseNodes, len(phase.NodeIDs())),
		)
		defer span.End()
	}

	// nodes holds the phase's nodes in item-flow topological order: the
	// order prepare/propagate/end run in, and the reverse begin runs in.
	nodes := make([]*Node, 0, len(phase.Order()))
	for _, id := range phase.Order() {
		n, ok := m.Lookup(id)
		if !ok {
			err := newError(LifecycleViolation, "", "phase %d references destroyed token %d", phase.Index, id)
			if span != nil {
				span.RecordError(err)
			}
			return err
		}
		nodes = append(nodes, n)
	}

	if err := runStage(nodes, (*Node).runPrepare, provider, span, "prepare"); err != nil {
		return err
	}

	if opts.MemoryBudget > 0 {
		if err := AllocateNodeMemory(m, phase, opts.MemoryBudget); err != nil {
			if span != nil {
				span.RecordError(err)
			}
			return err
		}
	}

	if err := runStage(nodes, (*Node).runPropagate, provider, span, "propagate"); err != nil {
		return err
	}
	if err := forwardAlongItemFlow(m); err != nil {
		return err
	}

	// Begin runs in the reverse of item-flow order: a downstream node's
	// begin() must precede an upstream node's, so consumers are ready
	// before producers start pushing or pulling.
	beginNodes := make([]*Node, len(nodes))
	for i, n := range nodes {
		beginNodes[len(nodes)-1-i] = n
	}
	if err := runStage(beginNodes, (*Node).runBegin, provider, span, "begin"); err != nil {
		return err
	}

	indicator := newPhaseIndicator(opts.Indicator)
	for _, n := range nodes {
		if n.progress != nil {
			n.progress.indicator = indicator
		}
	}

	initiator, ok := m.Lookup(phase.Initiator())
	if !ok {
		return newError(NotInitiatorNode, "", "phase %d initiator token %d has no live owner", phase.Index, phase.Initiator())
	}
	for {
		done, err := initiator.runGoOnce()
		if err != nil {
			if span != nil {
				span.RecordError(err)
			}
			return err
		}
		if done {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	for _, n := range nodes {
		if n != initiator && n.State() == AfterBegin {
			n.setState(InGo)
		}
	}

	if err := runStage(nodes, (*Node).runEnd, provider, span, "end"); err != nil {
		return err
	}

	evacuationOrder := append([]*Node{}, nodes...)
	sort.SliceStable(evacuationOrder, func(i, j int) bool {
		return evacuationOrder[i].FlushPriority() < evacuationOrder[j].FlushPriority()
	})
	if err := runStage(evacuationOrder, (*Node).runEvacuate, provider, span, "evacuate"); err != nil {
		return err
	}

	if span != nil {
		span.SetStatus(observability.StatusOK, "")
	}
	return nil
}

// runStage invokes hook on every node in order, stopping at the first
// error. Nodes are run sequentially (not concurrently): the framework's
// ordering guarantees (Propagate-before-cross-phase-forward,
// Begin-after-memory-allocation) depend on each node completing a stage
// before the next inspects shared NodeMap state.
func runStage(nodes []*Node, hook func(*Node) error, provider observability.Provider, parent observability.Span, stageName string) error {
	for _, n := range nodes {
		if provider != nil {
			parent.AddEvent(fmt.Sprintf("%s:%s", stageName, n.Name()), observability.String(attrNodeName, n.Name()))
		}
		if err := hook(n); err != nil {
			if provider != nil {
				parent.RecordError(err)
			}
			return fmt.Errorf("%s: %w", stageName, err)
		}
	}
	return nil
}
