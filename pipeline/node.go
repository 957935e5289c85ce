package pipeline

import (
	"fmt"
	"sync"
)

// State is a Node's position in the strict lifecycle state machine. Hooks
// may only be invoked when the node is in the state immediately preceding
// the hook's own After state; any other call is a LifecycleViolation.
type State int

const (
	Fresh State = iota
	InPrepare
	AfterPrepare
	InPropagate
	AfterPropagate
	InBegin
	AfterBegin
	InGo
	InEnd
	AfterEnd
	Evacuated
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case InPrepare:
		return "in_prepare"
	case AfterPrepare:
		return "after_prepare"
	case InPropagate:
		return "in_propagate"
	case AfterPropagate:
		return "after_propagate"
	case InBegin:
		return "in_begin"
	case AfterBegin:
		return "after_begin"
	case InGo:
		return "in_go"
	case InEnd:
		return "in_end"
	case AfterEnd:
		return "after_end"
	case Evacuated:
		return "evacuated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Hooks is the set of lifecycle callbacks a concrete node behavior
// implements. Every hook receives the node itself so it can read/write
// parameters, forwarded metadata, datastructures, and step progress. A nil
// hook is treated as a no-op.
type Hooks struct {
	// Prepare runs once per node before any propagation; used to validate
	// declared parameters and register datastructures.
	Prepare func(n *Node) error
	// Propagate runs once per node, in phase order, and is where metadata
	// Forward calls are expected to happen.
	Propagate func(n *Node) error
	// Begin runs once per node at the start of its phase's go pass, after
	// memory has been allocated.
	Begin func(n *Node) error
	// Go runs repeatedly for the phase's initiator node only, driving the
	// push/pull dataflow; non-initiator nodes never have Go invoked
	// directly (they react via push/pull calls from the initiator's
	// chain). Go returns (done=true, nil) once the node has no more work.
	Go func(n *Node) (done bool, err error)
	// End runs once per node after Go reports done.
	End func(n *Node) error
	// Evacuate runs once per node after End, to release held resources
	// (buffers, temporary files) before the next phase begins.
	Evacuate func(n *Node) error
}

// Node is one vertex of the pipelining dataflow graph. It holds its own
// lifecycle state, a handle to its identity Token, and the per-node
// concerns (parameters, forwarded metadata overrides, step budget) that
// the framework mediates on behalf of application-supplied Hooks.
type Node struct {
	mu sync.Mutex

	name  string
	token Token
	hooks Hooks
	state State

	// memory weighting, consulted by the Memory runtime.
	memoryWeight float64
	memoryMin    int64
	memoryMax    int64 // 0 means unbounded
	allocatedMem int64

	// step-based progress accounting.
	stepsTotal     int64
	stepsRemaining int64
	progress       *progress

	// params holds declarative configuration set before Prepare.
	params map[string]any

	// forwarded holds metadata values Forward has pushed onto this node,
	// keyed by name, alongside whether each entry is "sticky" (explicit).
	forwarded map[string]forwardedValue

	// flushPriority orders evacuation across nodes within a phase;
	// smaller values evacuate first. Default 0.
	flushPriority int
}

type forwardedValue struct {
	value  any
	sticky bool
}

// NewNode constructs a node registered against m, with the given display
// name and lifecycle hooks. The returned node is Fresh.
func NewNode(m *NodeMap, name string, hooks Hooks) *Node {
	n := &Node{
		name:           name,
		hooks:          hooks,
		state:          Fresh,
		memoryWeight:   1.0,
		params:         make(map[string]any),
		forwarded:      make(map[string]forwardedValue),
		stepsTotal:     -1, // unbounded until SetSteps is called
		stepsRemaining: -1,
	}
	n.token = m.MakeToken(n)
	return n
}

// Token returns the node's identity token.
func (n *Node) Token() Token {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token
}

// Name returns the node's display name, used in breadcrumbs and
// diagnostics.
func (n *Node) Name() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.name
}

// State returns the node's current lifecycle state.
func (n *Node) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Destroy removes the node from its NodeMap, invalidating its Token for
// future Lookup calls. Destroy does not run Evacuate; callers should have
// already driven the node through the full lifecycle.
func (n *Node) Destroy() {
	n.mu.Lock()
	tok := n.token
	n.mu.Unlock()
	tok.Map().unregister(tok.id)
}

// SetParam sets a declarative parameter, readable by hooks via Param. Must
// be called before Prepare (i.e. while the node is Fresh); later calls
// return a LifecycleViolation.
func (n *Node) SetParam(key string, value any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != Fresh {
		return newError(LifecycleViolation, n.name, "SetParam(%q): node is past Fresh", key)
	}
	n.params[key] = value
	return nil
}

// Param returns a previously set parameter and whether it was present.
func (n *Node) Param(key string) (any, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	v, ok := n.params[key]
	return v, ok
}

// SetMemoryWeight declares the node's proportional share of its phase's
// memory budget relative to its phase siblings. Default weight is 1.0.
func (n *Node) SetMemoryWeight(weight float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.memoryWeight = weight
}

// SetMemoryBounds declares the [min, max] byte bounds the Memory runtime
// must clamp this node's allocation to. max == 0 means unbounded above.
func (n *Node) SetMemoryBounds(min, max int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.memoryMin = min
	n.memoryMax = max
}

// AllocatedMemory returns the byte allocation the Memory runtime most
// recently assigned this node for the current phase.
func (n *Node) AllocatedMemory() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.allocatedMem
}

// SetFlushPriority sets the relative evacuation order within a phase;
// lower values evacuate first. Default 0.
func (n *Node) SetFlushPriority(p int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.flushPriority = p
}

// FlushPriority returns the node's evacuation ordering key.
func (n *Node) FlushPriority() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.flushPriority
}

// assertState transitions the node from want to next, or returns a
// LifecycleViolation naming both the expected and actual state.
func (n *Node) assertState(want, next State) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.state != want {
		return newError(LifecycleViolation, n.name,
			"expected state %s, found %s", want, n.state)
	}
	n.state = next
	return nil
}

func (n *Node) setState(s State) {
	n.mu.Lock()
	n.state = s
	n.mu.Unlock()
}

// runPrepare drives Fresh -> InPrepare -> AfterPrepare.
func (n *Node) runPrepare() error {
	if err := n.assertState(Fresh, InPrepare); err != nil {
		return err
	}
	if n.hooks.Prepare != nil {
		if err := n.hooks.Prepare(n); err != nil {
			return err
		}
	}
	n.setState(AfterPrepare)
	return nil
}

// runPropagate drives AfterPrepare -> InPropagate -> AfterPropagate.
func (n *Node) runPropagate() error {
	if err := n.assertState(AfterPrepare, InPropagate); err != nil {
		return err
	}
	if n.hooks.Propagate != nil {
		if err := n.hooks.Propagate(n); err != nil {
			return err
		}
	}
	n.setState(AfterPropagate)
	return nil
}

// runBegin drives AfterPropagate -> InBegin -> AfterBegin.
func (n *Node) runBegin() error {
	if err := n.assertState(AfterPropagate, InBegin); err != nil {
		return err
	}
	if n.hooks.Begin != nil {
		if err := n.hooks.Begin(n); err != nil {
			return err
		}
	}
	n.setState(AfterBegin)
	return nil
}

// runGoOnce invokes Go exactly once, transitioning AfterBegin <-> InGo on
// the first call and remaining in InGo across repeated calls until done.
func (n *Node) runGoOnce() (done bool, err error) {
	n.mu.Lock()
	if n.state != AfterBegin && n.state != InGo {
		state := n.state
		n.mu.Unlock()
		return false, newError(LifecycleViolation, n.name,
			"Go called from state %s", state)
	}
	n.state = InGo
	n.mu.Unlock()

	if n.hooks.Go == nil {
		return true, nil
	}
	return n.hooks.Go(n)
}

// runEnd drives InGo -> InEnd -> AfterEnd.
func (n *Node) runEnd() error {
	if err := n.assertState(InGo, InEnd); err != nil {
		return err
	}
	if n.hooks.End != nil {
		if err := n.hooks.End(n); err != nil {
			return err
		}
	}
	n.setState(AfterEnd)
	return nil
}

// runEvacuate drives AfterEnd -> Evacuated.
func (n *Node) runEvacuate() error {
	if err := n.assertState(AfterEnd, Evacuated); err != nil {
		return err
	}
	if n.hooks.Evacuate != nil {
		if err := n.hooks.Evacuate(n); err != nil {
			return err
		}
	}
	return nil
}
