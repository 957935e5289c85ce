package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNode_LifecycleOrder(t *testing.T) {
	m := NewNodeMap()
	var order []string
	n := NewNode(m, "n", Hooks{
		Prepare:   func(n *Node) error { order = append(order, "prepare"); return nil },
		Propagate: func(n *Node) error { order = append(order, "propagate"); return nil },
		Begin:     func(n *Node) error { order = append(order, "begin"); return nil },
		Go: func(n *Node) (bool, error) {
			order = append(order, "go")
			return true, nil
		},
		End:      func(n *Node) error { order = append(order, "end"); return nil },
		Evacuate: func(n *Node) error { order = append(order, "evacuate"); return nil },
	})

	require.Equal(t, Fresh, n.State())
	require.NoError(t, n.runPrepare())
	require.Equal(t, AfterPrepare, n.State())
	require.NoError(t, n.runPropagate())
	require.Equal(t, AfterPropagate, n.State())
	require.NoError(t, n.runBegin())
	require.Equal(t, AfterBegin, n.State())

	done, err := n.runGoOnce()
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, InGo, n.State())

	require.NoError(t, n.runEnd())
	require.Equal(t, AfterEnd, n.State())
	require.NoError(t, n.runEvacuate())
	require.Equal(t, Evacuated, n.State())

	require.Equal(t, []string{"prepare", "propagate", "begin", "go", "end", "evacuate"}, order)
}

func TestNode_LifecycleViolation_OutOfOrder(t *testing.T) {
	m := NewNodeMap()
	n := NewNode(m, "n", Hooks{})

	// Skipping Prepare straight to Propagate must fail.
	err := n.runPropagate()
	require.Error(t, err)

	var pipeErr *Error
	require.ErrorAs(t, err, &pipeErr)
	require.Equal(t, LifecycleViolation, pipeErr.Kind)
}

func TestNode_LifecycleViolation_DoublePrepare(t *testing.T) {
	m := NewNodeMap()
	n := NewNode(m, "n", Hooks{})

	require.NoError(t, n.runPrepare())
	err := n.runPrepare()
	require.Error(t, err)
	require.ErrorIs(t, err, ErrLifecycleViolation)
}

func TestNode_SetParam_OnlyBeforePrepare(t *testing.T) {
	m := NewNodeMap()
	n := NewNode(m, "n", Hooks{})

	require.NoError(t, n.SetParam("k", 1))
	v, ok := n.Param("k")
	require.True(t, ok)
	require.Equal(t, 1, v)

	require.NoError(t, n.runPrepare())
	err := n.SetParam("k", 2)
	require.Error(t, err)
}

func TestNode_GoRepeatsUntilDone(t *testing.T) {
	m := NewNodeMap()
	calls := 0
	n := NewNode(m, "n", Hooks{
		Go: func(n *Node) (bool, error) {
			calls++
			return calls >= 3, nil
		},
	})
	require.NoError(t, n.runPrepare())
	require.NoError(t, n.runPropagate())
	require.NoError(t, n.runBegin())

	for {
		done, err := n.runGoOnce()
		require.NoError(t, err)
		if done {
			break
		}
	}
	require.Equal(t, 3, calls)
}

func TestNode_HookError_PropagatesAndHaltsTransition(t *testing.T) {
	m := NewNodeMap()
	boom := newError(UnregisteredDatastructure, "", "boom")
	n := NewNode(m, "n", Hooks{
		Prepare: func(n *Node) error { return boom },
	})

	err := n.runPrepare()
	require.ErrorIs(t, err, boom)
	// State still advanced to InPrepare since the hook itself failed
	// after the transition; the node is left mid-stage rather than
	// rolled back, matching the fatal-error-halts-the-run design.
	require.Equal(t, InPrepare, n.State())
}
