package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingIndicator struct {
	advances []string
	done     []string
}

func (r *recordingIndicator) Advance(nodeName string, delta, total int64) {
	r.advances = append(r.advances, nodeName)
}
func (r *recordingIndicator) Done(nodeName string) {
	r.done = append(r.done, nodeName)
}

func TestStep_ConsumesBudget(t *testing.T) {
	m := NewNodeMap()
	n := NewNode(m, "n", Hooks{})
	rec := &recordingIndicator{}
	n.SetSteps(10, rec)

	n.Step(4)
	require.Equal(t, int64(6), n.StepsRemaining())
	n.Step(6)
	require.Equal(t, int64(0), n.StepsRemaining())
	require.Empty(t, n.Diagnostics())
	require.Equal(t, []string{"n", "n"}, rec.advances)
}

func TestStep_OverflowRecordsDiagnosticNotError(t *testing.T) {
	m := NewNodeMap()
	n := NewNode(m, "n", Hooks{})
	rec := &recordingIndicator{}
	n.SetSteps(5, rec)

	n.Step(8)

	require.Equal(t, int64(0), n.StepsRemaining())
	diags := n.Diagnostics()
	require.Len(t, diags, 1)
	require.Equal(t, StepOverflow, diags[0].Kind)
	require.Equal(t, "n", diags[0].NodeName)
	// The overflow is recorded, not fatal: the indicator still saw the
	// full delta.
	require.Equal(t, []string{"n"}, rec.advances)
}

func TestMarkStepsDone(t *testing.T) {
	m := NewNodeMap()
	n := NewNode(m, "n", Hooks{})
	rec := &recordingIndicator{}
	n.SetSteps(10, rec)
	n.MarkStepsDone()
	require.Equal(t, []string{"n"}, rec.done)
}

func TestPhaseIndicator_RelaysToUpstream(t *testing.T) {
	rec := &recordingIndicator{}
	pi := newPhaseIndicator(rec)

	pi.Advance("a", 3, 10)
	pi.Advance("b", 2, 5)
	pi.Done("a")

	require.Equal(t, []string{"a", "b"}, rec.advances)
	require.Equal(t, []string{"a"}, rec.done)
	require.Equal(t, int64(3), pi.totals["a"])
}

func TestNoopIndicator_SafeWithNilUpstream(t *testing.T) {
	pi := newPhaseIndicator(nil)
	require.NotPanics(t, func() {
		pi.Advance("x", 1, 1)
		pi.Done("x")
	})
}
