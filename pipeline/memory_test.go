package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateMemory_ProportionalSplit(t *testing.T) {
	var gotA, gotB int64
	consumers := []memoryConsumer{
		{id: 1, weight: 1, assign: func(b int64) { gotA = b }},
		{id: 2, weight: 3, assign: func(b int64) { gotB = b }},
	}
	err := AllocateMemory(1000, consumers)
	require.NoError(t, err)
	require.Equal(t, int64(250), gotA)
	require.Equal(t, int64(750), gotB)
}

func TestAllocateMemory_ClampsToMax(t *testing.T) {
	var gotA, gotB int64
	consumers := []memoryConsumer{
		{id: 1, weight: 1, max: 100, assign: func(b int64) { gotA = b }},
		{id: 2, weight: 1, assign: func(b int64) { gotB = b }},
	}
	err := AllocateMemory(1000, consumers)
	require.NoError(t, err)
	require.Equal(t, int64(100), gotA)
	// The slack freed by clamping consumer 1 goes entirely to consumer 2.
	require.Equal(t, int64(900), gotB)
}

func TestAllocateMemory_ClampsToMin(t *testing.T) {
	var gotA, gotB int64
	consumers := []memoryConsumer{
		{id: 1, weight: 1, min: 400, assign: func(b int64) { gotA = b }},
		{id: 2, weight: 9, assign: func(b int64) { gotB = b }},
	}
	err := AllocateMemory(1000, consumers)
	require.NoError(t, err)
	require.Equal(t, int64(400), gotA)
	require.Equal(t, int64(600), gotB)
}

func TestAllocateMemory_InsufficientMemory(t *testing.T) {
	consumers := []memoryConsumer{
		{id: 1, weight: 1, min: 600, assign: func(int64) {}},
		{id: 2, weight: 1, min: 600, assign: func(int64) {}},
	}
	err := AllocateMemory(1000, consumers)
	require.Error(t, err)
	var pipeErr *Error
	require.ErrorAs(t, err, &pipeErr)
	require.Equal(t, InsufficientMemory, pipeErr.Kind)
}

func TestAllocateMemory_FullBudgetAlwaysAssigned(t *testing.T) {
	var assigned []int64
	consumers := []memoryConsumer{
		{id: 1, weight: 1, assign: func(b int64) { assigned = append(assigned, b) }},
		{id: 2, weight: 1, assign: func(b int64) { assigned = append(assigned, b) }},
		{id: 3, weight: 1, assign: func(b int64) { assigned = append(assigned, b) }},
	}
	err := AllocateMemory(100, consumers)
	require.NoError(t, err)

	var total int64
	for _, a := range assigned {
		total += a
	}
	require.Equal(t, int64(100), total)
}

func TestAllocateNodeMemory_SetsNodeAllocation(t *testing.T) {
	m := NewNodeMap()
	a := NewNode(m, "a", Hooks{})
	b := NewNode(m, "b", Hooks{})
	require.NoError(t, m.Relate(a.Token(), b.Token(), Push))

	phases, err := Plan(m)
	require.NoError(t, err)
	require.Len(t, phases, 1)

	require.NoError(t, AllocateNodeMemory(m, phases[0], 1000))
	require.Equal(t, int64(500), a.AllocatedMemory())
	require.Equal(t, int64(500), b.AllocatedMemory())
}
