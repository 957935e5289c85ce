package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMakeToken_UniqueIDs(t *testing.T) {
	m := NewNodeMap()
	a := NewNode(m, "a", Hooks{})
	b := NewNode(m, "b", Hooks{})

	require.NotEqual(t, a.Token().ID(), b.Token().ID())
}

func TestToken_Equal(t *testing.T) {
	m := NewNodeMap()
	a := NewNode(m, "a", Hooks{})

	require.True(t, a.Token().Equal(a.Token()))

	b := NewNode(m, "b", Hooks{})
	require.False(t, a.Token().Equal(b.Token()))
}

func TestLookup_AfterDestroy(t *testing.T) {
	m := NewNodeMap()
	a := NewNode(m, "a", Hooks{})
	tok := a.Token()

	_, ok := m.Lookup(tok.ID())
	require.True(t, ok)

	a.Destroy()

	_, ok = m.Lookup(tok.ID())
	require.False(t, ok)
}

func TestLink_Idempotent(t *testing.T) {
	m1 := NewNodeMap()
	m2 := NewNodeMap()
	a := NewNode(m1, "a", Hooks{})
	b := NewNode(m2, "b", Hooks{})

	m1.Link(m2)
	require.Equal(t, a.Token().Map().reg.find(), b.Token().Map().reg.find())

	// Linking again must be a no-op, not an error or a duplicate merge.
	m1.Link(m2)
	m2.Link(m1)
	require.Equal(t, a.Token().Map().reg.find(), b.Token().Map().reg.find())
}

func TestLink_Commutative(t *testing.T) {
	m1 := NewNodeMap()
	m2 := NewNodeMap()
	a := NewNode(m1, "a", Hooks{})
	b := NewNode(m2, "b", Hooks{})

	m2.Link(m1)

	require.Equal(t, a.Token().Map().reg.find(), b.Token().Map().reg.find())
}

func TestRelate_RequiresSharedMap(t *testing.T) {
	m1 := NewNodeMap()
	m2 := NewNodeMap()
	a := NewNode(m1, "a", Hooks{})
	b := NewNode(m2, "b", Hooks{})

	err := m1.Relate(a.Token(), b.Token(), Push)
	require.Error(t, err)

	m1.Link(m2)
	err = a.Token().Map().Relate(a.Token(), b.Token(), Push)
	require.NoError(t, err)
}

func TestRelate_DestroyedOwner(t *testing.T) {
	m := NewNodeMap()
	a := NewNode(m, "a", Hooks{})
	b := NewNode(m, "b", Hooks{})
	tokA := a.Token()

	a.Destroy()

	err := m.Relate(tokA, b.Token(), Push)
	require.Error(t, err)

	var pipeErr *Error
	require.ErrorAs(t, err, &pipeErr)
	require.Equal(t, LifecycleViolation, pipeErr.Kind)
}

func TestGetRelations_SplitsByKind(t *testing.T) {
	m := NewNodeMap()
	a := NewNode(m, "a", Hooks{})
	b := NewNode(m, "b", Hooks{})
	c := NewNode(m, "c", Hooks{})

	require.NoError(t, m.Relate(a.Token(), b.Token(), Push))
	require.NoError(t, m.Relate(b.Token(), a.Token(), Pull))
	require.NoError(t, m.Relate(c.Token(), a.Token(), DependsOn))

	push, pull, depends := m.GetRelations()
	require.Len(t, push, 1)
	require.Len(t, pull, 1)
	require.Len(t, depends, 1)
}

func TestMarkBuffered(t *testing.T) {
	m := NewNodeMap()
	a := NewNode(m, "a", Hooks{})
	b := NewNode(m, "b", Hooks{})

	require.NoError(t, m.Relate(a.Token(), b.Token(), Push))
	m.MarkBuffered(a.Token(), b.Token(), Push)

	push, _, _ := m.GetRelations()
	require.Len(t, push, 1)
	require.True(t, push[0].Buffered)
}
