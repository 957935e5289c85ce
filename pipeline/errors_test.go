package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesSentinel(t *testing.T) {
	err := newError(TypeMismatch, "nodeA", "stored %s, wanted %s", "int", "string")
	require.True(t, errors.Is(err, ErrTypeMismatch))
	require.False(t, errors.Is(err, ErrCyclicPhases))
}

func TestError_MessageIncludesBreadcrumb(t *testing.T) {
	err := newError(LifecycleViolation, "nodeA", "bad transition")
	require.Contains(t, err.Error(), "nodeA")
	require.Contains(t, err.Error(), "bad transition")
}

func TestError_MessageOmitsEmptyBreadcrumb(t *testing.T) {
	err := newError(CyclicPhases, "", "cycle found")
	require.NotContains(t, err.Error(), "::")
}

func TestError_AsUnwrapsToTypedError(t *testing.T) {
	var wrapped error = newError(InsufficientMemory, "", "not enough")
	var pipeErr *Error
	require.True(t, errors.As(wrapped, &pipeErr))
	require.Equal(t, InsufficientMemory, pipeErr.Kind)
}
