package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterpolator_Resolve_Simple(t *testing.T) {
	in := NewInterpolator(map[string]string{"NAME": "world"})
	out, err := in.Resolve("hello %(NAME)s")
	require.NoError(t, err)
	require.Equal(t, "hello world", out)
}

func TestInterpolator_Resolve_Recursive(t *testing.T) {
	in := NewInterpolator(map[string]string{
		"BASE": "/opt/zeek",
		"BIN":  "%(BASE)s/bin",
	})
	out, err := in.Resolve("%(BIN)s/zeek")
	require.NoError(t, err)
	require.Equal(t, "/opt/zeek/bin/zeek", out)
}

func TestInterpolator_Resolve_CycleDetected(t *testing.T) {
	in := NewInterpolator(map[string]string{
		"A": "%(B)s",
		"B": "%(A)s",
	})
	_, err := in.Resolve("%(A)s")
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestInterpolator_Resolve_Unresolved(t *testing.T) {
	in := NewInterpolator(map[string]string{})
	_, err := in.Resolve("%(MISSING)s")
	require.Error(t, err)
}

func TestInterpolator_PriorityOrder(t *testing.T) {
	// Later namespaces win (CLI overrides applied last).
	in := NewInterpolator(
		map[string]string{"X": "default"},
		map[string]string{"X": "override"},
	)
	out, err := in.Resolve("%(X)s")
	require.NoError(t, err)
	require.Equal(t, "override", out)
}
