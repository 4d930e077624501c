package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewTag_StripsLeadingV(t *testing.T) {
	v, err := NewTag("v1.2.3")
	require.NoError(t, err)
	require.Equal(t, KindTag, v.Kind)
	require.Equal(t, "v1.2.3", v.Tag)
	require.Equal(t, "1.2.3", v.Semver.String())
}

func TestNewTag_Invalid(t *testing.T) {
	_, err := NewTag("not-a-version")
	require.Error(t, err)
}

func TestVersion_LessThan(t *testing.T) {
	a, err := NewTag("1.0.0")
	require.NoError(t, err)
	b, err := NewTag("2.0.0")
	require.NoError(t, err)
	require.True(t, a.LessThan(b))
	require.False(t, b.LessThan(a))
}

func TestVersion_StringAndRef(t *testing.T) {
	tag, _ := NewTag("v1.0.0")
	require.Equal(t, "v1.0.0", tag.String())
	require.Equal(t, "v1.0.0", tag.Ref())

	branch := NewBranch("master")
	require.Equal(t, "master", branch.String())

	commit := NewCommit("deadbeef")
	require.Equal(t, "deadbeef", commit.String())
}

func TestVersion_Upgradeable(t *testing.T) {
	tag, _ := NewTag("1.0.0")
	require.True(t, tag.Upgradeable())
	require.True(t, NewBranch("master").Upgradeable())
	require.False(t, NewCommit("abc123").Upgradeable())
}
