package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRepo() *MemoryRepo {
	return &MemoryRepo{
		Tags:     map[string]string{"v1.0.0": "c1", "v2.0.0": "c2"},
		Branches: map[string]string{"master": "c2"},
		Trees: map[string]map[string][]byte{
			"c1": {"zkg.meta": []byte("[package]\ndescription = v1\n")},
			"c2": {"zkg.meta": []byte("[package]\ndescription = v2\n")},
		},
	}
}

func TestMemoryDriver_CloneAndCheckout(t *testing.T) {
	d := NewMemoryDriver()
	d.Repos["https://example.com/foo"] = newTestRepo()

	dest := filepath.Join(t.TempDir(), "foo")
	ctx := context.Background()

	require.NoError(t, d.Clone(ctx, "https://example.com/foo", dest, "v1.0.0", true))

	contents, err := os.ReadFile(filepath.Join(dest, "zkg.meta"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "v1")

	commit, err := d.CurrentCommit(ctx, dest)
	require.NoError(t, err)
	require.Equal(t, "c1", commit)

	require.NoError(t, d.Checkout(ctx, dest, "v2.0.0"))
	contents, err = os.ReadFile(filepath.Join(dest, "zkg.meta"))
	require.NoError(t, err)
	require.Contains(t, string(contents), "v2")
}

func TestMemoryDriver_ListTagsAndBranches(t *testing.T) {
	d := NewMemoryDriver()
	d.Repos["https://example.com/foo"] = newTestRepo()
	dest := filepath.Join(t.TempDir(), "foo")
	ctx := context.Background()
	require.NoError(t, d.Clone(ctx, "https://example.com/foo", dest, "master", false))

	tags, err := d.ListTags(ctx, dest)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"v1.0.0", "v2.0.0"}, tags)

	branches, err := d.ListBranches(ctx, dest)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"master"}, branches)
}
