package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	m := empty()
	m.Upsert(Entry{
		Canonical:     "source/author/foo",
		ShortName:     "foo",
		VersionString: "v1.0.0",
		VersionKind:   "tag",
		Statuses:      []Status{StatusInstalled, StatusLoaded},
	})
	require.NoError(t, store.Save(m))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.Len(t, loaded.Packages, 1)
	require.Equal(t, "foo", loaded.Packages[0].ShortName)
	require.True(t, loaded.Packages[0].HasStatus(StatusLoaded))
}

func TestStore_Load_MissingFileYieldsEmpty(t *testing.T) {
	store := NewStore(t.TempDir())
	m, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, m.Packages)
	require.Equal(t, 2, m.SchemaVersion)
}

func TestStore_Load_MigratesOldSchema(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	require.NoError(t, os.WriteFile(path, []byte(`{
		"schema_version": 0,
		"packages": [{"canonical": "source/a/b", "short_name": "b", "version": "v1.0.0", "version_kind": "tag"}]
	}`), 0o644))

	store := NewStore(dir)
	m, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, 2, m.SchemaVersion)
	require.True(t, m.Packages[0].HasStatus(StatusInstalled))
}

func TestManifest_AliasOwner(t *testing.T) {
	m := empty()
	m.Upsert(Entry{Canonical: "source/a/foo", ShortName: "foo", Aliases: []string{"bar"}})
	require.Equal(t, "source/a/foo", m.AliasOwner("bar"))
	require.Equal(t, "", m.AliasOwner("unclaimed"))
}

func TestManifest_Clone_IsIndependent(t *testing.T) {
	m := empty()
	m.Upsert(Entry{Canonical: "source/a/foo", ShortName: "foo", Aliases: []string{"bar"}})
	cp := m.Clone()
	cp.Packages[0].Aliases[0] = "changed"
	require.Equal(t, "bar", m.Packages[0].Aliases[0])
}

func TestStore_Save_Atomic(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)
	m := empty()
	require.NoError(t, store.Save(m))
	_, err := os.Stat(filepath.Join(dir, "manifest.json.tmp"))
	require.True(t, os.IsNotExist(err), "temp file should not remain after rename")
}
