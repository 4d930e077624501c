package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/zkgconfig"
)

func TestLoadIndex_CurrentFormat_URLList(t *testing.T) {
	dir := t.TempDir()
	content := "# comment\nsource/author/foo\nsource/author/bar\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, zkgconfig.SourceIndexFileNameCurrent), []byte(content), 0o644))

	entries, err := LoadIndex(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "source/author/foo", entries[0].URL)
}

func TestLoadIndex_LegacyFormat_INI(t *testing.T) {
	dir := t.TempDir()
	content := "[foo]\nurl = source/author/foo\ntags = networking, dns\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, zkgconfig.SourceIndexFileNameLegacy), []byte(content), 0o644))

	entries, err := LoadIndex(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "foo", entries[0].Name)
	require.Equal(t, []string{"networking", "dns"}, entries[0].Tags)
}

func TestLoadIndex_MissingFile_Errors(t *testing.T) {
	_, err := LoadIndex(t.TempDir())
	require.Error(t, err)
}

func TestRefresh_ClonesOnFirstUse(t *testing.T) {
	d := vcs.NewMemoryDriver()
	d.Repos["source/author/index"] = &vcs.MemoryRepo{
		Branches: map[string]string{"master": "c1"},
		Trees: map[string]map[string][]byte{
			"c1": {zkgconfig.SourceIndexFileNameCurrent: []byte("source/author/foo\n")},
		},
	}

	dest := filepath.Join(t.TempDir(), "index-clone")
	s := Source{Name: "main", URL: "source/author/index", ClonePath: dest}
	require.NoError(t, Refresh(context.Background(), d, s))

	entries, err := LoadIndex(dest)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
