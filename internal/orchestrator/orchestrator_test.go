package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netsec-pkg/zkg/internal/manifest"
	"github.com/netsec-pkg/zkg/internal/solver"
	"github.com/netsec-pkg/zkg/internal/source"
	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/zkgconfig"
)

// fakeRunner always succeeds, recording the commands it was asked to run.
type fakeRunner struct {
	ran []string
}

func (r *fakeRunner) Run(ctx context.Context, command, dir string, env []string) (string, string, int, error) {
	r.ran = append(r.ran, command)
	return "ok\n", "", 0, nil
}

func newTestEngine(t *testing.T, driver *vcs.MemoryDriver, sources []source.Source) (*Engine, string) {
	t.Helper()
	dir := t.TempDir()
	eng := New(Config{
		StateDir: filepath.Join(dir, "state"),
		Paths: zkgconfig.Paths{
			StateDir:  filepath.Join(dir, "state"),
			ScriptDir: filepath.Join(dir, "stage", "script"),
			PluginDir: filepath.Join(dir, "stage", "plugin"),
			BinDir:    filepath.Join(dir, "stage", "bin"),
		},
		Driver:  driver,
		Runner:  &fakeRunner{},
		Sources: sources,
	})
	return eng, dir
}

// newTestSource writes a current-format index file naming one package
// and returns the Source pointing at it.
func newTestSource(t *testing.T, dir, canonical string) source.Source {
	t.Helper()
	clonePath := filepath.Join(dir, "source-clone")
	require.NoError(t, os.MkdirAll(clonePath, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(clonePath, zkgconfig.SourceIndexFileNameCurrent),
		[]byte(canonical+"\n"), 0o644,
	))
	return source.Source{Name: "testsource", URL: "https://example.invalid/index", ClonePath: clonePath}
}

func newFooRepo() *vcs.MemoryDriver {
	d := vcs.NewMemoryDriver()
	d.Repos["testsource/foo"] = &vcs.MemoryRepo{
		Tags: map[string]string{"1.0.0": "c1"},
		Trees: map[string]map[string][]byte{
			"c1": {
				"zkg.meta":              []byte("[package]\ndescription = foo\n"),
				"scripts/__load__.zeek": []byte("# foo\n"),
				"bin/foo":               []byte("#!/bin/sh\necho foo\n"),
			},
		},
	}
	return d
}

func TestEngine_Install_EndToEnd(t *testing.T) {
	driver := newFooRepo()
	dir := t.TempDir()
	src := newTestSource(t, dir, "testsource/foo")
	eng, _ := newTestEngine(t, driver, []source.Source{src})

	results, err := eng.Install(context.Background(), InstallOptions{
		Requests: []solver.Request{{Name: "foo", Constraint: "*"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	entries, err := eng.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "testsource/foo", entries[0].Canonical)
	require.True(t, entries[0].HasStatus(manifest.StatusInstalled))
}

func TestEngine_Remove_ThenList(t *testing.T) {
	driver := newFooRepo()
	dir := t.TempDir()
	src := newTestSource(t, dir, "testsource/foo")
	eng, _ := newTestEngine(t, driver, []source.Source{src})

	_, err := eng.Install(context.Background(), InstallOptions{
		Requests: []solver.Request{{Name: "foo", Constraint: "*"}},
	})
	require.NoError(t, err)

	require.NoError(t, eng.Remove(context.Background(), "foo"))

	entries, err := eng.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 0)
}

func TestEngine_Remove_RefusesPinnedPackage(t *testing.T) {
	driver := newFooRepo()
	dir := t.TempDir()
	src := newTestSource(t, dir, "testsource/foo")
	eng, _ := newTestEngine(t, driver, []source.Source{src})

	_, err := eng.Install(context.Background(), InstallOptions{
		Requests: []solver.Request{{Name: "foo", Constraint: "*"}},
	})
	require.NoError(t, err)
	require.NoError(t, eng.Pin(context.Background(), "foo"))

	err = eng.Remove(context.Background(), "foo")
	require.Error(t, err)

	entries, err := eng.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestEngine_Upgrade_RefusesPinnedPackage(t *testing.T) {
	driver := newFooRepo()
	dir := t.TempDir()
	src := newTestSource(t, dir, "testsource/foo")
	eng, _ := newTestEngine(t, driver, []source.Source{src})

	_, err := eng.Install(context.Background(), InstallOptions{
		Requests: []solver.Request{{Name: "foo", Constraint: "*"}},
	})
	require.NoError(t, err)
	require.NoError(t, eng.Pin(context.Background(), "foo"))

	_, err = eng.Upgrade(context.Background(), []string{"foo"}, InstallOptions{})
	require.Error(t, err)
}

func TestEngine_Load_Unload_TogglesStatusAndLoaderIndex(t *testing.T) {
	driver := newFooRepo()
	dir := t.TempDir()
	src := newTestSource(t, dir, "testsource/foo")
	eng, _ := newTestEngine(t, driver, []source.Source{src})

	_, err := eng.Install(context.Background(), InstallOptions{
		Requests: []solver.Request{{Name: "foo", Constraint: "*"}},
	})
	require.NoError(t, err)

	require.NoError(t, eng.Load(context.Background(), "foo"))
	entries, err := eng.List(context.Background())
	require.NoError(t, err)
	require.True(t, entries[0].HasStatus(manifest.StatusLoaded))

	loaderPath := filepath.Join(eng.stage().ScriptDir, zkgconfig.LoaderIndexFileName)
	data, err := os.ReadFile(loaderPath)
	require.NoError(t, err)
	require.Contains(t, string(data), "packages/foo")

	require.NoError(t, eng.Unload(context.Background(), "foo"))
	entries, err = eng.List(context.Background())
	require.NoError(t, err)
	require.False(t, entries[0].HasStatus(manifest.StatusLoaded))

	data, err = os.ReadFile(loaderPath)
	require.NoError(t, err)
	require.NotContains(t, string(data), "packages/foo")
}

func TestEngine_Pin_Unpin_TogglesStatus(t *testing.T) {
	driver := newFooRepo()
	dir := t.TempDir()
	src := newTestSource(t, dir, "testsource/foo")
	eng, _ := newTestEngine(t, driver, []source.Source{src})

	_, err := eng.Install(context.Background(), InstallOptions{
		Requests: []solver.Request{{Name: "foo", Constraint: "*"}},
	})
	require.NoError(t, err)

	require.NoError(t, eng.Pin(context.Background(), "foo"))
	entries, err := eng.List(context.Background())
	require.NoError(t, err)
	require.True(t, entries[0].HasStatus(manifest.StatusPinned))

	require.NoError(t, eng.Unpin(context.Background(), "foo"))
	entries, err = eng.List(context.Background())
	require.NoError(t, err)
	require.False(t, entries[0].HasStatus(manifest.StatusPinned))
}

func TestEngine_Search_MatchesByURLSubstring(t *testing.T) {
	driver := newFooRepo()
	dir := t.TempDir()
	src := newTestSource(t, dir, "testsource/foo")
	eng, _ := newTestEngine(t, driver, []source.Source{src})

	results, err := eng.Search(context.Background(), "foo")
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "testsource/foo", results[0].Canonical)

	none, err := eng.Search(context.Background(), "nonexistent")
	require.NoError(t, err)
	require.Len(t, none, 0)
}

func TestEngine_Info_ReportsInstalledAndMetadata(t *testing.T) {
	driver := newFooRepo()
	dir := t.TempDir()
	src := newTestSource(t, dir, "testsource/foo")
	eng, _ := newTestEngine(t, driver, []source.Source{src})

	_, err := eng.Install(context.Background(), InstallOptions{
		Requests: []solver.Request{{Name: "foo", Constraint: "*"}},
	})
	require.NoError(t, err)

	info, err := eng.Info(context.Background(), "foo")
	require.NoError(t, err)
	require.NotNil(t, info.Installed)
	require.Equal(t, "testsource/foo", info.Installed.Canonical)
}

func TestEngine_Install_RejectsAliasConflictWithInstalledPackage(t *testing.T) {
	driver := newFooRepo()
	driver.Repos["testsource/bar"] = &vcs.MemoryRepo{
		Tags: map[string]string{"1.0.0": "c1"},
		Trees: map[string]map[string][]byte{
			"c1": {
				"zkg.meta":              []byte("[package]\ndescription = bar\naliases = foo\n"),
				"scripts/__load__.zeek": []byte("# bar\n"),
			},
		},
	}
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "source-clone"), 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "source-clone", zkgconfig.SourceIndexFileNameCurrent),
		[]byte("testsource/foo\ntestsource/bar\n"), 0o644,
	))
	src := source.Source{Name: "testsource", URL: "https://example.invalid/index", ClonePath: filepath.Join(dir, "source-clone")}
	eng, _ := newTestEngine(t, driver, []source.Source{src})

	_, err := eng.Install(context.Background(), InstallOptions{
		Requests: []solver.Request{{Name: "foo", Constraint: "*"}},
	})
	require.NoError(t, err)

	_, err = eng.Install(context.Background(), InstallOptions{
		Requests: []solver.Request{{Name: "bar", Constraint: "*"}},
	})
	require.Error(t, err)

	entries, err := eng.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestEngine_Env_ReturnsConfiguredPaths(t *testing.T) {
	driver := vcs.NewMemoryDriver()
	eng, dir := newTestEngine(t, driver, nil)
	env := eng.Env(context.Background())
	require.Equal(t, filepath.Join(dir, "state"), env[zkgconfig.EnvStateDir])
	require.Equal(t, filepath.Join(dir, "stage", "script"), env[zkgconfig.EnvScriptDir])
}
