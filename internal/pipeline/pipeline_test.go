package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netsec-pkg/zkg/internal/metadata"
	"github.com/netsec-pkg/zkg/internal/solver"
	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/version"
)

// fakeRunner always succeeds, recording the commands it was asked to run.
type fakeRunner struct {
	ran []string
}

func (r *fakeRunner) Run(ctx context.Context, command, dir string, env []string) (string, string, int, error) {
	r.ran = append(r.ran, command)
	return "ok\n", "", 0, nil
}

func newTestPlan(t *testing.T) *solver.Plan {
	t.Helper()
	return &solver.Plan{
		Entries: []solver.PlanEntry{
			{
				Canonical: "source/author/foo",
				Name:      "foo",
				Version:   mustTag(t, "1.0.0"),
				Metadata: metadata.Metadata{
					ScriptDir:    "scripts",
					Executables:  []string{"bin/foo"},
					BuildCommand: "true",
				},
			},
		},
	}
}

func mustTag(t *testing.T, tag string) version.Version {
	t.Helper()
	v, err := version.NewTag(tag)
	require.NoError(t, err)
	return v
}

func newTestDriver() *vcs.MemoryDriver {
	d := vcs.NewMemoryDriver()
	d.Repos["source/author/foo"] = &vcs.MemoryRepo{
		Tags: map[string]string{"1.0.0": "c1"},
		Trees: map[string]map[string][]byte{
			"c1": {
				"scripts/__load__.zeek": []byte("# foo\n"),
				"bin/foo":               []byte("#!/bin/sh\necho foo\n"),
			},
		},
	}
	return d
}

func TestPipeline_Execute_PromotesWorkspaceOnSuccess(t *testing.T) {
	dir := t.TempDir()
	stage := Stage{
		ScriptDir: filepath.Join(dir, "stage", "script"),
		PluginDir: filepath.Join(dir, "stage", "plugin"),
		BinDir:    filepath.Join(dir, "stage", "bin"),
	}
	runner := &fakeRunner{}
	p := &Pipeline{
		Driver:    newTestDriver(),
		Runner:    runner,
		Stage:     stage,
		StateDir:  filepath.Join(dir, "state"),
		CloneRoot: filepath.Join(dir, "clones"),
		Stdout:    os.Stdout,
	}

	results, err := p.Execute(context.Background(), newTestPlan(t), Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Contains(t, runner.ran, "true")

	_, err = os.Stat(filepath.Join(stage.ScriptDir, "packages", "foo", "__load__.zeek"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(stage.BinDir, "foo"))
	require.NoError(t, err)
}

func TestPipeline_Execute_BuildFailureLeavesStageUntouched(t *testing.T) {
	dir := t.TempDir()
	stage := Stage{
		ScriptDir: filepath.Join(dir, "stage", "script"),
		PluginDir: filepath.Join(dir, "stage", "plugin"),
		BinDir:    filepath.Join(dir, "stage", "bin"),
	}
	plan := newTestPlan(t)
	plan.Entries[0].Metadata.BuildCommand = "exit 1"

	p := &Pipeline{
		Driver:    newTestDriver(),
		Runner:    &ExecRunner{},
		Stage:     stage,
		StateDir:  filepath.Join(dir, "state"),
		CloneRoot: filepath.Join(dir, "clones"),
		Stdout:    os.Stdout,
	}

	_, err := p.Execute(context.Background(), plan, Options{})
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(stage.ScriptDir, "packages", "foo"))
	require.True(t, os.IsNotExist(statErr))
}

func TestPipeline_Execute_UpgradeSkipTestsRequiresForce(t *testing.T) {
	dir := t.TempDir()
	stage := Stage{
		ScriptDir: filepath.Join(dir, "stage", "script"),
		PluginDir: filepath.Join(dir, "stage", "plugin"),
		BinDir:    filepath.Join(dir, "stage", "bin"),
	}
	plan := newTestPlan(t)
	plan.Entries[0].Metadata.TestCommand = "exit 1"

	p := &Pipeline{
		Driver:    newTestDriver(),
		Runner:    &ExecRunner{},
		Stage:     stage,
		StateDir:  filepath.Join(dir, "state"),
		CloneRoot: filepath.Join(dir, "clones"),
		Stdout:    os.Stdout,
	}
	upgrading := map[string]bool{"source/author/foo": true}

	_, err := p.Execute(context.Background(), plan, Options{SkipTests: true, Upgrading: upgrading})
	require.Error(t, err)

	_, err = p.Execute(context.Background(), plan, Options{SkipTests: true, Force: true, Upgrading: upgrading})
	require.NoError(t, err)
}

func TestPipeline_Execute_PreservesEditedConfigFileAcrossReinstall(t *testing.T) {
	dir := t.TempDir()
	stage := Stage{
		ScriptDir: filepath.Join(dir, "stage", "script"),
		PluginDir: filepath.Join(dir, "stage", "plugin"),
		BinDir:    filepath.Join(dir, "stage", "bin"),
	}
	driver := vcs.NewMemoryDriver()
	driver.Repos["source/author/foo"] = &vcs.MemoryRepo{
		Tags: map[string]string{
			"1.0.0": "c1",
			"1.1.0": "c2",
		},
		Trees: map[string]map[string][]byte{
			"c1": {
				"scripts/__load__.zeek": []byte("# foo\n"),
				"scripts/foo.conf":      []byte("default-1.0.0\n"),
			},
			"c2": {
				"scripts/__load__.zeek": []byte("# foo\n"),
				"scripts/foo.conf":      []byte("default-1.1.0\n"),
			},
		},
	}
	plan := func(tag string) *solver.Plan {
		return &solver.Plan{
			Entries: []solver.PlanEntry{
				{
					Canonical: "source/author/foo",
					Name:      "foo",
					Version:   mustTag(t, tag),
					Metadata: metadata.Metadata{
						ScriptDir:    "scripts",
						BuildCommand: "true",
						ConfigFiles:  []string{"foo.conf"},
					},
				},
			},
		}
	}
	p := &Pipeline{
		Driver:    driver,
		Runner:    &fakeRunner{},
		Stage:     stage,
		StateDir:  filepath.Join(dir, "state"),
		CloneRoot: filepath.Join(dir, "clones"),
		Stdout:    os.Stdout,
	}

	_, err := p.Execute(context.Background(), plan("1.0.0"), Options{})
	require.NoError(t, err)

	confPath := filepath.Join(stage.ScriptDir, "packages", "foo", "foo.conf")
	data, err := os.ReadFile(confPath)
	require.NoError(t, err)
	require.Equal(t, "default-1.0.0\n", string(data))

	require.NoError(t, os.WriteFile(confPath, []byte("site-customized\n"), 0o644))

	_, err = p.Execute(context.Background(), plan("1.1.0"), Options{Upgrading: map[string]bool{"source/author/foo": true}})
	require.NoError(t, err)

	data, err = os.ReadFile(confPath)
	require.NoError(t, err)
	require.Equal(t, "site-customized\n", string(data))
}

func TestSetPluginEnabled_TogglesMarkerFile(t *testing.T) {
	dir := t.TempDir()
	pluginDir := filepath.Join(dir, "packages", "foo")
	require.NoError(t, os.MkdirAll(pluginDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "__plugin_marker__"), nil, 0o644))

	require.NoError(t, SetPluginEnabled(dir, "foo", false))
	_, err := os.Stat(filepath.Join(pluginDir, "__plugin_marker__.disabled"))
	require.NoError(t, err)

	require.NoError(t, SetPluginEnabled(dir, "foo", true))
	_, err = os.Stat(filepath.Join(pluginDir, "__plugin_marker__"))
	require.NoError(t, err)
}
