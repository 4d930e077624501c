package template

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netsec-pkg/zkg/internal/vcs"
)

func newTemplateDriver(t *testing.T) *vcs.MemoryDriver {
	t.Helper()
	controlJSON := `{
		"api_version": "1",
		"parameters": [{"name": "PackageName", "default": "", "description": "short name"}],
		"features": [{"name": "with_tests", "files": ["tests/main_test.zeek"]}],
		"output_files": ["README.md", "{{.PackageName}}.zeek"]
	}`
	d := vcs.NewMemoryDriver()
	d.Repos["source/author/template"] = &vcs.MemoryRepo{
		Branches: map[string]string{"master": "c1"},
		Trees: map[string]map[string][]byte{
			"c1": {
				ControlFileName:              []byte(controlJSON),
				"README.md":                  []byte("# {{.PackageName}}\n"),
				"{{.PackageName}}.zeek":      []byte("# placeholder\n"),
				"tests/main_test.zeek":       []byte("# test for {{.PackageName}}\n"),
			},
		},
	}
	return d
}

func TestLoadControl_ParsesParametersAndFeatures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ControlFileName), []byte(`{
		"api_version": "1",
		"parameters": [{"name": "X", "pattern": "^[a-z]+$"}],
		"output_files": ["a.txt"]
	}`), 0o644))

	c, err := LoadControl(dir)
	require.NoError(t, err)
	require.Equal(t, "1", c.APIVersion)
	p := c.ParamByName("X")
	require.NotNil(t, p)
	require.True(t, p.Validate("abc"))
	require.False(t, p.Validate("ABC"))
}

func TestInstantiate_RendersFilesAndRecordsTemplate(t *testing.T) {
	dir := t.TempDir()
	driver := newTemplateDriver(t)

	result, err := Instantiate(context.Background(), driver, filepath.Join(dir, "scratch"), InstantiateOptions{
		TemplateURL: "source/author/template",
		OutputDir:   filepath.Join(dir, "out"),
		Vars:        VarSource{CLIOverrides: map[string]string{"PackageName": "mypkg"}},
	})
	require.NoError(t, err)
	require.Equal(t, "mypkg", result.VarValues["PackageName"])

	readme, err := os.ReadFile(filepath.Join(dir, "out", "README.md"))
	require.NoError(t, err)
	require.Contains(t, string(readme), "mypkg")

	_, err = os.Stat(filepath.Join(dir, "out", "zkg.meta"))
	require.NoError(t, err)
}

func TestInstantiate_RefusesExistingDirWithoutForce(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	require.NoError(t, os.MkdirAll(out, 0o755))

	driver := newTemplateDriver(t)
	_, err := Instantiate(context.Background(), driver, filepath.Join(dir, "scratch"), InstantiateOptions{
		TemplateURL: "source/author/template",
		OutputDir:   out,
		Vars:        VarSource{CLIOverrides: map[string]string{"PackageName": "mypkg"}},
	})
	require.Error(t, err)
}
