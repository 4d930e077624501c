package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeMeta(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_PrefersCurrentOverLegacy(t *testing.T) {
	dir := t.TempDir()
	writeMeta(t, dir, "bro-pkg.meta", "[package]\ndescription = legacy\n")
	writeMeta(t, dir, "zkg.meta", "[package]\ndescription = current\n")

	m, err := Load(dir)
	require.NoError(t, err)
	require.Equal(t, "current", m.Description)
}

func TestParse_DependsAndUserVars(t *testing.T) {
	dir := t.TempDir()
	path := writeMeta(t, dir, "zkg.meta", `[package]
description = test package
tags = network, security
depends = bar >=1.0.0
	baz branch=master
user_vars = LAST_VAR=/tmp:where to stage output
`)

	m, err := Parse(path)
	require.NoError(t, err)
	require.Equal(t, "test package", m.Description)
	require.ElementsMatch(t, []string{"network", "security"}, m.Tags)
	require.Equal(t, ">=1.0.0", m.Depends["bar"])
	require.Equal(t, "branch=master", m.Depends["baz"])
	require.Len(t, m.UserVars, 1)
	require.Equal(t, "LAST_VAR", m.UserVars[0].Key)
	require.Equal(t, "/tmp", m.UserVars[0].Default)
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := Load(dir)
	require.Error(t, err)
}

func TestClassifyDependency(t *testing.T) {
	d := ClassifyDependency("zeek", ">=4.0.0")
	require.Equal(t, DependencyPlatformVersion, d.Kind)

	d = ClassifyDependency("zkg", ">=2.0.0")
	require.Equal(t, DependencyManagerVersion, d.Kind)

	d = ClassifyDependency("spicy-plugin", ">=1.0.0")
	require.Equal(t, DependencyBuiltinCapability, d.Kind)

	d = ClassifyDependency("some/pkg", "branch=master")
	require.Equal(t, DependencyPackage, d.Kind)
	require.Equal(t, "master", d.Branch)
}
