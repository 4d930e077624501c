package bundle

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netsec-pkg/zkg/internal/capability"
	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/version"
)

func newBundleDriver() *vcs.MemoryDriver {
	d := vcs.NewMemoryDriver()
	d.Repos["source/author/foo"] = &vcs.MemoryRepo{
		Tags: map[string]string{"1.0.0": "c1"},
		Trees: map[string]map[string][]byte{
			"c1": {
				"zkg.meta": []byte("[package]\ndescription = foo\n"),
			},
		},
	}
	return d
}

func TestCreateAndUnbundle_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	driver := newBundleDriver()
	v, err := version.NewTag("1.0.0")
	require.NoError(t, err)

	outPath := filepath.Join(dir, "bundle.tgz")
	err = Create(context.Background(), driver, filepath.Join(dir, "scratch"), outPath,
		[]Entry{{Canonical: "source/author/foo", Version: v}}, nil, nil)
	require.NoError(t, err)

	_, err = os.Stat(outPath)
	require.NoError(t, err)

	cloneRoot := filepath.Join(dir, "clones")
	entries, warnings, err := Unbundle(context.Background(), outPath, filepath.Join(dir, "unpack"), cloneRoot, capability.StaticDiscoverer{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Empty(t, warnings)

	_, err = os.Stat(filepath.Join(cloneRoot, "source/author/foo", "zkg.meta"))
	require.NoError(t, err)
}

func TestUnbundle_MissingCapability_ProducesWarningNotError(t *testing.T) {
	dir := t.TempDir()
	driver := vcs.NewMemoryDriver()
	driver.Repos["source/author/needscapability"] = &vcs.MemoryRepo{
		Tags: map[string]string{"1.0.0": "c1"},
		Trees: map[string]map[string][]byte{
			"c1": {"zkg.meta": []byte("[package]\ndepends = spicy-plugin >=1.0.0\n")},
		},
	}
	v, err := version.NewTag("1.0.0")
	require.NoError(t, err)

	outPath := filepath.Join(dir, "bundle.tgz")
	require.NoError(t, Create(context.Background(), driver, filepath.Join(dir, "scratch"), outPath,
		[]Entry{{Canonical: "source/author/needscapability", Version: v}}, nil, nil))

	entries, warnings, err := Unbundle(context.Background(), outPath, filepath.Join(dir, "unpack"), filepath.Join(dir, "clones"), capability.StaticDiscoverer{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, warnings, 1)
	require.Equal(t, "spicy-plugin", warnings[0].Capability)
}
