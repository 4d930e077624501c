package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/netsec-pkg/zkg/internal/manifest"
	"github.com/netsec-pkg/zkg/internal/metadata"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// fakeCatalog is an in-memory Catalog for solver tests, keyed by
// canonical name.
type fakeCatalog struct {
	tags  map[string][]string
	metas map[string]map[string]*metadata.Metadata // canonical -> ref -> metadata
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		tags:  map[string][]string{},
		metas: map[string]map[string]*metadata.Metadata{},
	}
}

func (f *fakeCatalog) add(canonical string, tags []string, byRef map[string]*metadata.Metadata) {
	f.tags[canonical] = tags
	f.metas[canonical] = byRef
}

func (f *fakeCatalog) Resolve(ctx context.Context, name string) (string, bool) {
	if _, ok := f.tags[name]; ok {
		return name, true
	}
	return "", false
}

func (f *fakeCatalog) Candidates(ctx context.Context, canonical string) (Candidate, error) {
	return Candidate{Tags: f.tags[canonical]}, nil
}

func (f *fakeCatalog) Metadata(ctx context.Context, canonical, ref string) (*metadata.Metadata, error) {
	return f.metas[canonical][ref], nil
}

func TestSolve_DiamondDependency_OrdersDependedUponFirst(t *testing.T) {
	cat := newFakeCatalog()
	cat.add("baz", []string{"1.0.0"}, map[string]*metadata.Metadata{
		"1.0.0": {Depends: map[string]string{}},
	})
	cat.add("bar", []string{"1.0.0"}, map[string]*metadata.Metadata{
		"1.0.0": {Depends: map[string]string{"baz": ">=1.0.0"}},
	})
	cat.add("foo", []string{"1.0.0"}, map[string]*metadata.Metadata{
		"1.0.0": {Depends: map[string]string{"bar": ">=1.0.0", "baz": ">=1.0.0"}},
	})

	plan, err := Solve(context.Background(), []Request{{Name: "foo", Constraint: "*"}}, Params{
		Manifest: &manifest.Manifest{},
		Catalog:  cat,
	})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 3)

	pos := map[string]int{}
	for i, e := range plan.Entries {
		pos[e.Name] = i
	}
	require.Less(t, pos["baz"], pos["bar"])
	require.Less(t, pos["bar"], pos["foo"])
}

func TestSolve_ConflictAgainstPinnedPackage_YieldsVersionResolutionError(t *testing.T) {
	cat := newFakeCatalog()
	cat.add("bar", []string{"1.0.0", "2.0.0"}, map[string]*metadata.Metadata{
		"1.0.0": {},
		"2.0.0": {},
	})

	m := &manifest.Manifest{}
	m.Upsert(manifest.Entry{
		Canonical:     "bar",
		ShortName:     "bar",
		VersionString: "1.0.0",
		VersionKind:   "tag",
		Statuses:      []manifest.Status{manifest.StatusInstalled, manifest.StatusPinned},
	})

	_, err := Solve(context.Background(), []Request{{Name: "bar", Constraint: "=2.0.0"}}, Params{
		Manifest: m,
		Catalog:  cat,
	})
	require.Error(t, err)
	require.True(t, zkgerrors.Is(err, zkgerrors.KindVersionResolution))
}

func TestSolve_DependencyCycle_IsDetected(t *testing.T) {
	cat := newFakeCatalog()
	cat.add("foo", []string{"1.0.0"}, map[string]*metadata.Metadata{
		"1.0.0": {Depends: map[string]string{"bar": "*"}},
	})
	cat.add("bar", []string{"1.0.0"}, map[string]*metadata.Metadata{
		"1.0.0": {Depends: map[string]string{"foo": "*"}},
	})

	_, err := Solve(context.Background(), []Request{{Name: "foo", Constraint: "*"}}, Params{
		Manifest: &manifest.Manifest{},
		Catalog:  cat,
	})
	require.Error(t, err)
}

func TestSolve_UnknownPackage_YieldsDependencyError(t *testing.T) {
	cat := newFakeCatalog()
	_, err := Solve(context.Background(), []Request{{Name: "ghost", Constraint: "*"}}, Params{
		Manifest: &manifest.Manifest{},
		Catalog:  cat,
	})
	require.Error(t, err)
}

func TestSolve_BuiltinCapabilitySatisfied_ContributesNoCloneEntry(t *testing.T) {
	cat := newFakeCatalog()
	cat.add("foo", []string{"1.0.0"}, map[string]*metadata.Metadata{
		"1.0.0": {Depends: map[string]string{"spicy-plugin": ">=1.0.0"}},
	})

	plan, err := Solve(context.Background(), []Request{{Name: "foo", Constraint: "*"}}, Params{
		Manifest:     &manifest.Manifest{},
		Catalog:      cat,
		Capabilities: staticCaps{"spicy-plugin": "1.2.0"},
	})
	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	require.Equal(t, "1.2.0", plan.BuiltinCapabilities["spicy-plugin"])
}

type staticCaps map[string]string

func (s staticCaps) Capabilities(ctx context.Context) (map[string]string, error) {
	return map[string]string(s), nil
}
