package orchestrator

import (
	"context"
	"path/filepath"
	"sort"

	"github.com/netsec-pkg/zkg/internal/bundle"
	"github.com/netsec-pkg/zkg/internal/manifest"
	"github.com/netsec-pkg/zkg/internal/metadata"
	"github.com/netsec-pkg/zkg/internal/pipeline"
	"github.com/netsec-pkg/zkg/internal/solver"
	"github.com/netsec-pkg/zkg/internal/version"
	"github.com/netsec-pkg/zkg/internal/zkgconfig"
)

// Bundle packages the named installed packages (or, if names is empty,
// every installed package) into a self-contained archive at outPath
// (§4.8, the `bundle` verb). freshNames restricts which of the selected
// packages are cloned fresh; the rest are reused from the existing
// package clone area (the "--manifest NAMES" partial bundle support).
// An empty freshNames clones every selected package fresh.
func (e *Engine) Bundle(ctx context.Context, names, freshNames []string, outPath string) error {
	m, err := e.store.Load()
	if err != nil {
		return err
	}

	var entries []bundle.Entry
	existing := map[string]string{}
	for _, pe := range m.Packages {
		if len(names) > 0 && !contains(names, pe.Canonical) && !contains(names, pe.ShortName) {
			continue
		}
		v, err := pe.VersionOf()
		if err != nil {
			return err
		}
		entries = append(entries, bundle.Entry{Canonical: pe.Canonical, Version: v})
		existing[pe.Canonical] = filepath.Join(e.packageCloneRoot(), pe.Canonical)
	}

	return bundle.Create(ctx, e.cfg.Driver, e.scratchDir(zkgconfig.ScratchBundleDirName), outPath, entries, freshNames, existing)
}

// Unbundle installs every package contained in the archive at path:
// it moves each bundled clone into the real clone area (C8), then runs
// the build/test/install pipeline against them exactly as Install
// would against a freshly solved plan, and commits the manifest.
// Capability warnings from packages the current platform cannot
// satisfy are returned alongside, never aborting the operation (§9
// open question (b)).
func (e *Engine) Unbundle(ctx context.Context, path string, opts InstallOptions) ([]pipeline.Result, []bundle.Warning, error) {
	var results []pipeline.Result
	var warnings []bundle.Warning

	err := e.withLock(ctx, func() error {
		entries, w, err := bundle.Unbundle(ctx, path, e.scratchDir(zkgconfig.ScratchUntarDirName), e.packageCloneRoot(), e.cfg.Capabilities)
		if err != nil {
			return err
		}
		warnings = w

		plan, err := e.planFromClones(entries)
		if err != nil {
			return err
		}

		m, err := e.store.Load()
		if err != nil {
			return err
		}
		if err := checkAliasConflicts(m, plan); err != nil {
			return err
		}

		loadSet := map[string]bool{}
		if opts.Load {
			for _, pe := range plan.Entries {
				loadSet[pe.Name] = true
			}
		}

		pl := e.pipeline()
		res, err := pl.Execute(ctx, plan, pipeline.Options{
			SkipTests: opts.SkipTests,
			Force:     opts.Force,
			LoadSet:   loadSet,
			UserVars:  opts.UserVars,
		})
		if err != nil {
			return err
		}
		results = res

		for i, pe := range plan.Entries {
			existing := m.FindByName(pe.Canonical)
			entry := entryFromPlan(pe, res[i], e.cfg.Sources, existing)
			if loadSet[pe.Name] {
				entry.Statuses = addStatus(entry.Statuses, manifest.StatusLoaded)
			}
			m.Upsert(entry)
		}

		return e.store.Save(m)
	})

	return results, warnings, err
}

// planFromClones builds a solver.Plan directly from already-materialized
// clones (a bundle's contents), topologically ordering by each
// package's depends field, rather than re-resolving versions through
// the catalog: a bundle's manifest.txt already pins every version.
func (e *Engine) planFromClones(entries []bundle.Entry) (*solver.Plan, error) {
	metaByCanonical := map[string]*metadata.Metadata{}
	verByCanonical := map[string]version.Version{}
	for _, be := range entries {
		dest := filepath.Join(e.packageCloneRoot(), be.Canonical)
		m, err := metadata.Load(dest)
		if err != nil {
			return nil, err
		}
		metaByCanonical[be.Canonical] = m
		verByCanonical[be.Canonical] = be.Version
	}

	var order []string
	visited := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		m, ok := metaByCanonical[name]
		if !ok {
			return
		}
		var deps []string
		for dep := range m.Depends {
			deps = append(deps, dep)
		}
		sort.Strings(deps)
		for _, dep := range deps {
			if _, ok := metaByCanonical[dep]; ok {
				visit(dep)
			}
		}
		order = append(order, name)
	}
	for _, be := range entries {
		visit(be.Canonical)
	}

	plan := &solver.Plan{BuiltinCapabilities: map[string]string{}}
	for _, name := range order {
		m := metaByCanonical[name]
		var deps []string
		for dep := range m.Depends {
			if _, ok := metaByCanonical[dep]; ok {
				deps = append(deps, dep)
			}
		}
		sort.Strings(deps)
		plan.Entries = append(plan.Entries, solver.PlanEntry{
			Canonical: name,
			Name:      name,
			Version:   verByCanonical[name],
			Metadata:  *m,
			DependsOn: deps,
		})
	}
	return plan, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
