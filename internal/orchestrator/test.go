package orchestrator

import (
	"context"
	"path/filepath"

	"github.com/netsec-pkg/zkg/internal/metadata"
	"github.com/netsec-pkg/zkg/internal/solver"
)

// Test runs an already-installed package's test_command against a
// dedicated testing clone, without building or reinstalling it (§4.6
// step 4, the standalone `test` verb). Read-only in the sense that it
// never touches the manifest or stage, so it does not take the state
// lock.
func (e *Engine) Test(ctx context.Context, name string, vars map[string]string) (string, error) {
	m, err := e.store.Load()
	if err != nil {
		return "", err
	}
	entry := m.FindByName(name)
	if entry == nil {
		return "", notInstalledError(name)
	}

	clonePath := filepath.Join(e.packageCloneRoot(), entry.Canonical)
	meta, err := metadata.Load(clonePath)
	if err != nil {
		return "", err
	}

	v, err := entry.VersionOf()
	if err != nil {
		return "", err
	}

	plan := &solver.Plan{
		Entries: []solver.PlanEntry{{
			Canonical: entry.Canonical,
			Name:      entry.Canonical,
			Version:   v,
			Metadata:  *meta,
			DependsOn: dependNames(meta),
		}},
	}
	for dep := range meta.Depends {
		if depEntry := m.FindByName(dep); depEntry != nil {
			depVer, err := depEntry.VersionOf()
			if err != nil {
				continue
			}
			depMeta, err := metadata.Load(filepath.Join(e.packageCloneRoot(), depEntry.Canonical))
			if err != nil {
				continue
			}
			plan.Entries = append(plan.Entries, solver.PlanEntry{
				Canonical: depEntry.Canonical,
				Name:      dep,
				Version:   depVer,
				Metadata:  *depMeta,
			})
		}
	}

	pl := e.pipeline()
	return pl.Test(ctx, plan, entry.Canonical, vars)
}

func dependNames(m *metadata.Metadata) []string {
	names := make([]string, 0, len(m.Depends))
	for dep := range m.Depends {
		names = append(names, dep)
	}
	return names
}
