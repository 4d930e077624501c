package orchestrator

import (
	"context"

	"github.com/netsec-pkg/zkg/internal/manifest"
	"github.com/netsec-pkg/zkg/internal/pipeline"
	"github.com/netsec-pkg/zkg/internal/solver"
)

// InstallOptions controls one Install or Upgrade call.
type InstallOptions struct {
	Requests  []solver.Request
	SkipTests bool
	Force     bool
	Load      bool
	UserVars  map[string]map[string]string
}

// Install resolves opts.Requests against the current manifest, runs
// the install pipeline, and commits the result, all under the state
// lock and all-or-nothing (§4.10, §8 testable property 5).
func (e *Engine) Install(ctx context.Context, opts InstallOptions) ([]pipeline.Result, error) {
	return e.runPlanWithUpgrades(ctx, opts, nil)
}

// Upgrade re-solves the named packages (already installed) against an
// unconstrained version request, letting the solver pick the highest
// candidate still satisfying every other constraint in the graph.
// SkipTests only takes effect when Force is also given (§9 open
// question (a)).
func (e *Engine) Upgrade(ctx context.Context, names []string, opts InstallOptions) ([]pipeline.Result, error) {
	var requests []solver.Request
	for _, name := range names {
		requests = append(requests, solver.Request{Name: name, Constraint: "*"})
	}
	opts.Requests = requests

	return e.runPlanWithUpgrades(ctx, opts, names)
}

func (e *Engine) runPlanWithUpgrades(ctx context.Context, opts InstallOptions, pinGuardNames []string) ([]pipeline.Result, error) {
	var results []pipeline.Result
	err := e.withLock(ctx, func() error {
		m, err := e.store.Load()
		if err != nil {
			return err
		}
		if err := checkNotPinned(m, pinGuardNames); err != nil {
			return err
		}

		cat, err := e.catalog()
		if err != nil {
			return err
		}

		plan, err := solver.Solve(ctx, opts.Requests, solver.Params{
			Manifest:        m,
			Catalog:         cat,
			Capabilities:    e.cfg.Capabilities,
			PlatformVersion: e.cfg.PlatformVersion,
			ManagerVersion:  e.cfg.ManagerVersion,
		})
		if err != nil {
			return err
		}
		if err := checkAliasConflicts(m, plan); err != nil {
			return err
		}

		loadSet := map[string]bool{}
		if opts.Load {
			for _, entry := range plan.Entries {
				loadSet[entry.Name] = true
			}
		}

		upgradingCanonical := map[string]bool{}
		for _, name := range pinGuardNames {
			if e := m.FindByName(name); e != nil {
				upgradingCanonical[e.Canonical] = true
			}
		}

		pl := e.pipeline()
		res, err := pl.Execute(ctx, plan, pipeline.Options{
			SkipTests: opts.SkipTests,
			Force:     opts.Force,
			Upgrading: upgradingCanonical,
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
	return results, err
}

func addStatus(statuses []manifest.Status, s manifest.Status) []manifest.Status {
	for _, existing := range statuses {
		if existing == s {
			return statuses
		}
	}
	return append(statuses, s)
}
