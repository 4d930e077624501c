package orchestrator

import (
	"strings"

	"github.com/netsec-pkg/zkg/internal/manifest"
	"github.com/netsec-pkg/zkg/internal/pipeline"
	"github.com/netsec-pkg/zkg/internal/pkgobj"
	"github.com/netsec-pkg/zkg/internal/solver"
	"github.com/netsec-pkg/zkg/internal/source"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// entryFromPlan builds the manifest record for one successfully
// installed plan entry, preserving whatever statuses existing already
// carried (loaded/pinned survive a reinstall unless the caller is the
// verb responsible for changing them).
func entryFromPlan(pe solver.PlanEntry, res pipeline.Result, sources []source.Source, existing *manifest.Entry) manifest.Entry {
	id := pkgobj.NewIdentity(pe.Canonical, pe.Metadata.Aliases)

	e := manifest.Entry{
		Canonical:     id.Canonical,
		ShortName:     id.ShortName,
		Aliases:       id.Aliases,
		VersionString: pe.Version.String(),
		VersionKind:   pe.Version.Kind.String(),
		Source:        sourceNameFor(pe.Canonical, sources),
		ScriptDir:     pe.Metadata.ScriptDir,
		PluginDir:     pe.Metadata.PluginDir,
		Executables:   res.Executables,
		ConfigFiles:   res.ConfigFiles,
		Depends:       pe.Metadata.Depends,
	}

	if pe.Metadata.Template != nil {
		e.Template = &manifest.TemplateRecord{
			Source:    pe.Metadata.Template.Source,
			Ref:       pe.Metadata.Template.Ref,
			Version:   pe.Metadata.Template.Version,
			Features:  pe.Metadata.Template.Features,
			VarValues: pe.Metadata.Template.VarValues,
		}
	}

	statuses := []manifest.Status{manifest.StatusInstalled}
	if existing != nil {
		for _, s := range existing.Statuses {
			if s != manifest.StatusInstalled {
				statuses = append(statuses, s)
			}
		}
	}
	e.Statuses = statuses

	return e
}

func sourceNameFor(canonical string, sources []source.Source) string {
	for _, s := range sources {
		if strings.HasPrefix(canonical, s.Name+"/") {
			return s.Name
		}
	}
	return ""
}

// checkAliasConflicts fails fast, before any stage or filesystem
// mutation, if any plan entry's short name or declared aliases are
// already claimed by a different package — either one already
// installed, or another entry in the same plan (§3 invariant 2: "the
// alias set over all installed packages is a function"; §8 testable
// scenario 3).
func checkAliasConflicts(m *manifest.Manifest, plan *solver.Plan) error {
	claimedThisPlan := map[string]string{}
	for _, pe := range plan.Entries {
		id := pkgobj.NewIdentity(pe.Canonical, pe.Metadata.Aliases)
		for _, name := range id.Names() {
			if owner, ok := claimedThisPlan[name]; ok && owner != pe.Canonical {
				return zkgerrors.AliasConflict(name, "already claimed by "+owner)
			}
			claimedThisPlan[name] = pe.Canonical

			if owner := m.AliasOwner(name); owner != "" && owner != pe.Canonical {
				return zkgerrors.AliasConflict(name, "already claimed by "+owner)
			}
		}
	}
	return nil
}

// checkNotPinned fails fast, before any mutation, if any of names
// names a pinned package (§4 supplemented feature 3, §8 testable
// property 4).
func checkNotPinned(m *manifest.Manifest, names []string) error {
	for _, name := range names {
		e := m.FindByName(name)
		if e != nil && e.HasStatus(manifest.StatusPinned) {
			return pinnedError(e.Canonical)
		}
	}
	return nil
}
