package solver

import (
	"github.com/netsec-pkg/zkg/internal/metadata"
	"github.com/netsec-pkg/zkg/internal/version"
)

// PlanEntry is one package the pipeline (C6) must fetch, build, test,
// and install, in the order returned by Plan.Entries.
type PlanEntry struct {
	Canonical string
	Name      string // the dependency-graph key this entry was resolved under
	Version   version.Version
	Metadata  metadata.Metadata
	DependsOn []string // dependency-graph keys (Name) of direct package dependencies
}

// Plan is the solver's output: a totally ordered, depended-upon-first
// list of packages to install, plus the built-in capabilities consulted
// along the way (which contribute no clone, §4.5 step 7).
type Plan struct {
	Entries            []PlanEntry
	BuiltinCapabilities map[string]string // capability name -> version used
}
