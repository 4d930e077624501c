package pkgobj

import (
	"context"

	"github.com/netsec-pkg/zkg/internal/metadata"
	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/version"
)

// DependencyEdge is one resolved dependency edge from a package to
// another node in the solver's graph.
type DependencyEdge struct {
	Name string
	Kind metadata.DependencyKind
	Spec string
}

// Package is the installable unit: identity, resolved version, a
// metadata snapshot (by value, never aliased across resolution
// cycles), and its dependency edges. Immutable once constructed for a
// given resolution cycle; ReloadMetadata returns a fresh value rather
// than mutating in place.
type Package struct {
	Identity Identity
	Version  version.Version
	Metadata metadata.Metadata
	Edges    []DependencyEdge
	// ClonePath is where this package's authoritative clone lives on
	// disk once fetched (empty until C6's fetch stage runs).
	ClonePath string
}

// New builds a Package from a loaded metadata snapshot and resolved
// version, deriving dependency edges from the metadata's depends field.
func New(id Identity, v version.Version, m metadata.Metadata) Package {
	edges := make([]DependencyEdge, 0, len(m.Depends))
	for name, spec := range m.Depends {
		d := metadata.ClassifyDependency(name, spec)
		edges = append(edges, DependencyEdge{Name: d.Name, Kind: d.Kind, Spec: d.Spec})
	}
	return Package{Identity: id, Version: v, Metadata: m, Edges: edges}
}

// ReloadMetadata re-parses the package's metadata file after a
// checkout (e.g. after the solver picks a different candidate) and
// returns a fresh Package value; it never mutates the receiver, so
// in-memory records are never aliased across operations.
func (p Package) ReloadMetadata(ctx context.Context, driver vcs.Driver) (Package, error) {
	m, err := metadata.Load(p.ClonePath)
	if err != nil {
		return Package{}, err
	}
	fresh := New(p.Identity, p.Version, *m)
	fresh.ClonePath = p.ClonePath
	return fresh, nil
}
