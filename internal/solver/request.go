// Package solver implements the version solver (C5): given a set of
// requested root packages plus dependencies, resolve a totally ordered
// install plan against the current manifest.
package solver

import "github.com/netsec-pkg/zkg/internal/metadata"

// Request is one (identity, constraint) pair fed into the solver: a
// root package the caller wants installed or upgraded. There is no
// separate kind-preference field; the version kind follows from the
// form of Constraint.
type Request struct {
	Name       string // canonical name or URL
	Constraint string // semver range, "branch=NAME", a commit hash, or "*"
}

// constraintRecord remembers which requester asked for which spec, so
// conflicts can name both sides (§4.5 step 4).
type constraintRecord struct {
	Requester string
	Spec      string
}

// Candidate is one resolvable version of a node, as reported by the
// Catalog.
type Candidate struct {
	Tags     []string // release tags available for this node
	Branches []string // branches available for this node
}

// DependencyOf mirrors metadata.Dependency but scoped to the solver's
// vocabulary (the solver classifies each dependency line itself, via
// metadata.ClassifyDependency, while resolving a node).
type DependencyOf = metadata.Dependency
