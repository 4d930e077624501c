package solver

import (
	"context"

	"github.com/netsec-pkg/zkg/internal/metadata"
)

// Catalog is the solver's view of the outside world: given a package
// name/URL, it can enumerate candidate versions and load the metadata
// of a specific candidate. Production code backs this with the VCS
// driver over the package clone area; tests back it with an in-memory
// map, keeping the solver's conflict/ordering logic free of any VCS
// concern.
type Catalog interface {
	// Resolve maps a dependency name (a short name, full URL, or
	// source-qualified name) to a canonical identity string. Returns
	// ok=false if no such package is known to any configured source.
	Resolve(ctx context.Context, name string) (canonical string, ok bool)

	// Candidates returns the tags and branches available for the
	// package with the given canonical name.
	Candidates(ctx context.Context, canonical string) (Candidate, error)

	// Metadata loads the metadata of the given candidate ref (a tag,
	// branch, or commit hash) for the named package.
	Metadata(ctx context.Context, canonical, ref string) (*metadata.Metadata, error)
}
