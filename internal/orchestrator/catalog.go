package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/netsec-pkg/zkg/internal/metadata"
	"github.com/netsec-pkg/zkg/internal/solver"
	"github.com/netsec-pkg/zkg/internal/source"
	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// vcsCatalog backs the solver's Catalog interface with the real VCS
// driver over the engine's package clone area, indexed by every
// configured source's loaded entries (§4.2, §9's "capability-set
// abstraction so tests can substitute an in-memory driver" — here the
// production side of that substitution).
type vcsCatalog struct {
	driver    vcs.Driver
	cloneRoot string
	index     map[string]string // short name or legacy entry name -> canonical URL
}

var _ solver.Catalog = (*vcsCatalog)(nil)

// newCatalog builds a catalog from every configured source's currently
// loaded index. Sources that have never been refreshed simply
// contribute nothing; Resolve still accepts a raw URL it has never
// seen, per pkgobj.Identity's "raw URL for packages installed outside
// any source."
func newCatalog(driver vcs.Driver, cloneRoot string, sources []source.Source) (*vcsCatalog, error) {
	cat := &vcsCatalog{driver: driver, cloneRoot: cloneRoot, index: map[string]string{}}
	for _, s := range sources {
		entries, err := source.LoadIndex(s.ClonePath)
		if err != nil {
			continue // unrefreshed or unreachable source: contributes nothing, not a hard failure
		}
		for _, e := range entries {
			canonical := e.URL
			cat.register(canonical, canonical)
			cat.register(shortNameOf(canonical), canonical)
			if e.Name != "" {
				cat.register(e.Name, canonical)
			}
		}
	}
	return cat, nil
}

func (c *vcsCatalog) register(key, canonical string) {
	if key == "" {
		return
	}
	if _, exists := c.index[key]; !exists {
		c.index[key] = canonical
	}
}

func (c *vcsCatalog) Resolve(ctx context.Context, name string) (string, bool) {
	if canonical, ok := c.index[name]; ok {
		return canonical, true
	}
	if strings.Contains(name, "/") {
		return name, true
	}
	return "", false
}

func (c *vcsCatalog) Candidates(ctx context.Context, canonical string) (solver.Candidate, error) {
	dest, err := c.ensureClone(ctx, canonical)
	if err != nil {
		return solver.Candidate{}, err
	}
	tags, err := c.driver.ListTags(ctx, dest)
	if err != nil {
		return solver.Candidate{}, zkgerrors.Dependency(canonical, "failed to list tags", err)
	}
	branches, err := c.driver.ListBranches(ctx, dest)
	if err != nil {
		return solver.Candidate{}, zkgerrors.Dependency(canonical, "failed to list branches", err)
	}
	return solver.Candidate{Tags: tags, Branches: branches}, nil
}

func (c *vcsCatalog) Metadata(ctx context.Context, canonical, ref string) (*metadata.Metadata, error) {
	dest, err := c.ensureClone(ctx, canonical)
	if err != nil {
		return nil, err
	}
	if err := c.driver.Checkout(ctx, dest, ref); err != nil {
		return nil, zkgerrors.Dependency(canonical, "failed to checkout "+ref, err)
	}
	return metadata.Load(dest)
}

func (c *vcsCatalog) ensureClone(ctx context.Context, canonical string) (string, error) {
	dest := filepath.Join(c.cloneRoot, canonical)
	if _, err := os.Stat(dest); os.IsNotExist(err) {
		if err := c.driver.Clone(ctx, canonical, dest, "", false); err != nil {
			return "", zkgerrors.Dependency(canonical, "failed to clone package", err)
		}
		return dest, nil
	}
	if err := c.driver.Fetch(ctx, dest); err != nil {
		return "", zkgerrors.Dependency(canonical, "failed to fetch existing clone", err)
	}
	return dest, nil
}

func shortNameOf(canonical string) string {
	s := strings.TrimSuffix(canonical, "/")
	s = strings.TrimSuffix(s, ".git")
	if idx := strings.LastIndexByte(s, '/'); idx >= 0 {
		return s[idx+1:]
	}
	return s
}
