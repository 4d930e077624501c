package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/version"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// ensureClone implements §4.6 step 1: make sure a clone of canonical at
// v's ref exists in the package clone area, cloning fresh if absent
// and checking out in place otherwise.
func ensureClone(ctx context.Context, driver vcs.Driver, cloneRoot, url, canonical string, v version.Version) (string, error) {
	dest := filepath.Join(cloneRoot, canonical)

	if _, err := os.Stat(dest); os.IsNotExist(err) {
		shallow := v.Kind != version.KindCommit
		if err := driver.Clone(ctx, url, dest, v.Ref(), shallow); err != nil {
			return "", zkgerrors.Stage(canonical, "failed to clone package", err)
		}
		return dest, nil
	}

	if err := driver.Fetch(ctx, dest); err != nil {
		return "", zkgerrors.Stage(canonical, "failed to fetch existing clone", err)
	}
	if err := driver.Checkout(ctx, dest, v.Ref()); err != nil {
		return "", zkgerrors.Stage(canonical, "failed to checkout "+v.Ref(), err)
	}
	if err := driver.SubmoduleUpdate(ctx, dest); err != nil {
		return "", zkgerrors.Stage(canonical, "failed to update submodules", err)
	}
	return dest, nil
}
