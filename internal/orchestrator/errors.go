package orchestrator

import "github.com/netsec-pkg/zkg/internal/zkgerrors"

func pinnedError(canonical string) error {
	return zkgerrors.Manifest(canonical, "package is pinned, unpin before changing its clone or version", nil)
}

func notInstalledError(name string) error {
	return zkgerrors.Manifest(name, "not installed", nil)
}
