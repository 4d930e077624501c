package pipeline

import (
	"os"
	"path/filepath"

	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// install implements §4.6 step 5: copy script_dir and plugin_dir into
// their per-package subdirectories of the workspace, symlink declared
// executables into the bin stage, symlink every alias alongside the
// primary short name, and append the load directive to the loader
// index if the package belongs to the load set.
func install(ws *Workspace, clonePath, name string, aliases []string, scriptDir, pluginDir string, executables []string, load bool) error {
	scriptDest := filepath.Join(ws.Script, "packages", name)
	if scriptDir != "" {
		if err := mirror(filepath.Join(clonePath, scriptDir), scriptDest); err != nil {
			return err
		}
	}

	for _, alias := range aliases {
		aliasDest := filepath.Join(ws.Script, "packages", alias)
		os.Remove(aliasDest)
		if err := os.Symlink(scriptDest, aliasDest); err != nil {
			return zkgerrors.Stage(name, "failed to symlink alias "+alias, err)
		}
	}

	pluginDest := filepath.Join(ws.Plugin, "packages", name)
	if pluginDir != "" {
		if err := mirror(filepath.Join(clonePath, pluginDir), pluginDest); err != nil {
			return err
		}
	}

	for _, exe := range executables {
		src := filepath.Join(clonePath, exe)
		dst := filepath.Join(ws.Bin, filepath.Base(exe))
		os.Remove(dst)
		if err := os.Symlink(src, dst); err != nil {
			return zkgerrors.Stage(name, "failed to symlink executable "+exe, err)
		}
	}

	if load {
		if err := addLoaderEntry(ws.LoaderIndexPath(), name); err != nil {
			return err
		}
	}

	return nil
}
