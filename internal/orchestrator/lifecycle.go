package orchestrator

import (
	"context"
	"os"
	"path/filepath"

	"github.com/netsec-pkg/zkg/internal/manifest"
	"github.com/netsec-pkg/zkg/internal/pipeline"
)

// Remove deletes a package's clone, stage artifacts, loader entry, and
// manifest entry (§3 "Lifecycle"). Removing a pinned package is
// refused; unpin first.
func (e *Engine) Remove(ctx context.Context, name string) error {
	return e.withLock(ctx, func() error {
		m, err := e.store.Load()
		if err != nil {
			return err
		}
		entry := m.FindByName(name)
		if entry == nil {
			return notInstalledError(name)
		}
		if entry.HasStatus(manifest.StatusPinned) {
			return pinnedError(entry.Canonical)
		}

		if err := e.unstage(entry); err != nil {
			return err
		}
		if err := pipeline.ToggleLoad(e.cfg.Paths.ScriptDir, entry.ShortName, false); err != nil {
			return err
		}
		os.RemoveAll(filepath.Join(e.packageCloneRoot(), entry.Canonical))

		m.Remove(entry.Canonical)
		return e.store.Save(m)
	})
}

// Purge removes a package exactly as Remove does, and additionally
// deletes any config files backed up under the stage during prior
// installs (§3 "Lifecycle", "Purge additionally removes any backed-up
// user-edited config files").
func (e *Engine) Purge(ctx context.Context, name string) error {
	return e.withLock(ctx, func() error {
		m, err := e.store.Load()
		if err != nil {
			return err
		}
		entry := m.FindByName(name)
		if entry == nil {
			return notInstalledError(name)
		}
		if entry.HasStatus(manifest.StatusPinned) {
			return pinnedError(entry.Canonical)
		}

		for _, rel := range entry.ConfigFiles {
			backup := filepath.Join(e.cfg.Paths.ScriptDir, "packages", entry.ShortName, rel+".bak")
			os.Remove(backup)
		}
		if err := e.unstage(entry); err != nil {
			return err
		}
		if err := pipeline.ToggleLoad(e.cfg.Paths.ScriptDir, entry.ShortName, false); err != nil {
			return err
		}
		os.RemoveAll(filepath.Join(e.packageCloneRoot(), entry.Canonical))

		m.Remove(entry.Canonical)
		return e.store.Save(m)
	})
}

// unstage removes a package's directory from the script and plugin
// stages, its alias symlinks, and its executable symlinks from the bin
// stage.
func (e *Engine) unstage(entry *manifest.Entry) error {
	os.RemoveAll(filepath.Join(e.cfg.Paths.ScriptDir, "packages", entry.ShortName))
	for _, alias := range entry.Aliases {
		os.Remove(filepath.Join(e.cfg.Paths.ScriptDir, "packages", alias))
	}
	os.RemoveAll(filepath.Join(e.cfg.Paths.PluginDir, "packages", entry.ShortName))
	for _, exe := range entry.Executables {
		os.Remove(filepath.Join(e.cfg.Paths.BinDir, filepath.Base(exe)))
	}
	return nil
}

// Load flips the loader-index and plugin-marker presence for an
// already-installed package on, without re-running the pipeline (§4.6
// "Plugin enable/disable", §4.7).
func (e *Engine) Load(ctx context.Context, name string) error {
	return e.setLoaded(ctx, name, true)
}

// Unload is Load's inverse.
func (e *Engine) Unload(ctx context.Context, name string) error {
	return e.setLoaded(ctx, name, false)
}

func (e *Engine) setLoaded(ctx context.Context, name string, enabled bool) error {
	return e.withLock(ctx, func() error {
		m, err := e.store.Load()
		if err != nil {
			return err
		}
		entry := m.FindByName(name)
		if entry == nil {
			return notInstalledError(name)
		}

		if err := pipeline.ToggleLoad(e.cfg.Paths.ScriptDir, entry.ShortName, enabled); err != nil {
			return err
		}
		if err := pipeline.SetPluginEnabled(e.cfg.Paths.PluginDir, entry.ShortName, enabled); err != nil {
			return err
		}

		statuses := entry.Statuses[:0:0]
		for _, s := range entry.Statuses {
			if s != manifest.StatusLoaded {
				statuses = append(statuses, s)
			}
		}
		if enabled {
			statuses = append(statuses, manifest.StatusLoaded)
		}
		entry.Statuses = statuses

		return e.store.Save(m)
	})
}

// Pin marks an installed package so no future solve can change its
// version (§4 supplemented feature 3).
func (e *Engine) Pin(ctx context.Context, name string) error {
	return e.setPinned(ctx, name, true)
}

// Unpin clears a pin set by Pin.
func (e *Engine) Unpin(ctx context.Context, name string) error {
	return e.setPinned(ctx, name, false)
}

func (e *Engine) setPinned(ctx context.Context, name string, pinned bool) error {
	return e.withLock(ctx, func() error {
		m, err := e.store.Load()
		if err != nil {
			return err
		}
		entry := m.FindByName(name)
		if entry == nil {
			return notInstalledError(name)
		}

		statuses := entry.Statuses[:0:0]
		for _, s := range entry.Statuses {
			if s != manifest.StatusPinned {
				statuses = append(statuses, s)
			}
		}
		if pinned {
			statuses = append(statuses, manifest.StatusPinned)
		}
		entry.Statuses = statuses

		return e.store.Save(m)
	})
}
