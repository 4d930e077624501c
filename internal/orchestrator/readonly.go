package orchestrator

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/netsec-pkg/zkg/internal/manifest"
	"github.com/netsec-pkg/zkg/internal/metadata"
	"github.com/netsec-pkg/zkg/internal/source"
	"github.com/netsec-pkg/zkg/internal/zkgconfig"
)

// List returns every installed package's manifest entry (§6 `list`).
func (e *Engine) List(ctx context.Context) ([]manifest.Entry, error) {
	m, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	return m.Packages, nil
}

// SearchResult is one package a Search call surfaces, merging the
// source index's entry with its metadata when reachable.
type SearchResult struct {
	Source      string
	Canonical   string
	Description string
	Tags        []string
}

// Search scans every configured source's index for entries whose
// canonical name or URL contains query (§6 `search`).
func (e *Engine) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var results []SearchResult
	for _, s := range e.cfg.Sources {
		entries, err := source.LoadIndex(s.ClonePath)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !strings.Contains(strings.ToLower(entry.URL), strings.ToLower(query)) &&
				!strings.Contains(strings.ToLower(entry.Name), strings.ToLower(query)) {
				continue
			}
			results = append(results, SearchResult{
				Source:    s.Name,
				Canonical: entry.URL,
				Tags:      entry.Tags,
			})
		}
	}
	return results, nil
}

// PackageInfo is Info's combined view of an installed or resolvable
// package: manifest state where installed, metadata where reachable.
type PackageInfo struct {
	Installed *manifest.Entry
	Metadata  *metadata.Metadata
}

// Info reports everything known about name: its manifest entry if
// installed, and its metadata if a clone is reachable (§6 `info`).
// Suggests-only dependencies surface here as informational metadata
// only, per §4 supplemented feature 5 — the solver never adds them to
// a plan.
func (e *Engine) Info(ctx context.Context, name string) (PackageInfo, error) {
	m, err := e.store.Load()
	if err != nil {
		return PackageInfo{}, err
	}

	info := PackageInfo{}
	entry := m.FindByName(name)
	info.Installed = entry

	canonical := name
	if entry != nil {
		canonical = entry.Canonical
	}

	dest := filepath.Join(e.packageCloneRoot(), canonical)
	if meta, err := metadata.Load(dest); err == nil {
		info.Metadata = meta
	}

	if info.Installed == nil && info.Metadata == nil {
		return PackageInfo{}, notInstalledError(name)
	}
	return info, nil
}

// Env reports the resolved filesystem layout as KEY=VALUE pairs a
// shell can eval (§4 supplemented feature 1).
func (e *Engine) Env(ctx context.Context) map[string]string {
	return map[string]string{
		zkgconfig.EnvStateDir:  e.cfg.Paths.StateDir,
		zkgconfig.EnvScriptDir: e.cfg.Paths.ScriptDir,
		zkgconfig.EnvPluginDir: e.cfg.Paths.PluginDir,
		zkgconfig.EnvBinDir:    e.cfg.Paths.BinDir,
	}
}

// Config loads the user configuration file (§6 `config`).
func (e *Engine) Config() (*metadata.Config, error) {
	return metadata.LoadConfig(e.configPath())
}

// Autoconfig writes the engine's resolved paths (state, script, plugin,
// bin, and platform distribution dir) and the capabilities reported by
// the configured capability.Discoverer into the user config file
// (§6 `autoconfig`). It does not query the platform for search paths.
func (e *Engine) Autoconfig(ctx context.Context) (*metadata.Config, error) {
	cfg, err := metadata.LoadConfig(e.configPath())
	if err != nil {
		return nil, err
	}

	cfg.Paths["state_dir"] = e.cfg.Paths.StateDir
	cfg.Paths["script_dir"] = e.cfg.Paths.ScriptDir
	cfg.Paths["plugin_dir"] = e.cfg.Paths.PluginDir
	cfg.Paths["bin_dir"] = e.cfg.Paths.BinDir
	if e.cfg.Paths.PlatformDist != "" {
		cfg.Paths["platform_distribution_path"] = e.cfg.Paths.PlatformDist
	}

	if e.cfg.Capabilities != nil {
		caps, err := e.cfg.Capabilities.Capabilities(ctx)
		if err != nil {
			return nil, fmt.Errorf("querying platform capabilities: %w", err)
		}
		for name, ver := range caps {
			cfg.UserVars["capability."+name] = ver
		}
	}

	if err := cfg.Save(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (e *Engine) configPath() string {
	return filepath.Join(filepath.Dir(e.cfg.StateDir), zkgconfig.UserConfigFileName)
}
