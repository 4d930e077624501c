// Package orchestrator implements the operation orchestrator (C10):
// one method per public verb, each composing the solver (C5), the
// install pipeline (C6), and the manifest store (C7) into a single
// transactional unit under the state-directory lock.
package orchestrator

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/netsec-pkg/zkg/internal/capability"
	"github.com/netsec-pkg/zkg/internal/lock"
	"github.com/netsec-pkg/zkg/internal/manifest"
	"github.com/netsec-pkg/zkg/internal/pipeline"
	"github.com/netsec-pkg/zkg/internal/source"
	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/zkgconfig"
)

// Config is everything one Engine needs: the resolved filesystem
// layout, the VCS driver, the command runner, the capability
// discoverer, the configured sources, and the runtime platform/manager
// versions the solver checks reserved dependency names against.
type Config struct {
	StateDir        string
	Paths           zkgconfig.Paths
	Driver          vcs.Driver
	Runner          pipeline.Runner
	Capabilities    capability.Discoverer
	Sources         []source.Source
	DefaultTemplate string
	PlatformVersion string
	ManagerVersion  string
	Logger          *slog.Logger
}

// Engine is the orchestrator's handle on one state directory.
type Engine struct {
	cfg   Config
	store *manifest.Store
}

// New builds an Engine from cfg.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{cfg: cfg, store: manifest.NewStore(cfg.StateDir)}
}

func (e *Engine) stage() pipeline.Stage {
	return pipeline.Stage{
		ScriptDir: e.cfg.Paths.ScriptDir,
		PluginDir: e.cfg.Paths.PluginDir,
		BinDir:    e.cfg.Paths.BinDir,
	}
}

func (e *Engine) packageCloneRoot() string {
	return filepath.Join(e.cfg.StateDir, zkgconfig.ClonePackageDirName)
}

func (e *Engine) sourceCloneRoot() string {
	return filepath.Join(e.cfg.StateDir, zkgconfig.CloneSourceDirName)
}

func (e *Engine) templateCloneRoot() string {
	return filepath.Join(e.cfg.StateDir, zkgconfig.CloneTemplateDirName)
}

func (e *Engine) scratchDir(name string) string {
	return filepath.Join(e.cfg.StateDir, name)
}

func (e *Engine) catalog() (*vcsCatalog, error) {
	return newCatalog(e.cfg.Driver, e.packageCloneRoot(), e.cfg.Sources)
}

func (e *Engine) pipeline() *pipeline.Pipeline {
	return &pipeline.Pipeline{
		Driver:    e.cfg.Driver,
		Runner:    e.cfg.Runner,
		Stage:     e.stage(),
		StateDir:  e.cfg.StateDir,
		CloneRoot: e.packageCloneRoot(),
		Stdout:    os.Stdout,
	}
}

// withLock acquires the state-directory lock for a mutating operation,
// creating the state directory first since the lock file lives inside
// it (§5).
func (e *Engine) withLock(ctx context.Context, fn func() error) error {
	if err := os.MkdirAll(e.cfg.StateDir, 0o755); err != nil {
		return err
	}
	return lock.WithLock(ctx, e.cfg.StateDir, fn)
}
