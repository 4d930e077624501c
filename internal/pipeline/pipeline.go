package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"

	"github.com/netsec-pkg/zkg/internal/solver"
	"github.com/netsec-pkg/zkg/internal/vcs"
	"github.com/netsec-pkg/zkg/internal/zkgconfig"
	"github.com/netsec-pkg/zkg/internal/zkgerrors"
)

// Options controls one Execute call.
type Options struct {
	SkipTests bool
	// Force must also be set for SkipTests to take effect on an
	// upgrade: a plain install honors SkipTests on its own, but an
	// upgrade's test failures block the operation unless both SkipTests
	// and Force are given together (§9 open question (a), §8 testable
	// scenario 5).
	Force bool
	// Upgrading marks which canonical names in the plan are upgrades of
	// an already-installed package, so SkipTests alone cannot bypass
	// their test stage.
	Upgrading map[string]bool
	// LoadSet names the packages to append to the loader index.
	LoadSet map[string]bool
	// UserVars carries each package's resolved user variable values,
	// exposed to build_command/test_command as environment variables.
	UserVars map[string]map[string]string
}

// Result is one package's outcome from a successful Execute call.
type Result struct {
	Name        string
	ClonePath   string
	Executables []string
	ConfigFiles []string
	BuildLog    string
	TestLog     string
}

// Pipeline drives the six per-package stages of §4.6 over a solver
// plan, inside one ephemeral workspace promoted to the real stage only
// once every package has succeeded.
type Pipeline struct {
	Driver    vcs.Driver
	Runner    Runner
	Stage     Stage
	StateDir  string
	CloneRoot string
	Stdout    *os.File
}

// Execute runs the pipeline over plan in order, returning per-package
// results on success. Any stage failure discards the workspace and
// leaves the real stage untouched (§4.6 "Rollback").
func (p *Pipeline) Execute(ctx context.Context, plan *solver.Plan, opts Options) ([]Result, error) {
	ws, err := NewWorkspace(p.Stage)
	if err != nil {
		return nil, err
	}

	progress := isatty.IsTerminal(p.Stdout.Fd())

	var results []Result
	for i, entry := range plan.Entries {
		if progress {
			fmt.Fprintf(p.Stdout, "[%d/%d] %s %s\n", i+1, len(plan.Entries), entry.Name, entry.Version.String())
		}

		r, err := p.runOne(ctx, ws, plan, entry, opts)
		if err != nil {
			ws.Discard()
			return nil, err
		}
		results = append(results, r)
	}

	if err := ws.Promote(p.Stage); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Pipeline) runOne(ctx context.Context, ws *Workspace, plan *solver.Plan, entry solver.PlanEntry, opts Options) (Result, error) {
	name := entry.Name
	m := entry.Metadata

	// Stage 1: Fetch.
	clonePath, err := ensureClone(ctx, p.Driver, p.CloneRoot, entry.Canonical, entry.Canonical, entry.Version)
	if err != nil {
		return Result{}, err
	}

	// Stage 2: the workspace was already seeded from the current real
	// stage by NewWorkspace before the loop started.

	// Stage 3: Build.
	env := buildEnv(ws, opts.UserVars[name])
	buildLog, err := p.runStage(ctx, m.BuildCommand, clonePath, env, name, "build")
	if err != nil {
		return Result{}, zkgerrors.BuildFailed(name, "build_command failed", err)
	}

	// Stage 4: Test.
	var testLog string
	if m.TestCommand != "" {
		skip := opts.SkipTests
		if opts.Upgrading[entry.Canonical] {
			skip = opts.SkipTests && opts.Force
		}
		if !skip {
			testLog, err = p.runTestStage(ctx, plan, entry, env)
			if err != nil {
				return Result{}, zkgerrors.TestFailed(name, "test_command failed", err)
			}
		}
	}

	// Stage 5: Install. Config files are snapshotted from the workspace's
	// seeded copy of the real stage before install's mirror overwrites
	// them with the fresh clone's content, then restored over the fresh
	// copy once the mirror has landed (§4.6 step 6).
	scriptDest := filepath.Join(ws.Script, "packages", name)
	preserved, err := backupConfigFiles(scriptDest, m.ConfigFiles)
	if err != nil {
		return Result{}, err
	}
	if err := install(ws, clonePath, name, m.Aliases, m.ScriptDir, m.PluginDir, m.Executables, opts.LoadSet[name]); err != nil {
		return Result{}, err
	}

	// Stage 6: Config file preservation.
	if err := restoreConfigFiles(scriptDest, m.ConfigFiles, preserved); err != nil {
		return Result{}, err
	}

	if err := p.writeLog(name, "build", buildLog); err != nil {
		return Result{}, err
	}
	if testLog != "" {
		if err := p.writeLog(name, "test", testLog); err != nil {
			return Result{}, err
		}
	}

	return Result{
		Name:        name,
		ClonePath:   clonePath,
		Executables: m.Executables,
		ConfigFiles: m.ConfigFiles,
		BuildLog:    buildLog,
		TestLog:     testLog,
	}, nil
}

func (p *Pipeline) runStage(ctx context.Context, command, dir string, env []string, name, stage string) (string, error) {
	if command == "" {
		return "", nil
	}
	stdout, stderr, exitCode, err := p.Runner.Run(ctx, command, dir, env)
	log := stdout + stderr
	if err != nil || exitCode != 0 {
		if err == nil {
			err = fmt.Errorf("%s exited %d", stage, exitCode)
		}
		return log, err
	}
	return log, nil
}

// Test runs only the test stage for one plan entry, for the standalone
// `test` verb: no build, no install, no workspace promotion.
func (p *Pipeline) Test(ctx context.Context, plan *solver.Plan, name string, vars map[string]string) (string, error) {
	entry := findEntry(plan, name)
	if entry == nil {
		return "", zkgerrors.Dependency(name, "not present in plan", nil)
	}
	if entry.Metadata.TestCommand == "" {
		return "", zkgerrors.Dependency(name, "package declares no test_command", nil)
	}
	env := buildEnv(&Workspace{Bin: p.Stage.BinDir}, vars)
	return p.runTestStage(ctx, plan, *entry, env)
}

// runTestStage implements §4.6 step 4's dedicated testing clone area:
// fresh clones of the package and each direct dependency, separate
// from the package clone area. The test command's PATH still puts the
// caller-supplied env's bin directory first.
func (p *Pipeline) runTestStage(ctx context.Context, plan *solver.Plan, entry solver.PlanEntry, env []string) (string, error) {
	testRoot := filepath.Join(p.StateDir, zkgconfig.TestingDirName, entry.Name, "clones")
	defer os.RemoveAll(testRoot)

	dest := filepath.Join(testRoot, entry.Name)
	if err := p.Driver.Clone(ctx, entry.Canonical, dest, entry.Version.Ref(), true); err != nil {
		return "", zkgerrors.Stage(entry.Name, "failed to create testing clone", err)
	}

	for _, dep := range entry.DependsOn {
		ref := ""
		if depEntry := findEntry(plan, dep); depEntry != nil {
			ref = depEntry.Version.Ref()
		}
		depDest := filepath.Join(testRoot, dep)
		if err := p.Driver.Clone(ctx, dep, depDest, ref, true); err != nil {
			return "", zkgerrors.Stage(entry.Name, "failed to create dependency testing clone for "+dep, err)
		}
	}

	return p.runStage(ctx, entry.Metadata.TestCommand, dest, env, entry.Name, "test")
}

func findEntry(plan *solver.Plan, name string) *solver.PlanEntry {
	for i := range plan.Entries {
		if plan.Entries[i].Name == name {
			return &plan.Entries[i]
		}
	}
	return nil
}

func (p *Pipeline) writeLog(name, kind, content string) error {
	dir := filepath.Join(p.StateDir, zkgconfig.LogsDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zkgerrors.Stage(dir, "failed to create logs directory", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.log", name, kind))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return zkgerrors.Stage(path, "failed to write log", err)
	}
	return nil
}

// buildEnv extends the process environment with the package's resolved
// user vars and prepends the workspace bin directory to PATH, per
// §4.6 step 3.
func buildEnv(ws *Workspace, vars map[string]string) []string {
	env := os.Environ()
	path := "PATH=" + ws.Bin + string(os.PathListSeparator) + os.Getenv("PATH")
	env = append(env, path)
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	return env
}

// SetPluginEnabled toggles a plugin's marker file without re-running
// install (§4.6 "Plugin enable/disable").
func SetPluginEnabled(pluginStageDir, name string, enabled bool) error {
	dir := filepath.Join(pluginStageDir, "packages", name)
	enabledPath := filepath.Join(dir, zkgconfig.PluginMarkerEnabled)
	disabledPath := filepath.Join(dir, zkgconfig.PluginMarkerDisabled)

	if enabled {
		if _, err := os.Stat(disabledPath); err == nil {
			return os.Rename(disabledPath, enabledPath)
		}
		return nil
	}
	if _, err := os.Stat(enabledPath); err == nil {
		return os.Rename(enabledPath, disabledPath)
	}
	return nil
}
